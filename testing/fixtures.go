package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestInitiative creates an active initiative
func (tf *TestFixtures) CreateTestInitiative() (*models.Initiative, error) {
	initiative := &models.Initiative{
		TenantID: uuid.New(),
		Name:     fmt.Sprintf("Initiative %s", uuid.NewString()[:8]),
		IsActive: true,
	}
	if err := tf.DB.DB.Create(initiative).Error; err != nil {
		return nil, fmt.Errorf("failed to create initiative: %w", err)
	}
	return initiative, nil
}

// CreateTestCampaign creates a campaign for the initiative with the given status
func (tf *TestFixtures) CreateTestCampaign(initiativeID uuid.UUID, status models.EntityStatus) (*models.Campaign, error) {
	campaign := &models.Campaign{
		InitiativeID: initiativeID,
		Name:         "Spring awareness",
		Objective:    "awareness",
		Status:       &status,
		IsActive:     utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestAdSet creates an ad set under the campaign with the given placements
func (tf *TestFixtures) CreateTestAdSet(campaign *models.Campaign, placements ...string) (*models.AdSet, error) {
	status := models.EntityStatusActive
	adSet := &models.AdSet{
		CampaignID:    campaign.ID,
		InitiativeID:  campaign.InitiativeID,
		Name:          "Feed placements",
		Status:        &status,
		Placements:    models.AdSetPlacements{Platforms: placements},
		CreativeBrief: models.JSONMap{"tone": "friendly"},
	}
	if err := tf.DB.DB.Create(adSet).Error; err != nil {
		return nil, fmt.Errorf("failed to create ad set: %w", err)
	}
	return adSet, nil
}

// CreateTestPost creates a post; published posts get platform ids set
func (tf *TestFixtures) CreateTestPost(adSet *models.AdSet, postType models.PostType, mediaCount int, fbPublished, igPublished bool) (*models.Post, error) {
	media := make(pq.StringArray, 0, mediaCount)
	for i := 0; i < mediaCount; i++ {
		media = append(media, fmt.Sprintf("https://cdn.example.com/%d.png", i))
	}

	post := &models.Post{
		InitiativeID: adSet.InitiativeID,
		AdSetID:      adSet.ID,
		PostType:     postType,
		TextContent:  utils.ToPtr("hello"),
		Hashtags:     pq.StringArray{"spring"},
		MediaURLs:    media,
		Status:       models.PostStatusDraft,
	}
	if fbPublished {
		post.FacebookPostID = utils.ToPtr(uuid.NewString())
	}
	if igPublished {
		post.InstagramPostID = utils.ToPtr(uuid.NewString())
	}
	if fbPublished || igPublished {
		post.Status = models.PostStatusPublished
		post.IsPublished = true
		post.PublishedTime = utils.ToPtr(time.Now().UTC())
	}

	if err := tf.DB.DB.Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// CreateTestTokens stores already encrypted tokens for an initiative
func (tf *TestFixtures) CreateTestTokens(initiativeID uuid.UUID, fbPageID, fbTokenEnc, igID, igTokenEnc string) (*models.InitiativeToken, error) {
	row := &models.InitiativeToken{
		InitiativeID:               initiativeID,
		FBPageID:                   &fbPageID,
		FBPageAccessTokenEncrypted: &fbTokenEnc,
		InstaBusinessID:            &igID,
		InstaAccessTokenEncrypted:  &igTokenEnc,
	}
	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create initiative tokens: %w", err)
	}
	return row, nil
}
