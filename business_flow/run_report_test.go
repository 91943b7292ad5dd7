package businessflow

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleSummary() *RunSummary {
	return &RunSummary{
		InitiativeID: "init-1",
		StartedAt:    time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
		FinishedAt:   time.Date(2026, 3, 1, 9, 35, 0, 0, time.UTC),
		AdSets: []AdSetRun{
			{
				CampaignName: "Spring",
				AdSetName:    "A",
				AdSetID:      "as1",
				Results: []models.PostingResult{
					{
						Success:        true,
						PostID:         "p1",
						Platform:       models.PlatformFacebook,
						Status:         models.PostingStatusPublished,
						PlatformPostID: utils.ToPtr("123_456"),
						PlatformURL:    utils.ToPtr("https://www.facebook.com/123_456"),
						ExecutionTime:  1500 * time.Millisecond,
					},
					{
						PostID:       "p1",
						Platform:     models.PlatformInstagram,
						Status:       models.PostingStatusFailed,
						ErrorMessage: utils.ToPtr("Instagram post limit exceeded"),
					},
				},
			},
			{CampaignName: "Spring", AdSetName: "B", AdSetID: "as2", Error: "ad set as2: content generation failed"},
		},
		QuotaSnapshots: map[string]QuotaSnapshot{
			"as2": {AdSetID: "as2", Remaining: QuotaCounts{FacebookPosts: 4, InstagramPosts: 4, Photos: 10, Videos: 2}},
			"as1": {AdSetID: "as1", Baseline: QuotaCounts{Photos: 3}, Session: QuotaCounts{FacebookPosts: 1, Photos: 1}, Remaining: QuotaCounts{FacebookPosts: 3, InstagramPosts: 4, Photos: 6, Videos: 2}},
		},
	}
}

func TestBuildRunWorkbook(t *testing.T) {
	data, err := BuildRunWorkbook(sampleSummary())
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	assert.Equal(t, []string{resultsSheet, quotaSheet}, xl.GetSheetList())

	rows, err := xl.GetRows(resultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Platform", rows[0][3])
	assert.Equal(t, []string{"Spring", "A", "p1", "facebook", "published", "123_456", "https://www.facebook.com/123_456", "", "1.50"}, rows[1])
	assert.Equal(t, "Instagram post limit exceeded", rows[2][7])
	assert.Equal(t, "error", rows[3][4])
	assert.Equal(t, "ad set as2: content generation failed", rows[3][7])

	quota, err := xl.GetRows(quotaSheet)
	require.NoError(t, err)
	require.Len(t, quota, 3)
	assert.Len(t, quota[0], 13)
	assert.Equal(t, "Baseline facebook posts", quota[0][1])
	assert.Equal(t, "as1", quota[1][0])
	assert.Equal(t, "3", quota[1][3])
	assert.Equal(t, "1", quota[1][5])
	assert.Equal(t, "6", quota[1][11])
	assert.Equal(t, "as2", quota[2][0])
}

func TestXLSXRunReporter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := NewXLSXRunReporter(dir, nil).Write(sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "init-1_20260301T093000Z.xlsx"), path)

	xl, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer xl.Close()
	assert.Len(t, xl.GetSheetList(), 2)
}
