package models

import (
	"testing"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEntityActive(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)
	paused := EntityStatus("Paused")
	active := EntityStatusActive

	tests := []struct {
		name     string
		status   *EntityStatus
		isActive *bool
		start    *time.Time
		end      *time.Time
		want     bool
	}{
		{"no status no flag", nil, nil, nil, nil, true},
		{"active status", &active, utils.ToPtr(true), nil, nil, true},
		{"paused is case insensitive", &paused, nil, nil, nil, false},
		{"flag false", &active, utils.ToPtr(false), nil, nil, false},
		{"starts tomorrow", nil, nil, &tomorrow, nil, false},
		{"ended yesterday", nil, nil, nil, &yesterday, false},
		{"within window", nil, nil, &yesterday, &tomorrow, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEntityActive(tt.status, tt.isActive, tt.start, tt.end, now))
		})
	}
}

func TestAdSetPlacementsScan(t *testing.T) {
	var p AdSetPlacements
	require.NoError(t, p.Scan([]byte(`{"platforms":["fb_feed","ig_feed"]}`)))
	assert.Equal(t, []string{"fb_feed", "ig_feed"}, p.Platforms)

	require.NoError(t, p.Scan(`["instagram_reels"]`))
	assert.Equal(t, []string{"instagram_reels"}, p.Platforms)

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p.Platforms)

	assert.Error(t, p.Scan(42))

	v, err := AdSetPlacements{}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"platforms":[]}`, string(v.([]byte)))
}

func TestPostStatusValue(t *testing.T) {
	v, err := PostStatusPublished.Value()
	require.NoError(t, err)
	assert.Equal(t, "published", v)

	_, err = PostStatus("gone").Value()
	assert.Error(t, err)

	var s PostStatus
	require.NoError(t, s.Scan([]byte("failed")))
	assert.Equal(t, PostStatusFailed, s)
}

func TestMediaSpecIsVideoFormat(t *testing.T) {
	assert.True(t, MediaSpec{Format: "MP4"}.IsVideoFormat())
	assert.True(t, MediaSpec{Format: ".mov"}.IsVideoFormat())
	assert.False(t, MediaSpec{Format: "png"}.IsVideoFormat())
	assert.False(t, MediaSpec{}.IsVideoFormat())
}

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	require.NoError(t, m.Scan([]byte(`{"tone":"friendly","n":2}`)))
	assert.Equal(t, "friendly", m.String("tone"))
	assert.Equal(t, "", m.String("n"))
	assert.Equal(t, "", JSONMap(nil).String("tone"))
}
