package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstagramExecutor(g *fakeGraph, media *fakeMedia, p Poller) *InstagramExecutor {
	return NewInstagramExecutor(NewGraphClient(InstagramGraph(g.URL()), nil), newFakeCredentials(), media, p, nil)
}

func TestInstagramExecutor_SingleImage(t *testing.T) {
	g := newFakeGraph(t, sequentialIDs)
	exec := newTestInstagramExecutor(g, &fakeMedia{}, testPoller())

	res := exec.Execute(context.Background(), samplePost(models.PostTypeImage, imageSpecs(1)...))
	require.True(t, res.Success, res.ErrorText())
	assert.Equal(t, models.PlatformInstagram, res.Platform)
	assert.Equal(t, "id2", *res.PlatformPostID)
	assert.Equal(t, "https://www.instagram.com/p/id2/", *res.PlatformURL)

	calls := g.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "/ig1/media", calls[0].Path)
	assert.Equal(t, "https://cdn.example.com/img0.png", calls[0].JSON["image_url"])
	assert.Equal(t, "Hello\n\n#go #fast", calls[0].JSON["caption"])
	assert.Equal(t, "ig-token", calls[0].JSON["access_token"])
	assert.Equal(t, "/ig1/media_publish", calls[1].Path)
	assert.Equal(t, "id1", calls[1].JSON["creation_id"])
}

func TestInstagramExecutor_Carousel(t *testing.T) {
	g := newFakeGraph(t, sequentialIDs)
	exec := newTestInstagramExecutor(g, &fakeMedia{}, testPoller())

	res := exec.Execute(context.Background(), samplePost(models.PostTypeCarousel, imageSpecs(3)...))
	require.True(t, res.Success, res.ErrorText())

	calls := g.Calls()
	require.Len(t, calls, 5)
	for i := 0; i < 3; i++ {
		assert.Equal(t, true, calls[i].JSON["is_carousel_item"])
		assert.Nil(t, calls[i].JSON["caption"])
	}
	assert.Equal(t, "CAROUSEL", calls[3].JSON["media_type"])
	assert.Equal(t, "id1,id2,id3", calls[3].JSON["children"])
	assert.Equal(t, "id4", calls[4].JSON["creation_id"])
	assert.Equal(t, "https://www.instagram.com/p/id5/", *res.PlatformURL)
}

func TestInstagramExecutor_CarouselChildFailure(t *testing.T) {
	g := newFakeGraph(t, func(call graphCall, n int) (int, any) {
		if n == 3 {
			return http.StatusBadRequest, map[string]any{"error": map[string]any{"message": "Media download failed"}}
		}
		return sequentialIDs(call, n)
	})
	exec := newTestInstagramExecutor(g, &fakeMedia{}, testPoller())

	res := exec.Execute(context.Background(), samplePost(models.PostTypeCarousel, imageSpecs(4)...))
	assert.False(t, res.Success)
	assert.Equal(t, "Media download failed", res.ErrorText())

	// no parent container and no publish
	assert.Len(t, g.Calls(), 3)
	for _, call := range g.Calls() {
		assert.NotEqual(t, "/ig1/media_publish", call.Path)
		assert.NotEqual(t, "CAROUSEL", call.JSON["media_type"])
	}
}

func TestInstagramExecutor_Reel(t *testing.T) {
	polls := 0
	g := newFakeGraph(t, func(call graphCall, n int) (int, any) {
		if call.Method == http.MethodGet {
			polls++
			if polls < 3 {
				return http.StatusOK, map[string]any{"status_code": "IN_PROGRESS"}
			}
			return http.StatusOK, map[string]any{"status_code": "FINISHED"}
		}
		return sequentialIDs(call, n)
	})
	media := &fakeMedia{video: "https://cdn/reel.mp4"}
	exec := newTestInstagramExecutor(g, media, testPoller())

	res := exec.Execute(context.Background(), samplePost(models.PostTypeReel, models.MediaSpec{Source: "a reel", Format: "mp4"}))
	require.True(t, res.Success, res.ErrorText())
	assert.Equal(t, utils.DefaultReelSeconds, media.lastDuration)

	calls := g.Calls()
	require.Len(t, calls, 5)
	assert.Equal(t, "REELS", calls[0].JSON["media_type"])
	assert.Equal(t, "https://cdn/reel.mp4", calls[0].JSON["video_url"])
	assert.Equal(t, "/id1", calls[1].Path)
	assert.Equal(t, "status_code", calls[1].Query.Get("fields"))
	assert.Equal(t, "/ig1/media_publish", calls[4].Path)
	assert.Equal(t, "https://www.instagram.com/reel/id5/", *res.PlatformURL)
}

func TestInstagramExecutor_ReelFailures(t *testing.T) {
	t.Run("no media", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		res := newTestInstagramExecutor(g, &fakeMedia{}, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeReel))
		assert.Equal(t, "No video media specified for Reel", res.ErrorText())
	})

	t.Run("generation returned nothing", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		res := newTestInstagramExecutor(g, &fakeMedia{}, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeReel, models.MediaSpec{Source: "x"}))
		assert.Equal(t, "Reel video generation failed", res.ErrorText())
		assert.Empty(t, g.Calls())
	})

	t.Run("generation timeout", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		media := &fakeMedia{video: "https://cdn/r.mp4", videoDelay: time.Minute}
		res := newTestInstagramExecutor(g, media, Poller{Interval: time.Millisecond, MaxPolls: 2}).
			Execute(context.Background(), samplePost(models.PostTypeReel, models.MediaSpec{Source: "x"}))
		assert.Equal(t, "Reel generation timeout after 5 minutes", res.ErrorText())
	})

	t.Run("upload error status", func(t *testing.T) {
		g := newFakeGraph(t, func(call graphCall, n int) (int, any) {
			if call.Method == http.MethodGet {
				return http.StatusOK, map[string]any{"status_code": "ERROR"}
			}
			return sequentialIDs(call, n)
		})
		res := newTestInstagramExecutor(g, &fakeMedia{video: "https://cdn/r.mp4"}, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeReel, models.MediaSpec{Source: "x"}))
		assert.Equal(t, "Reel upload failed with ERROR status", res.ErrorText())
		for _, call := range g.Calls() {
			assert.NotEqual(t, "/ig1/media_publish", call.Path)
		}
	})

	t.Run("upload never finishes", func(t *testing.T) {
		g := newFakeGraph(t, func(call graphCall, n int) (int, any) {
			if call.Method == http.MethodGet {
				return http.StatusOK, map[string]any{"status_code": "IN_PROGRESS"}
			}
			return sequentialIDs(call, n)
		})
		p := Poller{Interval: time.Millisecond, MaxPolls: 200}
		res := newTestInstagramExecutor(g, &fakeMedia{video: "https://cdn/r.mp4"}, p).
			Execute(context.Background(), samplePost(models.PostTypeReel, models.MediaSpec{Source: "x"}))
		assert.Equal(t, "Reel upload timeout after 5 minutes", res.ErrorText())

		gets := 0
		for _, call := range g.Calls() {
			if call.Method == http.MethodGet {
				gets++
			}
		}
		assert.Equal(t, p.MaxPolls, gets)
	})
}

func TestInstagramExecutor_Story(t *testing.T) {
	t.Run("image story", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		res := newTestInstagramExecutor(g, &fakeMedia{}, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeStory, models.MediaSpec{Source: "a story", Format: "jpg"}))
		require.True(t, res.Success, res.ErrorText())
		assert.Equal(t, "https://www.instagram.com/stories/", *res.PlatformURL)

		calls := g.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, "STORIES", calls[0].JSON["media_type"])
		assert.NotEmpty(t, calls[0].JSON["image_url"])
		assert.Nil(t, calls[0].JSON["video_url"])
	})

	t.Run("video story is capped and polled", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		media := &fakeMedia{video: "https://cdn/story.mp4"}
		res := newTestInstagramExecutor(g, media, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeStory, models.MediaSpec{Source: "a story", Format: "mov", DurationSeconds: utils.ToPtr(40)}))
		require.True(t, res.Success, res.ErrorText())
		assert.Equal(t, utils.MaxStorySeconds, media.lastDuration)

		calls := g.Calls()
		require.Len(t, calls, 3)
		assert.Equal(t, "https://cdn/story.mp4", calls[0].JSON["video_url"])
		assert.Equal(t, http.MethodGet, calls[1].Method)
	})

	t.Run("no media", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		res := newTestInstagramExecutor(g, &fakeMedia{}, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeStory))
		assert.Equal(t, "Failed to generate story media", res.ErrorText())
		assert.Empty(t, g.Calls())
	})

	t.Run("image generation empty", func(t *testing.T) {
		g := newFakeGraph(t, sequentialIDs)
		res := newTestInstagramExecutor(g, &fakeMedia{images: []string{}}, testPoller()).
			Execute(context.Background(), samplePost(models.PostTypeStory, models.MediaSpec{Source: "x"}))
		assert.Equal(t, "Failed to generate story media", res.ErrorText())
	})
}

func TestInstagramExecutor_Unsupported(t *testing.T) {
	g := newFakeGraph(t, sequentialIDs)
	exec := newTestInstagramExecutor(g, &fakeMedia{}, testPoller())

	for _, postType := range []models.PostType{models.PostTypeText, models.PostTypeLink} {
		res := exec.Execute(context.Background(), samplePost(postType))
		assert.Equal(t, "Unsupported post type for Instagram: "+string(postType), res.ErrorText())
	}
	assert.Empty(t, g.Calls())
}
