package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var errTestTimeout = errors.New("timed out")

func TestNewPoller_Defaults(t *testing.T) {
	p := NewPoller(0, 0)
	assert.Equal(t, 5*time.Second, p.Interval)
	assert.Equal(t, 60, p.MaxPolls)
	assert.Equal(t, 295*time.Second, p.Budget())
}

func TestPoller_Poll(t *testing.T) {
	p := Poller{Interval: time.Millisecond, MaxPolls: 4}

	t.Run("done on third check", func(t *testing.T) {
		checks := 0
		err := p.Poll(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
			checks++
			return attempt == 3, nil
		}, errTestTimeout)
		require.NoError(t, err)
		assert.Equal(t, 3, checks)
	})

	t.Run("exhaustion never exceeds max polls", func(t *testing.T) {
		checks := 0
		err := p.Poll(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
			checks++
			return false, nil
		}, errTestTimeout)
		assert.ErrorIs(t, err, errTestTimeout)
		assert.Equal(t, 4, checks)
	})

	t.Run("check error stops polling", func(t *testing.T) {
		boom := errors.New("boom")
		checks := 0
		err := p.Poll(context.Background(), func(ctx context.Context, attempt int) (bool, error) {
			checks++
			return false, boom
		}, errTestTimeout)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 1, checks)
	})

	t.Run("context cancellation", func(t *testing.T) {
		slow := Poller{Interval: time.Hour, MaxPolls: 3}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := slow.Poll(ctx, func(ctx context.Context, attempt int) (bool, error) {
			return false, nil
		}, errTestTimeout)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAwait(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := Poller{Interval: 2 * time.Millisecond, MaxPolls: 500}

	t.Run("returns value", func(t *testing.T) {
		v, err := Await(context.Background(), p, func(ctx context.Context) (string, error) {
			return "https://cdn/video.mp4", nil
		}, errTestTimeout)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn/video.mp4", v)
	})

	t.Run("propagates error", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Await(context.Background(), p, func(ctx context.Context) (string, error) {
			return "", boom
		}, errTestTimeout)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("timeout cancels the background call", func(t *testing.T) {
		short := Poller{Interval: 2 * time.Millisecond, MaxPolls: 5}
		cancelled := make(chan struct{})
		start := time.Now()
		_, err := Await(context.Background(), short, func(ctx context.Context) (string, error) {
			<-ctx.Done()
			close(cancelled)
			return "", ctx.Err()
		}, errTestTimeout)
		assert.ErrorIs(t, err, errTestTimeout)
		assert.Less(t, time.Since(start), time.Second)

		select {
		case <-cancelled:
		case <-time.After(time.Second):
			t.Fatal("background call was not cancelled")
		}
	})
}
