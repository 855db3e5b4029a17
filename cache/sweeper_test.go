package cache

import (
	"context"
	"os"
	"testing"
	"time"

	youtubetools "github.com/amotivv/youtube-tools-llm-context"
	"github.com/stretchr/testify/require"
)

func TestSweeper_StartStop(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	s := newTestStore(t, clock)

	sweeper := NewSweeper(s, SweeperConfig{Interval: time.Hour})
	sweeper.Start(context.Background())
	sweeper.Stop()

	// Stop after Stop is a no-op.
	sweeper.Stop()
}

func TestSweeper_RunOnceRemovesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	s := newTestStore(t, clock)

	key := youtubetools.NewKey("https://youtu.be/abc", youtubetools.KindAudio, "192")
	entry, err := s.Publish(context.Background(), key, youtubetools.KindAudio, writeTemp(t, "data"))
	require.NoError(t, err)

	clock.Advance(8 * 24 * time.Hour)

	sweeper := NewSweeper(s, SweeperConfig{Interval: time.Hour})
	sweeper.now = clock.Now
	sweeper.RunOnce(context.Background())

	_, err = os.Stat(entry.Path)
	require.True(t, os.IsNotExist(err))
}
