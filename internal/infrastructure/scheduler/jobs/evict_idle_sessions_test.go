package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeEvictor struct {
	maxIdle time.Duration
	calls   int
}

func (f *fakeEvictor) EvictIdle(maxIdle time.Duration) int {
	f.maxIdle = maxIdle
	f.calls++
	return 2
}

func TestEvictIdleSessionsJob_Run(t *testing.T) {
	ev := &fakeEvictor{}
	job := NewEvictIdleSessionsJob(ev, 30*time.Minute, nil)

	assert.Equal(t, "evict_idle_sessions", job.Name())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 30*time.Minute, ev.maxIdle)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Equal(t, 1, ev.calls)
}
