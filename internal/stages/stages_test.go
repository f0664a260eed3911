package stages

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recruiter-agent/internal/pipeline/steps"
	"github.com/jonathan/recruiter-agent/internal/retry"
	"github.com/jonathan/recruiter-agent/internal/run"
)

func TestAll_RegistersEveryStage(t *testing.T) {
	registry, err := steps.NewRegistry(All(testDeps())...)
	require.NoError(t, err)

	var want []string
	for name := range steps.StepRegistry {
		want = append(want, name)
	}
	assert.ElementsMatch(t, want, registry.Names())
}

func TestFanOut_BoundsConcurrency(t *testing.T) {
	r := newRun(t, nil)
	var running, peak int32
	done := make([]bool, 10)

	skipped := fanOut(context.Background(), r, 3, len(done), func(_ context.Context, i int) {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		done[i] = true
		atomic.AddInt32(&running, -1)
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	for i := range done {
		assert.True(t, done[i], "index %d", i)
		assert.False(t, skipped[i], "index %d", i)
	}
}

func TestFanOut_SkipsAfterCancel(t *testing.T) {
	r := newRun(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := int32(0)
	skipped := fanOut(ctx, r, 2, 4, func(context.Context, int) { atomic.AddInt32(&calls, 1) })
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, []bool{true, true, true, true}, skipped)
}

func TestFanOut_SkipsAfterRunDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := newRun(t, nil, run.WithClock(func() time.Time { return now }), run.WithDeadline(time.Second))
	now = now.Add(time.Hour)

	skipped := fanOut(context.Background(), r, 2, 2, func(context.Context, int) {
		t.Error("no sub-call should start after the deadline")
	})
	assert.Equal(t, []bool{true, true}, skipped)
}

func TestCleanList(t *testing.T) {
	assert.Equal(t, []string{"Fintech", "Health"}, cleanList([]string{" Fintech ", "", "fintech", "Health"}))
	assert.Empty(t, cleanList(nil))
}

func TestNewPolicies(t *testing.T) {
	base := retry.DefaultPolicy()
	p := NewPolicies(base, 0, 5*time.Second, time.Minute)
	assert.Equal(t, base.CallTimeout, p.LLM.CallTimeout)
	assert.Equal(t, 5*time.Second, p.HTTP.CallTimeout)
	assert.Equal(t, time.Minute, p.Scraper.CallTimeout)
	assert.Equal(t, base.MaxAttempts, p.Scraper.MaxAttempts)
}
