package handler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBase_Bookkeeping(t *testing.T) {
	var b Base
	assert.True(t, b.Success())

	b.Fail("a@x.com", "A", "")
	assert.False(t, b.Success())
	assert.Empty(t, b.LastError())
	assert.Equal(t, []string{"a@x.com"}, b.Failed().Addresses())

	b.Fail("bad", "", "bad destination")
	assert.Equal(t, "bad destination", b.LastError())

	// Failed returns a copy
	failed := b.Failed()
	failed.Remove("a@x.com")
	assert.Len(t, b.Failed(), 2)

	b.Reset()
	assert.True(t, b.Success())
	assert.Empty(t, b.Failed())

	b.SetError("transport down")
	assert.False(t, b.Success())
}

func TestBase_Antiflood(t *testing.T) {
	var slept []time.Duration
	b := Base{sleep: func(_ context.Context, d time.Duration) { slept = append(slept, d) }}

	assert.False(t, b.Sent(context.Background()), "disabled without threshold")

	b.Antiflood(2, 3*time.Second)
	var paused []bool
	for i := 0; i < 5; i++ {
		paused = append(paused, b.Sent(context.Background()))
	}

	assert.Equal(t, []bool{false, true, false, true, false}, paused)
	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second}, slept)
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	sleepContext(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}
