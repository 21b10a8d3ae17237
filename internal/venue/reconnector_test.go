package venue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnector_DoublesUpToMaxThenResets(t *testing.T) {
	r := NewReconnector(BackoffConfig{
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Backoff:      2.0,
	})

	assert.Equal(t, 1*time.Second, r.NextDelay())
	assert.Equal(t, 2*time.Second, r.NextDelay())
	assert.Equal(t, 4*time.Second, r.NextDelay())

	r.Reset()
	assert.Equal(t, 1*time.Second, r.NextDelay())
}

func TestReconnector_CapsAtMaxDelay(t *testing.T) {
	r := NewReconnector(BackoffConfig{
		InitialDelay: 10 * time.Second,
		MaxDelay:     15 * time.Second,
		Backoff:      2.0,
	})

	assert.Equal(t, 10*time.Second, r.NextDelay())
	assert.Equal(t, 15*time.Second, r.NextDelay())
	assert.Equal(t, 15*time.Second, r.NextDelay())
}

func TestReconnector_ExhaustsMaxAttempts(t *testing.T) {
	r := NewReconnector(BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Backoff:      2.0,
		MaxAttempts:  2,
	})

	ctx := context.Background()
	assert.NoError(t, r.Wait(ctx))
	assert.NoError(t, r.Wait(ctx))
	err := r.Wait(ctx)
	assert.Error(t, err, "third wait should report attempts exhausted")
}

func TestReconnector_Wait_UnblocksOnContextCancel(t *testing.T) {
	r := NewReconnector(BackoffConfig{InitialDelay: time.Hour, MaxDelay: time.Hour, Backoff: 2.0})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- r.Wait(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("reconnect wait did not unblock within one poll interval of cancellation")
	}
}
