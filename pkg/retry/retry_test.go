package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := New(fastConfig()).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesRetryableUntilSuccess(t *testing.T) {
	calls := 0
	err := New(fastConfig()).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("deadlock detected"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttemptsAndUnwraps(t *testing.T) {
	base := errors.New("serialization conflict")
	calls := 0
	err := New(fastConfig()).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(base)
	})
	assert.Equal(t, 3, calls)
	assert.Equal(t, base, err)
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := New(fastConfig()).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("validation failed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_PermanentShortCircuits(t *testing.T) {
	base := errors.New("unique violation")
	cfg := fastConfig()
	cfg.RetryIf = func(error) bool { return true } // Permanent still wins
	calls := 0
	err := New(cfg).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(base)
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, base, err)
}

func TestDo_CustomRetryIf(t *testing.T) {
	cfg := fastConfig()
	cfg.RetryIf = func(err error) bool { return err.Error() == "again" }
	calls := 0
	err := New(cfg).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("again")
	})
	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "again")
}

func TestDo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := New(fastConfig()).Do(ctx, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 0, calls)
}

func TestDo_OnRetryCallback(t *testing.T) {
	var attempts []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}
	_ = New(cfg).Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errors.New("busy"))
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestCalculateDelay_Caps(t *testing.T) {
	r := New(Config{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     25 * time.Millisecond,
		Multiplier:   2.0,
	})
	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 25*time.Millisecond, r.calculateDelay(3))
}

func TestRetryableAndPermanentWrappers(t *testing.T) {
	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))

	base := errors.New("boom")
	assert.True(t, IsRetryable(Retryable(base)))
	assert.False(t, IsRetryable(base))
	assert.True(t, IsPermanent(Permanent(base)))
	assert.True(t, errors.Is(Retryable(base), base))
}
