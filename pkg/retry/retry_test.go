package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

var fastPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}

func TestDoRetriesConnectionErrors(t *testing.T) {
	calls := 0
	var waits []time.Duration
	err := Do(context.Background(), fastPolicy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return appErrors.WrapAs(errors.New("conn reset"), appErrors.ErrConnection, "")
		}
		return nil
	}, WithNotify(func(attempt int, err error, wait time.Duration) {
		waits = append(waits, wait)
	}))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	queryErr := appErrors.WrapAs(errors.New("duplicate key"), appErrors.ErrQuery, "")
	err := Do(context.Background(), fastPolicy, func(ctx context.Context) error {
		calls++
		return queryErr
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, queryErr)
}

func TestDoGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy, func(ctx context.Context) error {
		calls++
		return appErrors.WrapAs(errors.New("refused"), appErrors.ErrConnection, "")
	})

	assert.Equal(t, 3, calls)
	assert.True(t, appErrors.IsRetryable(err))
}

func TestDoValueReturnsResult(t *testing.T) {
	calls := 0
	value, err := DoValue(context.Background(), fastPolicy, func(ctx context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("flaky")
		}
		return 42, nil
	}, WithClassifier(func(error) bool { return true }))

	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Equal(t, 2, calls)
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Second}, func(ctx context.Context) error {
		calls++
		return appErrors.WrapAs(errors.New("refused"), appErrors.ErrConnection, "")
	})

	assert.Error(t, err)
	assert.LessOrEqual(t, calls, 1)
}
