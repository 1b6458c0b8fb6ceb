package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEachPageDeadlineIsPerPage(t *testing.T) {
	opts := Options{Timeout: 80 * time.Millisecond}
	pages := 0
	err := opts.eachPage(context.Background(), func(ctx context.Context) (bool, error) {
		// Each page fits the timeout, all of them together do not.
		time.Sleep(30 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return false, err
		}
		pages++
		return pages < 5, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, pages)
}

func TestEachPageSlowPageTimesOut(t *testing.T) {
	opts := Options{Timeout: 20 * time.Millisecond}
	err := opts.eachPage(context.Background(), func(ctx context.Context) (bool, error) {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(5 * time.Second):
			return true, nil
		}
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEachPageStopsOnError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := Options{}.eachPage(context.Background(), func(ctx context.Context) (bool, error) {
		calls++
		return true, stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}
