package ackstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, err := Open("", nil)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Has(ctx, "survey-2024")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Add(ctx, "survey-2024"))
	require.NoError(t, s.Add(ctx, "survey-2024"))
	require.NoError(t, s.Add(ctx, "beta-feedback"))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"beta-feedback", "survey-2024"}, ids)

	ok, err = s.Has(ctx, "survey-2024")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEmptyIDIsRejected(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)
	defer s.Close()
	require.Error(t, s.Add(context.Background(), ""))
}

func TestAcksSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, "survey-2024"))
	require.NoError(t, s.Close())

	s, err = Open(dir, nil)
	require.NoError(t, err)
	defer s.Close()
	ok, err := s.Has(ctx, "survey-2024")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConcurrentAddsKeepEveryID(t *testing.T) {
	ctx := context.Background()
	s, err := Open("", nil)
	require.NoError(t, err)
	defer s.Close()

	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	errs := make(chan error, len(ids))
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			errs <- s.Add(ctx, id)
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, ids, got)
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	s, err := Open("", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.List(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Add(context.Background(), "x"), ErrClosed)
}
