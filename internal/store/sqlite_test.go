package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "data", "chatbot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_SaveEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.SaveEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, Saved, res)

	res, err = s.SaveEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, res)

	// Addresses are unique regardless of case.
	res, err = s.SaveEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, res)

	n, err := s.CountEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStore_ConcurrentSameEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	results := make(chan SaveResult, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.SaveEmail(ctx, "race@example.com")
			if err == nil {
				results <- res
			}
		}()
	}
	wg.Wait()
	close(results)

	saved := 0
	for res := range results {
		if res == Saved {
			saved++
		}
	}
	assert.LessOrEqual(t, saved, 1)

	n, err := s.CountEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSQLiteStore_RejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	_, err := s.SaveEmail(context.Background(), "  ")
	assert.Error(t, err)
}

func TestSQLiteStore_PingAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbot.db")
	s, err := NewSQLite("sqlite://" + path)
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	_, err = s.SaveEmail(context.Background(), "keep@example.com")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	res, err := reopened.SaveEmail(context.Background(), "keep@example.com")
	require.NoError(t, err)
	assert.Equal(t, AlreadyPresent, res)
}

func TestDisabledRepository(t *testing.T) {
	var repo Repository = Disabled{}
	res, err := repo.SaveEmail(context.Background(), "jane@example.com")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Equal(t, AlreadyPresent, res)
	assert.Error(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.Close())
}

func TestSaveResultString(t *testing.T) {
	assert.Equal(t, "saved", Saved.String())
	assert.Equal(t, "already_present", AlreadyPresent.String())
}
