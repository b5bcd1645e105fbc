// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package character_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/gatehouse/internal/character"
	"github.com/holomush/gatehouse/pkg/errutil"
)

// memRepo is an in-memory character.Repository with real version checks.
// beforeSwap, when set, runs between the read and the conditional write.
type memRepo struct {
	mu         sync.Mutex
	rows       map[string]*character.Character
	beforeSwap func()
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*character.Character)}
}

func (r *memRepo) Get(_ context.Context, name string) (*character.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[name]
	if !ok {
		return nil, character.ErrNotFound
	}
	cp := *row
	cp.Document, _ = row.Document.Clone()
	return &cp, nil
}

func (r *memRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[name]
	return ok, nil
}

func (r *memRepo) Create(_ context.Context, char *character.Character) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[char.Name]; ok {
		return character.ErrDuplicateKey
	}
	cp := *char
	cp.Version = 1
	r.rows[char.Name] = &cp
	return nil
}

func (r *memRepo) ListByAccount(_ context.Context, accountID string) ([]character.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []character.Summary
	for _, row := range r.rows {
		if row.AccountID == accountID {
			out = append(out, character.Summary{Name: row.Name})
		}
	}
	return out, nil
}

func (r *memRepo) ReplaceDocument(_ context.Context, name string, doc character.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[name]
	if !ok {
		return character.ErrNotFound
	}
	row.Document = doc
	row.Version++
	return nil
}

func (r *memRepo) CompareAndSwap(_ context.Context, name string, version int64, doc character.Document) (*character.Character, error) {
	if r.beforeSwap != nil {
		r.beforeSwap()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[name]
	if !ok || row.Version != version {
		return nil, character.ErrVersionConflict
	}
	row.Document = doc
	row.Version++
	row.UpdatedAt = time.Now()
	cp := *row
	return &cp, nil
}

func addGold(n float64) character.Mutation {
	return func(doc character.Document) (character.Document, error) {
		gold, _ := doc["gold"].(float64)
		doc["gold"] = gold + n
		return doc, nil
	}
}

func seed(t *testing.T, repo *memRepo, name string) {
	t.Helper()
	doc, err := character.NewDocument(name, character.SexMale)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &character.Character{Name: name, AccountID: "a1", Document: doc}))
}

func newUpdater(t *testing.T, repo character.Repository, opts ...character.UpdaterOption) *character.Updater {
	t.Helper()
	opts = append([]character.UpdaterOption{character.WithBaseDelay(time.Millisecond)}, opts...)
	u, err := character.NewUpdater(repo, opts...)
	require.NoError(t, err)
	return u
}

func TestNewUpdater_NilRepository(t *testing.T) {
	u, err := character.NewUpdater(nil)
	require.Error(t, err)
	assert.Nil(t, u)
}

func TestUpdater_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("applies mutation and bumps version", func(t *testing.T) {
		repo := newMemRepo()
		seed(t, repo, "bob")

		updated, err := newUpdater(t, repo).Update(ctx, "Bob", addGold(5))
		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version)
		assert.Equal(t, float64(5), updated.Document["gold"])

		stored, err := repo.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, float64(5), stored.Document["gold"])
	})

	t.Run("retries after a concurrent write", func(t *testing.T) {
		repo := newMemRepo()
		seed(t, repo, "bob")

		interfered := false
		repo.beforeSwap = func() {
			if interfered {
				return
			}
			interfered = true
			require.NoError(t, repo.ReplaceDocument(ctx, "bob", character.Document{"gold": float64(100)}))
		}

		calls := 0
		updated, err := newUpdater(t, repo).Update(ctx, "bob", func(doc character.Document) (character.Document, error) {
			calls++
			return addGold(1)(doc)
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, float64(101), updated.Document["gold"])
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		repo := newMemRepo()
		seed(t, repo, "bob")
		repo.beforeSwap = func() {
			require.NoError(t, repo.ReplaceDocument(ctx, "bob", character.Document{"gold": float64(0)}))
		}

		conflicts := 0
		u := newUpdater(t, repo,
			character.WithMaxRetries(2),
			character.WithConflictHook(func(string) { conflicts++ }),
		)
		_, err := u.Update(ctx, "bob", addGold(1))
		errutil.AssertErrorCode(t, err, "CHARACTER_UPDATE_CONFLICT")
		assert.ErrorIs(t, err, character.ErrVersionConflict)
		errutil.AssertErrorContext(t, err, "attempts", 3)
		assert.Equal(t, 3, conflicts)
	})

	t.Run("missing character", func(t *testing.T) {
		_, err := newUpdater(t, newMemRepo()).Update(ctx, "nobody", addGold(1))
		errutil.AssertErrorCode(t, err, "CHARACTER_NOT_FOUND")
		assert.ErrorIs(t, err, character.ErrNotFound)
	})

	t.Run("mutation error is not retried and nothing is written", func(t *testing.T) {
		repo := newMemRepo()
		seed(t, repo, "bob")

		calls := 0
		_, err := newUpdater(t, repo).Update(ctx, "bob", func(doc character.Document) (character.Document, error) {
			calls++
			doc["gold"] = float64(999)
			return nil, errors.New("not enough gold")
		})
		errutil.AssertErrorCode(t, err, "CHARACTER_MUTATION_FAILED")
		assert.Equal(t, 1, calls)

		stored, err := repo.Get(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, float64(0), stored.Document["gold"])
		assert.Equal(t, int64(1), stored.Version)
	})

	t.Run("nil document is rejected", func(t *testing.T) {
		repo := newMemRepo()
		seed(t, repo, "bob")
		_, err := newUpdater(t, repo).Update(ctx, "bob", func(character.Document) (character.Document, error) {
			return nil, nil
		})
		errutil.AssertErrorCode(t, err, "CHARACTER_MUTATION_FAILED")
	})

	t.Run("cancelled context stops the update", func(t *testing.T) {
		repo := newMemRepo()
		seed(t, repo, "bob")
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newUpdater(t, repo).Update(cctx, "bob", addGold(1))
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestUpdater_ConcurrentIncrementsAreNotLost(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	seed(t, repo, "bob")
	u := newUpdater(t, repo, character.WithMaxRetries(100))

	const writers = 10
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := u.Update(ctx, "bob", addGold(1))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	stored, err := repo.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, float64(writers), stored.Document["gold"])
	assert.Equal(t, int64(writers+1), stored.Version)
}
