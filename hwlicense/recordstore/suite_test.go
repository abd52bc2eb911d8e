package recordstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedableStore is a RecordStore the suite can populate.
type seedableStore interface {
	RecordStore
	Insert(ctx context.Context, doc Document) error
}

func strp(s string) *string { return &s }

func intp(v int) *int { return &v }

// runStoreSuite checks the RecordStore contract against a fresh store per
// subtest.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) seedableStore) {
	ctx := context.Background()

	seed := func(t *testing.T, docs ...Document) seedableStore {
		t.Helper()
		s := newStore(t)
		for _, d := range docs {
			require.NoError(t, s.Insert(ctx, d))
		}
		return s
	}

	t.Run("FindMissing", func(t *testing.T) {
		s := seed(t)
		rec, err := s.Find(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("FindKeepsHWIDStates", func(t *testing.T) {
		s := seed(t,
			Document{Key: "absent"},
			Document{Key: "open", HWID: strp("")},
			Document{Key: "bound", HWID: strp("M1"), DurationDays: intp(30), ActivationDate: strp("2024-01-01")},
		)

		rec, err := s.Find(ctx, "absent")
		require.NoError(t, err)
		assert.Equal(t, Unrestricted(), rec.HWID)
		assert.Nil(t, rec.DurationDays)
		assert.Nil(t, rec.ActivationDate)

		rec, err = s.Find(ctx, "open")
		require.NoError(t, err)
		assert.Equal(t, Open(), rec.HWID)

		rec, err = s.Find(ctx, "bound")
		require.NoError(t, err)
		assert.Equal(t, BoundTo("M1"), rec.HWID)
		require.NotNil(t, rec.DurationDays)
		assert.Equal(t, 30, *rec.DurationDays)
		require.NotNil(t, rec.ActivationDate)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *rec.ActivationDate)
	})

	t.Run("BindOpen", func(t *testing.T) {
		s := seed(t, Document{Key: "k", HWID: strp("")})

		ok, err := s.UpdateIfFieldEmpty(ctx, "k", FieldHWID, "M1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.UpdateIfFieldEmpty(ctx, "k", FieldHWID, "M2")
		require.NoError(t, err)
		assert.False(t, ok)

		rec, err := s.Find(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, BoundTo("M1"), rec.HWID)
	})

	t.Run("BindNeverTouchesUnrestricted", func(t *testing.T) {
		s := seed(t, Document{Key: "k"})

		ok, err := s.UpdateIfFieldEmpty(ctx, "k", FieldHWID, "M1")
		require.NoError(t, err)
		assert.False(t, ok)

		rec, err := s.Find(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, Unrestricted(), rec.HWID)
	})

	t.Run("UpdateMissingKey", func(t *testing.T) {
		s := seed(t)
		ok, err := s.UpdateIfFieldEmpty(ctx, "missing", FieldHWID, "M1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("StampActivationOnce", func(t *testing.T) {
		s := seed(t, Document{Key: "k", HWID: strp("M1"), DurationDays: intp(30)})

		ok, err := s.UpdateIfFieldEmpty(ctx, "k", FieldActivationDate, "2024-03-05")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.UpdateIfFieldEmpty(ctx, "k", FieldActivationDate, "2024-04-01")
		require.NoError(t, err)
		assert.False(t, ok)

		rec, err := s.Find(ctx, "k")
		require.NoError(t, err)
		require.NotNil(t, rec.ActivationDate)
		assert.Equal(t, "2024-03-05", FormatDate(*rec.ActivationDate))
	})

	t.Run("RejectsBadValues", func(t *testing.T) {
		s := seed(t, Document{Key: "k", HWID: strp("")})

		_, err := s.UpdateIfFieldEmpty(ctx, "k", FieldHWID, "")
		assert.ErrorIs(t, err, ErrEmptyValue)

		_, err = s.UpdateIfFieldEmpty(ctx, "k", FieldActivationDate, "05/03/2024")
		assert.Error(t, err)

		rec, err := s.Find(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, Open(), rec.HWID)
		assert.Nil(t, rec.ActivationDate)
	})

	t.Run("ConcurrentBindSingleWinner", func(t *testing.T) {
		s := seed(t, Document{Key: "k", HWID: strp("")})

		const workers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(hwid string) {
				defer wg.Done()
				ok, err := s.UpdateIfFieldEmpty(ctx, "k", FieldHWID, hwid)
				if err != nil {
					t.Errorf("update: %v", err)
					return
				}
				if ok {
					mu.Lock()
					winners = append(winners, hwid)
					mu.Unlock()
				}
			}(fmt.Sprintf("M%d", i))
		}
		wg.Wait()

		require.Len(t, winners, 1)
		rec, err := s.Find(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, BoundTo(winners[0]), rec.HWID)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, seed(t).Ping(ctx))
	})
}
