package swap

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/coinkong/internal/types"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newSwap(id, user string, created time.Time) types.Swap {
	return types.Swap{
		ID:           id,
		UserID:       user,
		FromCurrency: "BTC",
		ToCurrency:   "ETH",
		USDAmount:    100,
		Status:       types.StatusPending,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestRegistry_InsertGetComplete(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(newSwap("KONG-1-1", "alice", epoch)))

	err := r.Insert(newSwap("KONG-1-1", "bob", epoch))
	assert.True(t, errors.Is(err, types.ErrDuplicateSwap))

	got, err := r.Get("KONG-1-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.True(t, r.IsActive("KONG-1-1"))
	assert.Equal(t, 1, r.ActiveCount())

	require.NoError(t, r.Complete("KONG-1-1"))
	assert.False(t, r.IsActive("KONG-1-1"))
	assert.Equal(t, 0, r.ActiveCount())
	assert.Equal(t, 1, r.CompletedCount())

	// still visible after the move, and completing twice is harmless
	_, err = r.Get("KONG-1-1")
	require.NoError(t, err)
	require.NoError(t, r.Complete("KONG-1-1"))

	// ids stay unique across both partitions
	err = r.Insert(newSwap("KONG-1-1", "carol", epoch))
	assert.True(t, errors.Is(err, types.ErrDuplicateSwap))
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("nope")
	assert.True(t, errors.Is(err, types.ErrSwapNotFound))
	assert.True(t, errors.Is(r.Complete("nope"), types.ErrSwapNotFound))

	_, err = r.Update("nope", func(*types.Swap) error { return nil })
	assert.True(t, errors.Is(err, types.ErrSwapNotFound))
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(newSwap("KONG-1-1", "alice", epoch)))

	got, err := r.Get("KONG-1-1")
	require.NoError(t, err)
	got.Status = types.StatusCompleted
	got.UserID = "mallory"

	again, err := r.Get("KONG-1-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, again.Status)
	assert.Equal(t, "alice", again.UserID)
}

func TestRegistry_UpdateEnforcesForwardTransitions(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(newSwap("KONG-1-1", "alice", epoch)))

	updated, err := r.Update("KONG-1-1", func(s *types.Swap) error {
		s.Status = types.StatusInitiating
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusInitiating, updated.Status)

	// skipping processing is rejected and nothing is written
	_, err = r.Update("KONG-1-1", func(s *types.Swap) error {
		s.Status = types.StatusCompleted
		s.DexName = "Uniswap"
		return nil
	})
	assert.True(t, errors.Is(err, types.ErrInvalidTransition))

	got, err := r.Get("KONG-1-1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusInitiating, got.Status)
	assert.Empty(t, got.DexName)

	// callback errors abort the update
	boom := errors.New("boom")
	_, err = r.Update("KONG-1-1", func(s *types.Swap) error {
		s.DexName = "Exolix"
		return boom
	})
	assert.ErrorIs(t, err, boom)
	got, _ = r.Get("KONG-1-1")
	assert.Empty(t, got.DexName)

	// terminal records are frozen
	_, err = r.Update("KONG-1-1", func(s *types.Swap) error {
		s.Status = types.StatusFailed
		return nil
	})
	require.NoError(t, err)
	_, err = r.Update("KONG-1-1", func(s *types.Swap) error {
		s.Status = types.StatusCompleted
		return nil
	})
	assert.True(t, errors.Is(err, types.ErrInvalidTransition))
}

func TestRegistry_AllAndByUser(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Insert(newSwap("KONG-3-3", "alice", epoch.Add(3*time.Second))))
	require.NoError(t, r.Insert(newSwap("KONG-1-1", "alice", epoch.Add(time.Second))))
	require.NoError(t, r.Insert(newSwap("KONG-2-2", "bob", epoch.Add(2*time.Second))))
	require.NoError(t, r.Complete("KONG-1-1"))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"KONG-1-1", "KONG-2-2", "KONG-3-3"}, ids(all))

	alice := r.ByUser("alice")
	assert.Equal(t, []string{"KONG-1-1", "KONG-3-3"}, ids(alice))
	assert.Empty(t, r.ByUser("nobody"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var gen IDGenerator

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := gen.Next(epoch)
			assert.NoError(t, r.Insert(newSwap(id, "alice", epoch)))
			_, _ = r.Get(id)
			_ = r.All()
			assert.NoError(t, r.Complete(id))
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.ActiveCount())
	assert.Equal(t, 50, r.CompletedCount())
}

func TestIDGenerator_Unique(t *testing.T) {
	var gen IDGenerator

	a := gen.Next(epoch)
	b := gen.Next(epoch)
	assert.NotEqual(t, a, b)
	assert.Equal(t, "KONG-1704110400-1", a)
	assert.Equal(t, "KONG-1704110400-2", b)
}

func ids(swaps []types.Swap) []string {
	out := make([]string, len(swaps))
	for i, s := range swaps {
		out[i] = s.ID
	}
	return out
}
