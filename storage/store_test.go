package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"tradepost/native/trade"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "tradepost.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSnapshotPersistence(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.False(t, ok, "fresh store must report no snapshot")

	snap := &trade.EngineSnapshot{
		ActiveOffers: []*trade.Offer{{
			ID:                "offer-1",
			Creator:           "alice",
			Status:            trade.OfferPending,
			OfferedCurrency:   50,
			RequestedCurrency: 30,
			CreatedAt:         100,
			ExpiresAt:         200,
			IntegrityHash:     "abcd",
		}},
		DailyTradeCount: 3,
		LastTradeDate:   "2026-08-30",
		ActorLimits: map[string]trade.ActorLimitState{
			"alice": {DailyTradeCount: 3, LastTradeDate: "2026-08-30"},
		},
	}
	require.NoError(t, store.SaveSnapshot(ctx, snap))

	loaded, ok, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, snap, loaded)

	// Saving again overwrites the single row.
	snap.DailyTradeCount = 4
	require.NoError(t, store.SaveSnapshot(ctx, snap))
	loaded, ok, err = store.LoadSnapshot(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 4, loaded.DailyTradeCount)
}

func TestAuditLogAppendAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i, status := range []trade.OfferStatus{trade.OfferCompleted, trade.OfferCancelled, trade.OfferExpired} {
		offer := &trade.Offer{
			ID:              "offer-" + string(rune('a'+i)),
			Creator:         "alice",
			Status:          status,
			OfferedCurrency: int64(10 * (i + 1)),
			Fee:             int64(i),
			CreatedAt:       100,
			ExpiresAt:       200,
			IntegrityHash:   "abcd",
		}
		require.NoError(t, store.AppendAudit(ctx, offer))
	}

	entries, err := store.AuditLog(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, trade.OfferExpired, entries[0].Offer.Status, "newest entry first")
	require.Equal(t, trade.OfferCancelled, entries[1].Offer.Status)

	all, err := store.AuditLog(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}
