package trade

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSnapshotRoundTrip(t *testing.T) {
	env := newTestEnv(t, permissiveConfig())
	env.currency.Credit("alice", 200)
	env.currency.Credit("bob", 100)

	open := mustCreate(t, env, "alice", currencyOffer(50, 30))
	done := mustCreate(t, env, "alice", currencyOffer(20, 10))
	if _, err := env.engine.AcceptOffer("bob", done.OfferID); err != nil {
		t.Fatalf("AcceptOffer: %v", err)
	}

	snap := env.engine.Snapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var decoded EngineSnapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}

	restored := newTestEnv(t, permissiveConfig())
	restored.clock.now = env.clock.now
	restored.currency.Credit("alice", env.currency.Balance("alice"))
	restored.currency.Credit("bob", env.currency.Balance("bob"))
	restored.engine.Restore(&decoded)

	active := restored.engine.ActiveOffers()
	if len(active) != 1 || active[0].ID != open.OfferID {
		t.Fatalf("expected one restored active offer, got %+v", active)
	}
	history := restored.engine.History(0)
	if len(history) != 1 || history[0].Status != OfferCompleted {
		t.Fatalf("expected restored completed history, got %+v", history)
	}
	if _, err := restored.engine.AcceptOffer("bob", open.OfferID); err != nil {
		t.Fatalf("restored offer must remain acceptable: %v", err)
	}
}

func TestRestoreDropsMalformedOffers(t *testing.T) {
	env := newTestEnv(t, permissiveConfig())
	valid := fixtureOffer()
	sum, err := ComputeIntegrityHash(valid)
	if err != nil {
		t.Fatalf("ComputeIntegrityHash: %v", err)
	}
	valid.IntegrityHash = sum
	valid.ExpiresAt = env.clock.Now().Add(time.Hour).Unix()
	// ExpiresAt is outside the hash input, so refreshing it keeps the offer
	// verifiable.
	snap := &EngineSnapshot{
		ActiveOffers: []*Offer{
			valid,
			{ID: "no-hash", Creator: "alice", Status: OfferPending, OfferedCurrency: 5, RequestedCurrency: 5, CreatedAt: 1, ExpiresAt: valid.ExpiresAt},
			{ID: "", Creator: "alice", Status: OfferPending, OfferedCurrency: 5, RequestedCurrency: 5, CreatedAt: 1, ExpiresAt: valid.ExpiresAt, IntegrityHash: "aa"},
			nil,
		},
	}
	env.engine.Restore(snap)
	active := env.engine.ActiveOffers()
	if len(active) != 1 || active[0].ID != valid.ID {
		t.Fatalf("only the well-formed offer may survive restore, got %+v", active)
	}
}

func TestRestoreCancelsTamperedOffers(t *testing.T) {
	env := newTestEnv(t, permissiveConfig())
	tampered := fixtureOffer()
	sum, err := ComputeIntegrityHash(tampered)
	if err != nil {
		t.Fatalf("ComputeIntegrityHash: %v", err)
	}
	tampered.IntegrityHash = sum
	tampered.ExpiresAt = env.clock.Now().Add(time.Hour).Unix()
	tampered.RequestedCurrency = 9_999

	env.engine.Restore(&EngineSnapshot{ActiveOffers: []*Offer{tampered}})

	if len(env.engine.ActiveOffers()) != 0 {
		t.Fatalf("tampered offer must not enter the active set")
	}
	if got := env.currency.Balance(tampered.Creator); got != tampered.OfferedCurrency {
		t.Fatalf("escrow must be returned to the creator, balance %d", got)
	}
	if env.inventory.count(tampered.Creator, "oak-plank") != 4 {
		t.Fatalf("escrowed items must be returned to the creator")
	}
	if env.sink.seen(EventTypeIntegrityViolation) != 1 {
		t.Fatalf("expected an integrity violation event")
	}
	history := env.engine.History(1)
	if len(history) != 1 || history[0].Status != OfferCancelled {
		t.Fatalf("expected protective cancellation in history, got %+v", history)
	}
}

func TestRestoreSweepsExpiredOffers(t *testing.T) {
	env := newTestEnv(t, permissiveConfig())
	stale := fixtureOffer()
	stale.ExpiresAt = env.clock.Now().Add(-time.Minute).Unix()
	sum, err := ComputeIntegrityHash(stale)
	if err != nil {
		t.Fatalf("ComputeIntegrityHash: %v", err)
	}
	stale.IntegrityHash = sum

	env.engine.Restore(&EngineSnapshot{ActiveOffers: []*Offer{stale}})

	if len(env.engine.ActiveOffers()) != 0 {
		t.Fatalf("expired offer must be swept on load")
	}
	if _, err := env.engine.AcceptOffer("bob", stale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("swept offer must observe NotFound, got %v", err)
	}
	history := env.engine.History(1)
	if len(history) != 1 || history[0].Status != OfferExpired {
		t.Fatalf("expected expired entry in history, got %+v", history)
	}
}

func TestRestoreCarriesLimitCounters(t *testing.T) {
	cfg := permissiveConfig()
	cfg.Tiers = map[string]TierLimits{"novice": {DailyTrades: 1, MaxTradeValue: 1000}}
	env := newTestEnv(t, cfg)
	env.currency.Credit("alice", 100)
	mustCreate(t, env, "alice", currencyOffer(10, 5))
	snap := env.engine.Snapshot()
	if snap.DailyTradeCount != 1 || snap.LastTradeDate == "" {
		t.Fatalf("snapshot must carry daily usage, got %+v", snap)
	}

	restored := newTestEnv(t, cfg)
	restored.clock.now = env.clock.now
	restored.currency.Credit("alice", 1000)
	restored.engine.Restore(snap)
	if _, err := restored.engine.CreateOffer("alice", currencyOffer(10, 5)); !errors.Is(err, ErrPolicy) {
		t.Fatalf("restored daily counter must still bind, got %v", err)
	}
}
