package trade

// EngineSnapshot is the persisted shape of the engine's full state. Active
// offers carry their integrity hashes; history is bounded to the most recent
// entries. The scalar daily fields track engine-wide usage for the current
// local day, while ActorLimits carries the per-actor counters the policy
// enforces.
type EngineSnapshot struct {
	ActiveOffers    []*Offer                   `json:"activeOffers"`
	History         []*Offer                   `json:"history"`
	DailyTradeCount int                        `json:"dailyTradeCount"`
	LastTradeDate   string                     `json:"lastTradeDate"`
	ActorLimits     map[string]ActorLimitState `json:"actorLimits,omitempty"`
}

// Snapshot captures a deep copy of the engine's current state, suitable for
// persistence. The copy is detached: mutating it never affects the engine.
func (e *Engine) Snapshot() *EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := &EngineSnapshot{
		ActiveOffers:    e.ledger.activeList(),
		History:         e.ledger.historyList(0),
		DailyTradeCount: e.dailyTradeCount,
		LastTradeDate:   e.lastTradeDate,
		ActorLimits:     e.limits.States(),
	}
	// historyList returns newest first; persist oldest first so appends on
	// restore keep chronological order.
	for i, j := 0, len(snap.History)-1; i < j; i, j = i+1, j-1 {
		snap.History[i], snap.History[j] = snap.History[j], snap.History[i]
	}
	return snap
}

// Restore replaces the engine's state with the persisted snapshot. Offers that
// fail sanitation or lack an integrity hash are dropped before the active set
// is used; offers whose stored hash no longer matches their fields are forced
// through protective cancellation so escrowed assets are returned exactly
// once. An expiry sweep runs immediately after load.
func (e *Engine) Restore(snap *EngineSnapshot) {
	if snap == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger = NewEscrowLedger(e.cfg.HistoryCap)
	for _, raw := range snap.History {
		offer, err := SanitizeOffer(raw)
		if err != nil || !offer.Status.Terminal() {
			continue
		}
		e.ledger.history = append(e.ledger.history, offer)
	}
	if excess := len(e.ledger.history) - e.ledger.historyCap; excess > 0 {
		e.ledger.history = append([]*Offer(nil), e.ledger.history[excess:]...)
	}
	var tampered []*Offer
	for _, raw := range snap.ActiveOffers {
		offer, err := SanitizeOffer(raw)
		if err != nil || offer.Status != OfferPending {
			continue
		}
		if !VerifyIntegrity(offer) {
			tampered = append(tampered, offer)
			continue
		}
		e.ledger.insert(offer)
	}
	for _, offer := range tampered {
		e.ledger.insert(offer)
		e.protectiveCancelLocked(offer, "integrity check failed on restore")
	}
	e.dailyTradeCount = snap.DailyTradeCount
	e.lastTradeDate = snap.LastTradeDate
	e.limits.RestoreStates(snap.ActorLimits)
	e.sweepLocked(e.now())
}
