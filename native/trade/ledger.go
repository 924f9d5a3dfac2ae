package trade

import "sort"

// EscrowLedger is the authoritative collection of active offers and their
// bounded resolution history. It owns the collections but not the lock: the
// engine serialises every check-then-commit sequence around it.
type EscrowLedger struct {
	active     map[string]*Offer
	history    []*Offer
	historyCap int
}

// NewEscrowLedger constructs an empty ledger retaining at most historyCap
// resolved offers.
func NewEscrowLedger(historyCap int) *EscrowLedger {
	if historyCap <= 0 {
		historyCap = 50
	}
	return &EscrowLedger{
		active:     make(map[string]*Offer),
		historyCap: historyCap,
	}
}

func (l *EscrowLedger) get(id string) *Offer {
	return l.active[id]
}

func (l *EscrowLedger) insert(offer *Offer) {
	l.active[offer.ID] = offer
}

// resolve removes the offer from the active set and archives it under the
// terminal status. Removal is the last act of a state transition: any later
// lookup of the id observes "not found".
func (l *EscrowLedger) resolve(offer *Offer, status OfferStatus, resolvedAt int64) {
	offer.Status = status
	offer.ResolvedAt = resolvedAt
	delete(l.active, offer.ID)
	l.history = append(l.history, offer)
	if excess := len(l.history) - l.historyCap; excess > 0 {
		l.history = append([]*Offer(nil), l.history[excess:]...)
	}
}

// activeList returns clones of the active offers ordered oldest first.
func (l *EscrowLedger) activeList() []*Offer {
	out := make([]*Offer, 0, len(l.active))
	for _, offer := range l.active {
		out = append(out, offer.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// historyList returns clones of the most recently resolved offers, newest
// first, capped at limit when limit is positive.
func (l *EscrowLedger) historyList(limit int) []*Offer {
	n := len(l.history)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*Offer, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, l.history[i].Clone())
	}
	return out
}
