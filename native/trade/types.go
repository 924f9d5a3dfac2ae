package trade

import (
	"fmt"
	"strings"
)

// OfferStatus represents the lifecycle states of a trade offer. Pending is the
// only non-terminal state; an offer transitions out of it exactly once.
type OfferStatus string

const (
	OfferPending   OfferStatus = "pending"
	OfferCompleted OfferStatus = "completed"
	OfferCancelled OfferStatus = "cancelled"
	OfferExpired   OfferStatus = "expired"
)

// Valid reports whether the status value is within the supported range.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferPending, OfferCompleted, OfferCancelled, OfferExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s OfferStatus) Terminal() bool {
	return s == OfferCompleted || s == OfferCancelled || s == OfferExpired
}

// ItemStack identifies a discrete inventory item and a positive quantity.
type ItemStack struct {
	ItemID   string `json:"itemId"`
	Quantity int64  `json:"quantity"`
}

// OfferProposal carries the caller-supplied half of a new offer. The engine
// derives everything else (identifier, timestamps, checksum).
type OfferProposal struct {
	OfferedItems      []ItemStack `json:"offeredItems"`
	OfferedCurrency   int64       `json:"offeredCurrency"`
	RequestedItems    []ItemStack `json:"requestedItems"`
	RequestedCurrency int64       `json:"requestedCurrency"`
}

// Offer captures the immutable definition and runtime status of a two-sided
// exchange held in escrow. The integrity hash covers the immutable fields and
// is computed once at creation, never recomputed afterwards.
type Offer struct {
	ID                string      `json:"id"`
	Creator           string      `json:"creator"`
	Status            OfferStatus `json:"status"`
	OfferedItems      []ItemStack `json:"offeredItems"`
	OfferedCurrency   int64       `json:"offeredCurrency"`
	RequestedItems    []ItemStack `json:"requestedItems"`
	RequestedCurrency int64       `json:"requestedCurrency"`
	CreatedAt         int64       `json:"createdAt"`
	ExpiresAt         int64       `json:"expiresAt"`
	IntegrityHash     string      `json:"integrityHash"`
	Fee               int64       `json:"fee,omitempty"`
	ResolvedAt        int64       `json:"resolvedAt,omitempty"`
}

// Clone returns a deep copy of the offer so callers can safely mutate the copy
// without affecting the stored instance.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.OfferedItems = cloneItems(o.OfferedItems)
	clone.RequestedItems = cloneItems(o.RequestedItems)
	return &clone
}

func cloneItems(items []ItemStack) []ItemStack {
	if items == nil {
		return nil
	}
	out := make([]ItemStack, len(items))
	copy(out, items)
	return out
}

// SanitizeOffer validates the structural invariants of a stored offer and
// returns a cloned instance. Offers failing sanitation are treated as corrupt
// persisted state and must not enter the active set.
func SanitizeOffer(o *Offer) (*Offer, error) {
	if o == nil {
		return nil, fmt.Errorf("trade: nil offer")
	}
	clone := o.Clone()
	if strings.TrimSpace(clone.ID) == "" {
		return nil, fmt.Errorf("trade: offer missing identifier")
	}
	if strings.TrimSpace(clone.Creator) == "" {
		return nil, fmt.Errorf("trade: offer missing creator")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("trade: invalid offer status %q", clone.Status)
	}
	if clone.OfferedCurrency < 0 || clone.RequestedCurrency < 0 {
		return nil, fmt.Errorf("trade: negative currency amount")
	}
	for _, stack := range clone.OfferedItems {
		if stack.Quantity <= 0 {
			return nil, fmt.Errorf("trade: non-positive quantity for item %q", stack.ItemID)
		}
	}
	for _, stack := range clone.RequestedItems {
		if stack.Quantity <= 0 {
			return nil, fmt.Errorf("trade: non-positive quantity for item %q", stack.ItemID)
		}
	}
	if !hasAssets(clone.OfferedItems, clone.OfferedCurrency) || !hasAssets(clone.RequestedItems, clone.RequestedCurrency) {
		return nil, fmt.Errorf("trade: offer must carry assets on both sides")
	}
	if clone.CreatedAt <= 0 || clone.ExpiresAt <= 0 {
		return nil, fmt.Errorf("trade: offer missing timestamps")
	}
	if strings.TrimSpace(clone.IntegrityHash) == "" {
		return nil, fmt.Errorf("trade: offer missing integrity hash")
	}
	return clone, nil
}

func hasAssets(items []ItemStack, currency int64) bool {
	return currency > 0 || len(items) > 0
}
