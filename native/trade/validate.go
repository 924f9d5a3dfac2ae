package trade

import (
	"fmt"
	"regexp"
)

// Structural ceilings applied before any policy or ledger check. A proposal
// violating any single rule is rejected whole.
const (
	maxItemsPerSide = 16
	maxItemIDLen    = 64
	maxItemQuantity = 10_000
)

var itemIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Validator performs structural validation of offer proposals. It knows
// nothing about ledger balances, limits or timing.
type Validator struct{}

// Validate returns the list of structural violations found in the proposal.
// An empty slice means the proposal is well formed.
func (Validator) Validate(p OfferProposal) []string {
	var faults []string
	faults = appendItemFaults(faults, "offered", p.OfferedItems)
	faults = appendItemFaults(faults, "requested", p.RequestedItems)
	if p.OfferedCurrency < 0 {
		faults = append(faults, "offered currency must be non-negative")
	}
	if p.RequestedCurrency < 0 {
		faults = append(faults, "requested currency must be non-negative")
	}
	if !hasAssets(p.OfferedItems, p.OfferedCurrency) {
		faults = append(faults, "offer must include at least one offered asset")
	}
	if !hasAssets(p.RequestedItems, p.RequestedCurrency) {
		faults = append(faults, "offer must include at least one requested asset")
	}
	return faults
}

func appendItemFaults(faults []string, side string, items []ItemStack) []string {
	if len(items) > maxItemsPerSide {
		return append(faults, fmt.Sprintf("%s items exceed limit of %d", side, maxItemsPerSide))
	}
	for i, stack := range items {
		if stack.ItemID == "" || len(stack.ItemID) > maxItemIDLen || !itemIDPattern.MatchString(stack.ItemID) {
			faults = append(faults, fmt.Sprintf("%s item %d has malformed identifier", side, i))
		}
		if stack.Quantity <= 0 || stack.Quantity > maxItemQuantity {
			faults = append(faults, fmt.Sprintf("%s item %d has quantity outside 1..%d", side, i, maxItemQuantity))
		}
	}
	return faults
}
