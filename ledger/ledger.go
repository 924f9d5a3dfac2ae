// Package ledger provides the actor-keyed asset ledgers and tier provider the
// trade engine depends on. The engine treats these as external collaborators;
// the implementations here back the standalone daemon and tests.
package ledger

import (
	"fmt"
	"sync"
)

// Inventory is a mutex-guarded, actor-keyed store of discrete item
// quantities.
type Inventory struct {
	mu    sync.RWMutex
	items map[string]map[string]int64
}

// NewInventory returns an empty inventory ledger.
func NewInventory() *Inventory {
	return &Inventory{items: make(map[string]map[string]int64)}
}

// Seed adds quantities to an actor's inventory, used for bootstrap and tests.
func (inv *Inventory) Seed(actorID string, items map[string]int64) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for itemID, qty := range items {
		inv.addLocked(actorID, itemID, qty)
	}
}

// HasQuantity reports whether the actor holds at least qty of the item.
func (inv *Inventory) HasQuantity(actorID, itemID string, qty int64) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return inv.items[actorID][itemID] >= qty
}

// Remove debits the quantity from the actor, failing without mutation when the
// holding is insufficient.
func (inv *Inventory) Remove(actorID, itemID string, qty int64) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	held := inv.items[actorID][itemID]
	if held < qty {
		return fmt.Errorf("ledger: actor %s holds %d of %s, need %d", actorID, held, itemID, qty)
	}
	inv.items[actorID][itemID] = held - qty
	if inv.items[actorID][itemID] == 0 {
		delete(inv.items[actorID], itemID)
	}
	return nil
}

// Add credits the quantity to the actor.
func (inv *Inventory) Add(actorID, itemID string, qty int64) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.addLocked(actorID, itemID, qty)
}

func (inv *Inventory) addLocked(actorID, itemID string, qty int64) {
	if qty <= 0 {
		return
	}
	if inv.items[actorID] == nil {
		inv.items[actorID] = make(map[string]int64)
	}
	inv.items[actorID][itemID] += qty
}

// Items returns a copy of the actor's holdings.
func (inv *Inventory) Items(actorID string) map[string]int64 {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	out := make(map[string]int64, len(inv.items[actorID]))
	for itemID, qty := range inv.items[actorID] {
		out[itemID] = qty
	}
	return out
}

// Currency is a mutex-guarded, actor-keyed store of fungible currency
// balances.
type Currency struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// NewCurrency returns an empty currency ledger.
func NewCurrency() *Currency {
	return &Currency{balances: make(map[string]int64)}
}

// Credit adds the amount to the actor's balance. Non-positive amounts are
// ignored.
func (c *Currency) Credit(actorID string, amount int64) {
	if amount <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[actorID] += amount
}

// Debit removes the amount and reports whether the balance was sufficient. An
// insufficient balance is left untouched.
func (c *Currency) Debit(actorID string, amount int64) bool {
	if amount <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.balances[actorID] < amount {
		return false
	}
	c.balances[actorID] -= amount
	return true
}

// Balance returns the actor's current balance.
func (c *Currency) Balance(actorID string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balances[actorID]
}

// StaticTiers resolves actor tiers from a fixed assignment table with a
// fallback for unassigned actors.
type StaticTiers struct {
	assignments map[string]string
	fallback    string
}

// NewStaticTiers builds a provider over the assignment table.
func NewStaticTiers(assignments map[string]string, fallback string) *StaticTiers {
	copied := make(map[string]string, len(assignments))
	for actor, tier := range assignments {
		copied[actor] = tier
	}
	return &StaticTiers{assignments: copied, fallback: fallback}
}

// CurrentTier returns the actor's assigned tier, or the fallback.
func (s *StaticTiers) CurrentTier(actorID string) string {
	if tier, ok := s.assignments[actorID]; ok {
		return tier
	}
	return s.fallback
}
