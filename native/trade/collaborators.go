package trade

// InventoryLedger is the engine's view of discrete item storage. The ledger is
// owned by the surrounding game; the engine only queries and moves quantities.
type InventoryLedger interface {
	HasQuantity(actorID, itemID string, qty int64) bool
	Remove(actorID, itemID string, qty int64) error
	Add(actorID, itemID string, qty int64)
}

// CurrencyLedger is the engine's view of fungible currency balances.
type CurrencyLedger interface {
	Credit(actorID string, amount int64)
	// Debit removes the amount from the actor's balance and reports whether
	// the balance was sufficient. Insufficient balances leave it untouched.
	Debit(actorID string, amount int64) bool
	Balance(actorID string) int64
}

// TierProvider resolves an actor's current progression tier for the limits
// policy.
type TierProvider interface {
	CurrentTier(actorID string) string
}
