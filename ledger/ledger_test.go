package ledger

import "testing"

func TestInventoryRemoveFailsWithoutMutation(t *testing.T) {
	inv := NewInventory()
	inv.Seed("alice", map[string]int64{"wood": 5})

	if err := inv.Remove("alice", "wood", 6); err == nil {
		t.Fatalf("expected insufficient-quantity error")
	}
	if !inv.HasQuantity("alice", "wood", 5) {
		t.Fatalf("failed remove must not mutate holdings")
	}
	if err := inv.Remove("alice", "wood", 5); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if inv.HasQuantity("alice", "wood", 1) {
		t.Fatalf("holding should be exhausted")
	}
}

func TestCurrencyDebitBoundary(t *testing.T) {
	cur := NewCurrency()
	cur.Credit("alice", 100)

	if cur.Debit("alice", 101) {
		t.Fatalf("debit above balance must fail")
	}
	if cur.Balance("alice") != 100 {
		t.Fatalf("failed debit must not mutate the balance")
	}
	if !cur.Debit("alice", 100) {
		t.Fatalf("debit at balance must succeed")
	}
	if cur.Balance("alice") != 0 {
		t.Fatalf("expected empty balance, got %d", cur.Balance("alice"))
	}
}

func TestStaticTiersFallback(t *testing.T) {
	tiers := NewStaticTiers(map[string]string{"alice": "magnate"}, "novice")
	if tiers.CurrentTier("alice") != "magnate" {
		t.Fatalf("assigned tier must win")
	}
	if tiers.CurrentTier("stranger") != "novice" {
		t.Fatalf("unassigned actors resolve to the fallback tier")
	}
}
