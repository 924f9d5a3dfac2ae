package trade

import "testing"

func TestOfferCloneIsDetached(t *testing.T) {
	offer := fixtureOffer()
	clone := offer.Clone()
	clone.OfferedItems[0].Quantity = 99
	clone.Status = OfferCompleted
	if offer.OfferedItems[0].Quantity != 4 || offer.Status != OfferPending {
		t.Fatalf("mutating the clone must not affect the original")
	}
}

func TestSanitizeOfferRejectsCorruptState(t *testing.T) {
	cases := map[string]func(*Offer){
		"missing id":         func(o *Offer) { o.ID = "" },
		"missing creator":    func(o *Offer) { o.Creator = " " },
		"bad status":         func(o *Offer) { o.Status = "haggling" },
		"negative currency":  func(o *Offer) { o.RequestedCurrency = -1 },
		"zero quantity":      func(o *Offer) { o.OfferedItems[0].Quantity = 0 },
		"empty offered side": func(o *Offer) { o.OfferedItems = nil; o.OfferedCurrency = 0 },
		"missing timestamps": func(o *Offer) { o.CreatedAt = 0 },
		"missing hash":       func(o *Offer) { o.IntegrityHash = "" },
	}
	for name, corrupt := range cases {
		offer := fixtureOffer()
		offer.IntegrityHash = "deadbeef"
		corrupt(offer)
		if _, err := SanitizeOffer(offer); err == nil {
			t.Fatalf("%s: expected sanitation failure", name)
		}
	}
	valid := fixtureOffer()
	valid.IntegrityHash = "deadbeef"
	if _, err := SanitizeOffer(valid); err != nil {
		t.Fatalf("well-formed offer must sanitize: %v", err)
	}
}

func TestStatusTerminality(t *testing.T) {
	if OfferPending.Terminal() {
		t.Fatalf("pending is not terminal")
	}
	for _, status := range []OfferStatus{OfferCompleted, OfferCancelled, OfferExpired} {
		if !status.Terminal() || !status.Valid() {
			t.Fatalf("%s must be a valid terminal status", status)
		}
	}
}
