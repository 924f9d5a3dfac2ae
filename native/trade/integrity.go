package trade

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// ComputeIntegrityHash derives the tamper-evidence checksum over an offer's
// immutable fields: identifier, creator, both asset lists, both currency
// amounts and the creation timestamp. Field order is fixed, item order is the
// stored order, so the digest is deterministic for a given offer.
func ComputeIntegrityHash(o *Offer) (string, error) {
	if o == nil {
		return "", fmt.Errorf("trade: nil offer")
	}
	buf := bytes.NewBuffer(nil)
	if err := writeDelimited(buf, []byte(o.ID)); err != nil {
		return "", err
	}
	if err := writeDelimited(buf, []byte(o.Creator)); err != nil {
		return "", err
	}
	if err := writeItems(buf, o.OfferedItems); err != nil {
		return "", err
	}
	if err := binary.Write(buf, binary.BigEndian, o.OfferedCurrency); err != nil {
		return "", err
	}
	if err := writeItems(buf, o.RequestedItems); err != nil {
		return "", err
	}
	if err := binary.Write(buf, binary.BigEndian, o.RequestedCurrency); err != nil {
		return "", err
	}
	if err := binary.Write(buf, binary.BigEndian, o.CreatedAt); err != nil {
		return "", err
	}
	sum := blake3.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// VerifyIntegrity recomputes the checksum from the offer's current field
// values and compares it with the stored hash. A mismatch signals corruption
// or tampering of persisted state, not a normal validation failure.
func VerifyIntegrity(o *Offer) bool {
	if o == nil || o.IntegrityHash == "" {
		return false
	}
	sum, err := ComputeIntegrityHash(o)
	if err != nil {
		return false
	}
	return sum == o.IntegrityHash
}

func writeItems(buf *bytes.Buffer, items []ItemStack) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(items))); err != nil {
		return err
	}
	for _, stack := range items {
		if err := writeDelimited(buf, []byte(stack.ItemID)); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, stack.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func writeDelimited(buf *bytes.Buffer, payload []byte) error {
	if err := binary.Write(buf, binary.BigEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := buf.Write(payload)
	return err
}
