package trade

import "errors"

// Failure categories surfaced at the public boundary. Callers classify with
// errors.Is; the engine wraps each sentinel with operation context.
var (
	// ErrValidation marks a structurally malformed proposal.
	ErrValidation = errors.New("trade engine: proposal failed validation")
	// ErrRateLimited marks a cooldown or burst-cap rejection.
	ErrRateLimited = errors.New("trade engine: rate limited")
	// ErrPolicy marks a daily-count or trade-value ceiling rejection.
	ErrPolicy = errors.New("trade engine: policy limit exceeded")
	// ErrInsufficientAssets marks a missing item or currency balance at
	// commit time.
	ErrInsufficientAssets = errors.New("trade engine: insufficient assets")
	// ErrNotFound marks an unknown or already-resolved offer identifier.
	ErrNotFound = errors.New("trade engine: offer not found")
	// ErrIntegrity marks a checksum mismatch on a stored offer. The offer is
	// forced through protective cancellation before the error is returned.
	ErrIntegrity = errors.New("trade engine: offer integrity check failed")
	// ErrExpired marks an offer whose escrow timeout elapsed before it was
	// acted on. Escrowed assets are released before the error is returned.
	ErrExpired = errors.New("trade engine: offer expired")
	// ErrUnauthorized marks a cancellation attempt by an actor other than
	// the offer creator or the system.
	ErrUnauthorized = errors.New("trade engine: actor not authorized")
)
