package trade

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errNilInventory = errors.New("trade engine: inventory ledger not configured")
	errNilCurrency  = errors.New("trade engine: currency ledger not configured")
)

// Config carries the tunable knobs of the engine. Zero values fall back to the
// defaults below.
type Config struct {
	// EscrowTimeout bounds how long a pending offer may sit in escrow.
	EscrowTimeout time.Duration
	// FeePercent is the settlement fee applied to the combined currency of a
	// completed trade, split between the two parties.
	FeePercent int
	// HistoryCap bounds the resolved-offer history.
	HistoryCap int
	// RateLimit bounds per-actor action frequency.
	RateLimit RateLimitConfig
	// Tiers maps tier names to policy ceilings; DefaultTier is used when the
	// provider reports an unknown tier.
	Tiers       map[string]TierLimits
	DefaultTier string
}

const (
	defaultEscrowTimeout = 24 * time.Hour
	defaultFeePercent    = 5
	defaultHistoryCap    = 50
)

func (c Config) withDefaults() Config {
	if c.EscrowTimeout <= 0 {
		c.EscrowTimeout = defaultEscrowTimeout
	}
	if c.FeePercent < 0 {
		c.FeePercent = 0
	} else if c.FeePercent == 0 {
		c.FeePercent = defaultFeePercent
	}
	if c.HistoryCap <= 0 {
		c.HistoryCap = defaultHistoryCap
	}
	if c.RateLimit.BurstCap <= 0 {
		c.RateLimit.BurstCap = 10
	}
	if c.RateLimit.BurstWindow <= 0 {
		c.RateLimit.BurstWindow = time.Minute
	}
	if len(c.Tiers) == 0 {
		c.Tiers = map[string]TierLimits{
			"novice":  {DailyTrades: 5, MaxTradeValue: 500},
			"trader":  {DailyTrades: 15, MaxTradeValue: 5_000},
			"magnate": {DailyTrades: 40, MaxTradeValue: 50_000},
		}
	}
	if c.DefaultTier == "" {
		c.DefaultTier = "novice"
	}
	return c
}

// OfferReceipt is returned from a successful offer creation.
type OfferReceipt struct {
	OfferID   string `json:"offerId"`
	ExpiresAt int64  `json:"expiresAt"`
}

// AcceptResult describes what the accepting actor received at settlement.
type AcceptResult struct {
	ReceivedItems    []ItemStack `json:"receivedItems"`
	ReceivedCurrency int64       `json:"receivedCurrency"`
	Fee              int64       `json:"fee"`
}

// Engine orchestrates validation, throttling, policy limits, integrity
// verification and escrow custody into the public trade operations. Every
// mutating operation holds the engine mutex for its full check-then-commit
// sequence, so a resolved offer id deterministically observes "not found"
// afterwards.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	validator Validator
	ledger    *EscrowLedger
	limiter   *RateLimiter
	limits    *LimitsPolicy
	inventory InventoryLedger
	currency  CurrencyLedger
	sink      NotificationSink
	nowFn     func() time.Time

	dailyTradeCount int
	lastTradeDate   string
}

// NewEngine constructs an engine bound to the supplied collaborator ledgers.
// The engine never owns the ledgers; it only queries and moves assets through
// them.
func NewEngine(cfg Config, inventory InventoryLedger, currency CurrencyLedger, tiers TierProvider) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		ledger:    NewEscrowLedger(cfg.HistoryCap),
		inventory: inventory,
		currency:  currency,
		sink:      NoopSink{},
		nowFn:     time.Now,
	}
	clock := func() time.Time { return e.now() }
	e.limiter = NewRateLimiter(cfg.RateLimit, clock)
	e.limits = NewLimitsPolicy(cfg.Tiers, cfg.DefaultTier, tiers, clock)
	return e
}

// SetSink configures the notification sink. Passing nil resets it to a no-op.
func (e *Engine) SetSink(sink NotificationSink) {
	if sink == nil {
		e.sink = NoopSink{}
		return
	}
	e.sink = sink
}

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = time.Now
		return
	}
	e.nowFn = now
}

func (e *Engine) now() time.Time {
	if e.nowFn == nil {
		return time.Now()
	}
	return e.nowFn()
}

func (e *Engine) notify(evt Event) {
	if e.sink == nil {
		return
	}
	e.sink.Notify(evt)
}

// CreateOffer validates and throttles the proposal, escrows the creator's
// offered assets and registers a pending offer. No ledger mutation happens
// before every check has passed.
func (e *Engine) CreateOffer(actorID string, proposal OfferProposal) (*OfferReceipt, error) {
	if e.inventory == nil {
		return nil, errNilInventory
	}
	if e.currency == nil {
		return nil, errNilCurrency
	}
	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("%w: missing actor id", ErrValidation)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.sweepLocked(now)

	if faults := e.validator.Validate(proposal); len(faults) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(faults, "; "))
	}
	if ok, reason := e.limiter.CheckAction(actorID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, reason)
	}
	if err := e.limits.Allow(actorID, tradeValue(proposal)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPolicy, err)
	}
	if err := e.checkHoldings(actorID, proposal.OfferedItems, proposal.OfferedCurrency); err != nil {
		return nil, err
	}

	// All checks passed: move the offered assets out of the creator's
	// ledgers into escrow.
	if err := e.debitActor(actorID, proposal.OfferedItems, proposal.OfferedCurrency); err != nil {
		return nil, err
	}
	offer := &Offer{
		ID:                uuid.NewString(),
		Creator:           actorID,
		Status:            OfferPending,
		OfferedItems:      cloneItems(proposal.OfferedItems),
		OfferedCurrency:   proposal.OfferedCurrency,
		RequestedItems:    cloneItems(proposal.RequestedItems),
		RequestedCurrency: proposal.RequestedCurrency,
		CreatedAt:         now.Unix(),
		ExpiresAt:         now.Add(e.cfg.EscrowTimeout).Unix(),
	}
	hash, err := ComputeIntegrityHash(offer)
	if err != nil {
		// Undo the escrow debit; the offer never existed.
		e.creditActor(actorID, offer.OfferedItems, offer.OfferedCurrency)
		return nil, err
	}
	offer.IntegrityHash = hash
	e.ledger.insert(offer)
	e.limiter.RecordAction(actorID)
	e.limits.RecordTrade(actorID)
	e.bumpDailyLocked(now)
	e.notify(newOfferEvent(EventTypeOfferCreated, LevelInfo, offer, "offer created"))
	return &OfferReceipt{OfferID: offer.ID, ExpiresAt: offer.ExpiresAt}, nil
}

// AcceptOffer settles a pending offer: the acceptor's requested assets move to
// the creator, the escrowed assets move to the acceptor, and the fee is split
// between both currency payouts. Settlement and removal from the active set
// are one indivisible step under the engine mutex.
func (e *Engine) AcceptOffer(actorID, offerID string) (*AcceptResult, error) {
	if e.inventory == nil {
		return nil, errNilInventory
	}
	if e.currency == nil {
		return nil, errNilCurrency
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()

	offer := e.ledger.get(offerID)
	if offer == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, offerID)
	}
	if !VerifyIntegrity(offer) {
		e.protectiveCancelLocked(offer, "integrity check failed on accept")
		return nil, fmt.Errorf("%w: offer %s", ErrIntegrity, offerID)
	}
	if now.Unix() >= offer.ExpiresAt {
		e.resolveLocked(offer, OfferExpired, now)
		return nil, fmt.Errorf("%w: offer %s", ErrExpired, offerID)
	}
	if actorID == offer.Creator {
		return nil, fmt.Errorf("%w: cannot accept own offer", ErrValidation)
	}
	if ok, reason := e.limiter.CheckAction(actorID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, reason)
	}
	if err := e.checkHoldings(actorID, offer.RequestedItems, offer.RequestedCurrency); err != nil {
		return nil, err
	}

	if err := e.debitActor(actorID, offer.RequestedItems, offer.RequestedCurrency); err != nil {
		return nil, err
	}
	// Each party's share is withheld from the currency paid out to them, so a
	// share can never exceed its side's currency. The fee is at most the
	// combined currency (FeePercent is bounded to 100), so whatever one side
	// cannot cover always fits on the other.
	fee := (offer.OfferedCurrency + offer.RequestedCurrency) * int64(e.cfg.FeePercent) / 100
	acceptorShare := fee / 2
	if acceptorShare > offer.OfferedCurrency {
		acceptorShare = offer.OfferedCurrency
	}
	creatorShare := fee - acceptorShare
	if creatorShare > offer.RequestedCurrency {
		acceptorShare += creatorShare - offer.RequestedCurrency
		creatorShare = offer.RequestedCurrency
	}
	acceptorPayout := offer.OfferedCurrency - acceptorShare
	creatorPayout := offer.RequestedCurrency - creatorShare

	e.creditActor(actorID, offer.OfferedItems, acceptorPayout)
	e.creditActor(offer.Creator, offer.RequestedItems, creatorPayout)
	offer.Fee = fee
	e.resolveLocked(offer, OfferCompleted, now)
	e.limiter.RecordAction(actorID)
	return &AcceptResult{
		ReceivedItems:    cloneItems(offer.OfferedItems),
		ReceivedCurrency: acceptorPayout,
		Fee:              fee,
	}, nil
}

// SystemActor is the caller identity used by maintenance paths when cancelling
// on behalf of the engine itself.
const SystemActor = "system"

// CancelOffer returns the escrowed assets to the creator and archives the
// offer as cancelled. Only the creator or the system may cancel. Cancelling an
// id no longer in the active set is a NotFound no-op, never a double release.
// An offer found past its deadline is expired instead, whoever touched it.
func (e *Engine) CancelOffer(actorID, offerID string) error {
	if e.inventory == nil {
		return errNilInventory
	}
	if e.currency == nil {
		return errNilCurrency
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	offer := e.ledger.get(offerID)
	if offer == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, offerID)
	}
	if now.Unix() >= offer.ExpiresAt {
		e.resolveLocked(offer, OfferExpired, now)
		return fmt.Errorf("%w: offer %s", ErrExpired, offerID)
	}
	if actorID != offer.Creator && actorID != SystemActor {
		return fmt.Errorf("%w: only the creator may cancel offer %s", ErrUnauthorized, offerID)
	}
	e.resolveLocked(offer, OfferCancelled, now)
	return nil
}

// SweepExpired resolves every active offer whose escrow timeout has elapsed
// and returns how many were expired. Running it twice in a row is a no-op the
// second time.
func (e *Engine) SweepExpired() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sweepLocked(e.now())
}

// ActiveOffers returns the pending offers, oldest first, after a lazy expiry
// sweep so callers never observe a logically expired offer.
func (e *Engine) ActiveOffers() []*Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweepLocked(e.now())
	return e.ledger.activeList()
}

// History returns the most recently resolved offers, newest first.
func (e *Engine) History(limit int) []*Offer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.historyList(limit)
}

// Limits reports the actor's tier ceilings, current usage and the engine fee.
func (e *Engine) Limits(actorID string) LimitsReport {
	report := e.limits.Report(actorID)
	report.FeePercent = e.cfg.FeePercent
	return report
}

// tradeValue is the policy-relevant value of a proposal: the larger of the two
// currency sides.
func tradeValue(p OfferProposal) int64 {
	if p.OfferedCurrency > p.RequestedCurrency {
		return p.OfferedCurrency
	}
	return p.RequestedCurrency
}

// checkHoldings verifies the actor holds every listed asset without mutating
// anything. Quantities are aggregated per item so duplicate stacks cannot pass
// individually while failing in total.
func (e *Engine) checkHoldings(actorID string, items []ItemStack, currency int64) error {
	totals := make(map[string]int64, len(items))
	order := make([]string, 0, len(items))
	for _, stack := range items {
		if _, seen := totals[stack.ItemID]; !seen {
			order = append(order, stack.ItemID)
		}
		totals[stack.ItemID] += stack.Quantity
	}
	for _, itemID := range order {
		if !e.inventory.HasQuantity(actorID, itemID, totals[itemID]) {
			return fmt.Errorf("%w: actor %s lacks %dx %s", ErrInsufficientAssets, actorID, totals[itemID], itemID)
		}
	}
	if currency > 0 && e.currency.Balance(actorID) < currency {
		return fmt.Errorf("%w: actor %s lacks %d currency", ErrInsufficientAssets, actorID, currency)
	}
	return nil
}

func (e *Engine) debitActor(actorID string, items []ItemStack, currency int64) error {
	if currency > 0 && !e.currency.Debit(actorID, currency) {
		return fmt.Errorf("%w: actor %s lacks %d currency", ErrInsufficientAssets, actorID, currency)
	}
	for i, stack := range items {
		if err := e.inventory.Remove(actorID, stack.ItemID, stack.Quantity); err != nil {
			// Roll back what was already taken; holdings were verified, so
			// this indicates a collaborator fault.
			if currency > 0 {
				e.currency.Credit(actorID, currency)
			}
			for _, done := range items[:i] {
				e.inventory.Add(actorID, done.ItemID, done.Quantity)
			}
			return fmt.Errorf("%w: %v", ErrInsufficientAssets, err)
		}
	}
	return nil
}

func (e *Engine) creditActor(actorID string, items []ItemStack, currency int64) {
	for _, stack := range items {
		e.inventory.Add(actorID, stack.ItemID, stack.Quantity)
	}
	if currency > 0 {
		e.currency.Credit(actorID, currency)
	}
}

// resolveLocked performs the single permitted transition out of pending.
// Cancellation and expiry release the escrowed assets back to the creator;
// completion has already distributed them.
func (e *Engine) resolveLocked(offer *Offer, status OfferStatus, now time.Time) {
	if status != OfferCompleted {
		e.creditActor(offer.Creator, offer.OfferedItems, offer.OfferedCurrency)
	}
	e.ledger.resolve(offer, status, now.Unix())
	switch status {
	case OfferCompleted:
		e.notify(newOfferEvent(EventTypeOfferCompleted, LevelInfo, offer, "offer settled"))
	case OfferCancelled:
		e.notify(newOfferEvent(EventTypeOfferCancelled, LevelInfo, offer, "offer cancelled"))
	case OfferExpired:
		e.notify(newOfferEvent(EventTypeOfferExpired, LevelInfo, offer, "offer expired"))
	}
}

// protectiveCancelLocked routes a corrupt offer through the cancellation path
// so escrowed assets are never stranded, then reports the anomaly.
func (e *Engine) protectiveCancelLocked(offer *Offer, reason string) {
	e.resolveLocked(offer, OfferCancelled, e.now())
	e.notify(newOfferEvent(EventTypeIntegrityViolation, LevelWarning, offer, reason))
}

func (e *Engine) sweepLocked(now time.Time) int {
	var expired []*Offer
	for _, offer := range e.ledger.active {
		if now.Unix() >= offer.ExpiresAt {
			expired = append(expired, offer)
		}
	}
	for _, offer := range expired {
		e.resolveLocked(offer, OfferExpired, now)
	}
	return len(expired)
}

// bumpDailyLocked maintains the engine-wide daily trade counter persisted in
// snapshots.
func (e *Engine) bumpDailyLocked(now time.Time) {
	today := dayKey(now)
	if e.lastTradeDate != today {
		e.dailyTradeCount = 0
		e.lastTradeDate = today
	}
	e.dailyTradeCount++
}
