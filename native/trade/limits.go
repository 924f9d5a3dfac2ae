package trade

import (
	"fmt"
	"sync"
	"time"
)

// TierLimits holds the policy ceilings attached to a progression tier.
type TierLimits struct {
	// DailyTrades caps how many offers the actor may create per local day.
	DailyTrades int
	// MaxTradeValue caps the value of a single trade, measured as the larger
	// of the offered and requested currency amounts.
	MaxTradeValue int64
}

// ActorLimitState tracks an actor's daily usage. The counter resets when the
// locally observed calendar day changes.
type ActorLimitState struct {
	DailyTradeCount int    `json:"dailyTradeCount"`
	LastTradeDate   string `json:"lastTradeDate"`
}

// LimitsReport is the public view of an actor's current policy standing.
type LimitsReport struct {
	Tier       string `json:"tier"`
	DailyLimit int    `json:"dailyLimit"`
	DailyUsed  int    `json:"dailyUsed"`
	MaxValue   int64  `json:"maxValue"`
	FeePercent int    `json:"feePercent"`
}

// LimitsPolicy enforces tier-derived daily trade counts and per-trade value
// ceilings. Tier resolution is delegated to the injected TierProvider.
type LimitsPolicy struct {
	mu       sync.Mutex
	tiers    map[string]TierLimits
	fallback string
	provider TierProvider
	actors   map[string]*ActorLimitState
	nowFn    func() time.Time
}

// NewLimitsPolicy constructs a policy over the supplied tier table. Unknown
// tiers resolve to the fallback entry.
func NewLimitsPolicy(tiers map[string]TierLimits, fallback string, provider TierProvider, now func() time.Time) *LimitsPolicy {
	if now == nil {
		now = time.Now
	}
	table := make(map[string]TierLimits, len(tiers))
	for name, limits := range tiers {
		table[name] = limits
	}
	return &LimitsPolicy{
		tiers:    table,
		fallback: fallback,
		provider: provider,
		actors:   make(map[string]*ActorLimitState),
		nowFn:    now,
	}
}

// Allow checks the proposed trade value and the actor's daily usage against
// the actor's tier ceilings.
func (p *LimitsPolicy) Allow(actorID string, tradeValue int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	limits := p.resolve(actorID)
	if limits.MaxTradeValue > 0 && tradeValue > limits.MaxTradeValue {
		return fmt.Errorf("trade value %d exceeds tier ceiling %d", tradeValue, limits.MaxTradeValue)
	}
	state := p.stateFor(actorID)
	if limits.DailyTrades > 0 && state.DailyTradeCount >= limits.DailyTrades {
		return fmt.Errorf("daily trade limit of %d reached", limits.DailyTrades)
	}
	return nil
}

// RecordTrade increments the actor's daily counter. Called only after a
// successful commit.
func (p *LimitsPolicy) RecordTrade(actorID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.stateFor(actorID)
	state.DailyTradeCount++
}

// Report returns the actor's resolved ceilings and current usage.
func (p *LimitsPolicy) Report(actorID string) LimitsReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	limits := p.resolve(actorID)
	state := p.stateFor(actorID)
	return LimitsReport{
		Tier:       p.tierName(actorID),
		DailyLimit: limits.DailyTrades,
		DailyUsed:  state.DailyTradeCount,
		MaxValue:   limits.MaxTradeValue,
	}
}

// States exports a copy of all per-actor limit states for persistence.
func (p *LimitsPolicy) States() map[string]ActorLimitState {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]ActorLimitState, len(p.actors))
	for actor, state := range p.actors {
		out[actor] = *state
	}
	return out
}

// RestoreStates replaces the per-actor limit states from a persisted
// snapshot. Stale day keys are rolled over on next access.
func (p *LimitsPolicy) RestoreStates(states map[string]ActorLimitState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actors = make(map[string]*ActorLimitState, len(states))
	for actor, state := range states {
		copied := state
		p.actors[actor] = &copied
	}
}

// stateFor returns the actor's limit state for the current day, resetting the
// counter when the local calendar day has changed.
func (p *LimitsPolicy) stateFor(actorID string) *ActorLimitState {
	today := dayKey(p.nowFn())
	state, ok := p.actors[actorID]
	if !ok {
		state = &ActorLimitState{LastTradeDate: today}
		p.actors[actorID] = state
		return state
	}
	if state.LastTradeDate != today {
		state.DailyTradeCount = 0
		state.LastTradeDate = today
	}
	return state
}

func (p *LimitsPolicy) resolve(actorID string) TierLimits {
	limits, ok := p.tiers[p.tierName(actorID)]
	if !ok {
		limits = p.tiers[p.fallback]
	}
	return limits
}

func (p *LimitsPolicy) tierName(actorID string) string {
	if p.provider == nil {
		return p.fallback
	}
	tier := p.provider.CurrentTier(actorID)
	if _, ok := p.tiers[tier]; !ok {
		return p.fallback
	}
	return tier
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
