// Package portfolio holds the authoritative in-memory holdings list,
// keeps it priced through the proxy, and reconciles it against the
// on-chain asset registry.
package portfolio

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/mertdlkr/portfolio-tracker/internal/assetid"
	"github.com/mertdlkr/portfolio-tracker/internal/prices"
	"github.com/mertdlkr/portfolio-tracker/internal/registry"
)

// Holding is one locally tracked lot of an asset. Duplicate identifiers
// are permitted; each list position is an independent lot.
type Holding struct {
	Identifier string
	Symbol     string
	Name       string
	Amount     decimal.Decimal
}

// Valuation is a priced holding.
type Valuation struct {
	Holding Holding
	Price   decimal.Decimal
	Value   decimal.Decimal
}

// PriceSource fetches quotes for a list of identifiers. The proxy client
// implements it; tests substitute fakes.
type PriceSource interface {
	Fetch(ctx context.Context, ids []string) (prices.QuoteMap, time.Time, error)
}

// Portfolio owns the holdings list and the current quote map. All state
// is mutated through its methods; the registry contract is the only
// durable store.
type Portfolio struct {
	owner common.Address
	store registry.Store

	mu         sync.Mutex
	holdings   []Holding
	quotes     prices.QuoteMap
	generation uint64
	lastPoll   time.Time
	pollErr    error
	saveErr    error
}

// New creates an empty portfolio for owner. store may be nil; chain
// operations then report an error instead of panicking.
func New(owner common.Address, store registry.Store) *Portfolio {
	return &Portfolio{
		owner:  owner,
		store:  store,
		quotes: prices.QuoteMap{},
	}
}

// Add appends a holding. No dedup: adding an identifier twice creates
// two independent lots. Negative amounts are clamped to zero.
func (p *Portfolio) Add(h Holding) {
	if h.Amount.IsNegative() {
		h.Amount = decimal.Zero
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.holdings = append(p.holdings, h)
	p.generation++
}

// UpdateAmount replaces the amount of the holding at index. Non-finite
// and negative input is clamped to zero rather than rejected.
func (p *Portfolio) UpdateAmount(index int, amount float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.holdings) {
		return fmt.Errorf("holding index %d out of range", index)
	}
	p.holdings[index].Amount = ClampAmount(amount)
	return nil
}

// Remove deletes the holding at index; subsequent positions shift down.
func (p *Portfolio) Remove(index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || index >= len(p.holdings) {
		return fmt.Errorf("holding index %d out of range", index)
	}
	p.holdings = append(p.holdings[:index], p.holdings[index+1:]...)
	p.generation++
	return nil
}

// Holdings returns a copy of the current holdings list.
func (p *Portfolio) Holdings() []Holding {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Holding(nil), p.holdings...)
}

// Len returns the number of holdings.
func (p *Portfolio) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.holdings)
}

// Identifiers returns the ordered identifier list.
func (p *Portfolio) Identifiers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.identifiersLocked()
}

func (p *Portfolio) identifiersLocked() []string {
	ids := make([]string, len(p.holdings))
	for i, h := range p.holdings {
		ids[i] = h.Identifier
	}
	return ids
}

// Snapshot returns the current generation together with the identifier
// list it covers. A fetch started from a snapshot must pass the same
// generation to ApplyQuotes; if the set changed in the meantime the
// stale result is discarded.
func (p *Portfolio) Snapshot() (uint64, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation, p.identifiersLocked()
}

// ApplyQuotes installs a freshly fetched quote map, replacing the old
// one wholesale. It reports false — and changes nothing — when gen no
// longer matches the current identifier-set generation.
func (p *Portfolio) ApplyQuotes(gen uint64, quotes prices.QuoteMap) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		return false
	}
	p.quotes = quotes
	p.pollErr = nil
	p.lastPoll = time.Now()
	return true
}

// RecordPollError notes a failed poll. The previous quote map is kept;
// the next tick retries.
func (p *Portfolio) RecordPollError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollErr = err
}

// LastPollErr returns the error of the most recent poll, nil after a
// success.
func (p *Portfolio) LastPollErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollErr
}

// LastPoll returns when quotes were last applied successfully.
func (p *Portfolio) LastPoll() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPoll
}

// Quote returns the current quote for an identifier; the zero quote when
// none has been received yet.
func (p *Portfolio) Quote(id string) prices.Quote {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.quotes[id]
}

// Valuations prices every holding against the current quote map and
// returns the per-holding breakdown plus the total. Holdings without a
// quote value at zero.
func (p *Portfolio) Valuations() ([]Valuation, decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	valuations := make([]Valuation, len(p.holdings))
	total := decimal.Zero
	for i, h := range p.holdings {
		price := ClampAmount(p.quotes[h.Identifier].Price)
		value := h.Amount.Mul(price)
		valuations[i] = Valuation{Holding: h, Price: price, Value: value}
		total = total.Add(value)
	}
	return valuations, total
}

// LoadFromChain reads the stored amount for every holding in list order
// and overwrites each holding's amount with the on-chain value. This is
// a full positional overwrite, not a merge: a key the owner never wrote
// sets the amount to zero.
func (p *Portfolio) LoadFromChain(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("no registry configured")
	}

	ids := p.Identifiers()
	if len(ids) == 0 {
		return nil
	}

	amounts, err := p.store.GetMany(ctx, p.owner, assetid.DeriveAll(ids))
	if err != nil {
		return fmt.Errorf("load from chain: %w", err)
	}
	if len(amounts) != len(ids) {
		return fmt.Errorf("load from chain: got %d amounts for %d holdings", len(amounts), len(ids))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	// The holdings list may have changed while the read was in flight;
	// only overwrite positions that still line up.
	for i := range p.holdings {
		if i < len(amounts) && p.holdings[i].Identifier == ids[i] {
			p.holdings[i].Amount = FromScaled(amounts[i])
		}
	}
	return nil
}

// SaveToChain writes the entire holdings list to the registry in one
// atomic batch. The result is recorded as explicit state so callers can
// surface and retry a failed save.
func (p *Portfolio) SaveToChain(ctx context.Context) error {
	err := p.saveToChain(ctx)

	p.mu.Lock()
	p.saveErr = err
	p.mu.Unlock()
	return err
}

func (p *Portfolio) saveToChain(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("no registry configured")
	}

	holdings := p.Holdings()
	ids := make([]string, len(holdings))
	amounts := make([]*big.Int, len(holdings))
	for i, h := range holdings {
		scaled, err := ToScaled(h.Amount)
		if err != nil {
			return fmt.Errorf("holding %q: %w", h.Identifier, err)
		}
		ids[i] = h.Identifier
		amounts[i] = scaled
	}

	if err := p.store.SetMany(ctx, assetid.DeriveAll(ids), amounts); err != nil {
		return fmt.Errorf("save to chain: %w", err)
	}
	return nil
}

// LastSaveErr returns the outcome of the most recent save attempt, nil
// after a success.
func (p *Portfolio) LastSaveErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveErr
}
