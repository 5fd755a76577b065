package broker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"schwab-trader/internal/errors"
	"schwab-trader/internal/models"
)

// PaperTransport implements Feed and OrderTransport for paper trading.
// Orders fill once their limit price reaches the scripted market net
// price for the underlying; snapshots and positions are injected.
type PaperTransport struct {
	mu        sync.RWMutex
	snapshots map[string]*models.Snapshot
	positions []models.Position
	market    map[string]float64 // underlying -> executable net price
	orders    map[string]*paperOrder
	counter   int
	open      bool
}

type paperOrder struct {
	order *models.Order
	limit float64
	state models.OrderState
	fills map[string]int
}

// NewPaperTransport creates a new paper transport.
func NewPaperTransport() *PaperTransport {
	return &PaperTransport{
		snapshots: make(map[string]*models.Snapshot),
		market:    make(map[string]float64),
		orders:    make(map[string]*paperOrder),
		open:      true,
	}
}

// SetSnapshot injects a snapshot for an underlying.
func (p *PaperTransport) SetSnapshot(s *models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots[s.Underlying] = s
}

// SetPositions injects the simulated account positions.
func (p *PaperTransport) SetPositions(positions []models.Position) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = positions
}

// SetMarketPrice sets the executable net price for an underlying's
// working orders. Credit orders fill when limit <= price.
func (p *PaperTransport) SetMarketPrice(underlying string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.market[underlying] = price
}

// SetMarketOpen toggles the simulated market session.
func (p *PaperTransport) SetMarketOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.open = open
}

// GetSnapshot returns the injected snapshot for an underlying.
func (p *PaperTransport) GetSnapshot(ctx context.Context, underlying string) (*models.Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.snapshots[underlying]
	if !ok {
		return nil, errors.Wrapf(errors.ErrFeedUnavailable, "no snapshot for %s", underlying)
	}
	return s, nil
}

// GetPositions returns the injected positions.
func (p *PaperTransport) GetPositions(ctx context.Context, accountID string) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]models.Position, len(p.positions))
	copy(out, p.positions)
	return out, nil
}

// IsMarketOpen reports the simulated session state.
func (p *PaperTransport) IsMarketOpen(ctx context.Context, debugOverride bool) bool {
	if debugOverride {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.open
}

// Submit accepts the order into the simulated book.
func (p *PaperTransport) Submit(ctx context.Context, order *models.Order) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return "", errors.Wrap(errors.ErrSubmissionRejected, "market closed")
	}

	p.counter++
	id := fmt.Sprintf("PAPER-%d", p.counter)
	p.orders[id] = &paperOrder{
		order: order,
		limit: order.LimitPrice,
		state: models.OrderSubmitted,
		fills: make(map[string]int),
	}
	return id, nil
}

// PollStatus evaluates the order against the scripted market and reports
// its state and per-leg fills.
func (p *PaperTransport) PollStatus(ctx context.Context, orderID string) (OrderStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return OrderStatus{}, errors.ErrOrderNotFound
	}

	if po.state == models.OrderSubmitted || po.state == models.OrderPartiallyFilled {
		if p.marketable(po) {
			for _, leg := range po.order.Legs {
				po.fills[leg.Symbol] = leg.Quantity
			}
			po.state = models.OrderFilled
		}
	}

	status := OrderStatus{State: po.state, Price: po.limit}
	for _, leg := range po.order.Legs {
		status.LegFills = append(status.LegFills, LegFill{
			Symbol:    leg.Symbol,
			FilledQty: po.fills[leg.Symbol],
		})
	}
	return status, nil
}

// marketable reports whether the resting limit crosses the scripted
// executable price. Credit orders concede downward, debit upward.
func (p *PaperTransport) marketable(po *paperOrder) bool {
	market, ok := p.market[po.order.Underlying]
	if !ok {
		return false
	}
	if po.order.IsCredit() {
		return po.limit <= market
	}
	return math.Abs(po.limit) >= math.Abs(market)
}

// Cancel cancels a working order.
func (p *PaperTransport) Cancel(ctx context.Context, orderID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return errors.ErrOrderNotFound
	}
	if po.state.IsTerminal() {
		return errors.ErrAlreadyTerminal
	}
	po.state = models.OrderCancelled
	return nil
}

// Replace cancels the working order and books a replacement at the new
// limit, issuing a fresh id like the live brokerage does.
func (p *PaperTransport) Replace(ctx context.Context, orderID string, newLimit float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	po, ok := p.orders[orderID]
	if !ok {
		return "", errors.ErrOrderNotFound
	}
	if po.state.IsTerminal() {
		return "", errors.ErrAlreadyTerminal
	}
	po.state = models.OrderCancelled

	p.counter++
	id := fmt.Sprintf("PAPER-%d", p.counter)
	p.orders[id] = &paperOrder{
		order: po.order,
		limit: newLimit,
		state: models.OrderSubmitted,
		fills: po.fills,
	}
	return id, nil
}
