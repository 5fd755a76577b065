// Package exec drives multi-leg limit orders from submission to a
// terminal state, conceding price one tick at a time toward a bound.
package exec

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"schwab-trader/internal/broker"
	"schwab-trader/internal/config"
	"schwab-trader/internal/errors"
	"schwab-trader/internal/logging"
	"schwab-trader/internal/models"
	"schwab-trader/internal/notify"
)

// Controller owns the execution loop for orders handed to Start. Each
// order gets its own goroutine; all mutable order state lives on the
// Order record, so controllers are safe to share.
type Controller struct {
	cfg       config.ExecutionConfig
	transport broker.OrderTransport
	logger    zerolog.Logger
	sink      notify.Sink
	now       func() time.Time

	cutoffMinute int // minutes after midnight, local
}

// NewController creates a controller over a transport.
func NewController(cfg config.ExecutionConfig, transport broker.OrderTransport, logger zerolog.Logger, sink notify.Sink) *Controller {
	cutoff := 15*60 + 30
	if t, err := time.Parse("15:04", cfg.LateDayCutoff); err == nil {
		cutoff = t.Hour()*60 + t.Minute()
	}
	return &Controller{
		cfg:          cfg,
		transport:    transport,
		logger:       logger,
		sink:         sink,
		now:          time.Now,
		cutoffMinute: cutoff,
	}
}

// WithClock overrides the clock, for tests.
func (c *Controller) WithClock(now func() time.Time) *Controller {
	c.now = now
	return c
}

// Execution is the handle for one order being worked. RequestCancel may
// be called from any goroutine; the loop confirms the outcome with the
// transport before settling on a terminal state.
type Execution struct {
	order      *models.Order
	cancelOnce sync.Once
	cancel     chan struct{}
	done       chan struct{}
	err        error
}

// RequestCancel asks the loop to cancel the order. Idempotent.
func (e *Execution) RequestCancel() {
	e.cancelOnce.Do(func() { close(e.cancel) })
}

// Done is closed when the order reaches a terminal state.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Err returns the terminal error, valid after Done is closed.
func (e *Execution) Err() error { return e.err }

// Order returns the order record being worked.
func (e *Execution) Order() *models.Order { return e.order }

// Start begins working the order in its own goroutine.
func (c *Controller) Start(ctx context.Context, order *models.Order) *Execution {
	e := &Execution{
		order:  order,
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(e.done)
		e.err = c.run(ctx, order, e.cancel)
	}()
	return e
}

// Run works the order synchronously until it reaches a terminal state.
func (c *Controller) Run(ctx context.Context, order *models.Order) error {
	return c.run(ctx, order, nil)
}

func (c *Controller) run(ctx context.Context, order *models.Order, cancelReq <-chan struct{}) error {
	if order.State != models.OrderBuilding {
		return errors.NewOrderError(order.ClientID, order.Underlying, "start", "order not in building state", nil)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = c.now()
	}

	tick := TickFor(order.Underlying)
	order.LimitPrice = roundToTick(order.LimitPrice, tick)
	if c.cfg.StartAggressive {
		order.LimitPrice = stepToward(order.LimitPrice, order.WorstPrice, tick)
	}

	if err := c.submit(ctx, order); err != nil {
		return err
	}

	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	unfilled := 0
	for {
		select {
		case <-ctx.Done():
			return c.settle(ctx, order, models.OrderCancelled, "context cancelled")
		case <-cancelReq:
			return c.settle(ctx, order, models.OrderCancelled, "cancel requested")
		case <-ticker.C:
		}

		status, err := c.poll(ctx, order)
		if err != nil {
			c.setState(order, models.OrderRejected, "order transport unavailable")
			return err
		}
		applyFills(order, status)

		switch status.State {
		case models.OrderFilled:
			c.setState(order, models.OrderFilled, "")
			return nil
		case models.OrderRejected:
			c.setState(order, models.OrderRejected, status.Reason)
			return errors.Wrapf(errors.ErrSubmissionRejected, "order %s", order.ClientID)
		case models.OrderCancelled, models.OrderExpired:
			// Terminal at the brokerage without our asking.
			return c.resolvePartial(order, status.State, status.Reason)
		case models.OrderPartiallyFilled:
			if order.State != models.OrderPartiallyFilled {
				c.setState(order, models.OrderPartiallyFilled, "")
			}
		}

		unfilled++
		if unfilled < c.patience() {
			continue
		}
		unfilled = 0

		order.Attempts++
		if order.Attempts > c.cfg.MaxAttempts {
			return c.settle(ctx, order, models.OrderExpired, "price concessions exhausted")
		}

		next := stepToward(order.LimitPrice, order.WorstPrice, tick)
		if next == order.LimitPrice {
			// Resting at the worst acceptable price; keep polling until
			// the attempt ceiling expires the order.
			continue
		}
		if err := c.replace(ctx, order, next); err != nil {
			return err
		}
	}
}

// submit places the order, retrying transient transport failures.
func (c *Controller) submit(ctx context.Context, order *models.Order) error {
	var brokerID string
	err := c.withRetry(ctx, "submit", func() error {
		id, err := c.transport.Submit(ctx, order)
		if err == nil {
			brokerID = id
		}
		return err
	})
	if err != nil {
		if errors.Is(err, errors.ErrSubmissionRejected) {
			c.setState(order, models.OrderRejected, err.Error())
		} else {
			c.setState(order, models.OrderRejected, "order transport unavailable")
		}
		return err
	}

	order.BrokerID = brokerID
	c.setState(order, models.OrderSubmitted, "")
	return nil
}

func (c *Controller) poll(ctx context.Context, order *models.Order) (broker.OrderStatus, error) {
	var status broker.OrderStatus
	err := c.withRetry(ctx, "poll", func() error {
		s, err := c.transport.PollStatus(ctx, order.BrokerID)
		if err == nil {
			status = s
		}
		return err
	})
	return status, err
}

// replace concedes one tick. The brokerage cancel-replace may race a
// fill; the transport's verdict wins.
func (c *Controller) replace(ctx context.Context, order *models.Order, newLimit float64) error {
	var newID string
	err := c.withRetry(ctx, "replace", func() error {
		id, err := c.transport.Replace(ctx, order.BrokerID, newLimit)
		if err == nil {
			newID = id
		}
		return err
	})
	if err != nil {
		if errors.Is(err, errors.ErrAlreadyTerminal) {
			return c.reconcile(ctx, order, models.OrderCancelled, "terminal during replace")
		}
		c.setState(order, models.OrderRejected, "order transport unavailable")
		return err
	}

	order.BrokerID = newID
	order.LimitPrice = newLimit
	order.LastImprovedAt = c.now()
	logging.LogOrderState(c.logger, order.ClientID, "REPLACED", order.Attempts, order.LimitPrice)
	return nil
}

// settle cancels the working order and lands it in final, unless the
// transport reports it filled first. Cleanup runs on a detached context
// so a cancelled caller context cannot strand a working order.
func (c *Controller) settle(_ context.Context, order *models.Order, final models.OrderState, reason string) error {
	ctx, done := context.WithTimeout(context.Background(), 30*time.Second)
	defer done()

	err := c.withRetry(ctx, "cancel", func() error {
		return c.transport.Cancel(ctx, order.BrokerID)
	})
	if err != nil && !errors.Is(err, errors.ErrAlreadyTerminal) {
		c.setState(order, models.OrderRejected, "order transport unavailable")
		return err
	}
	return c.reconcile(ctx, order, final, reason)
}

// reconcile takes one final poll so the transport has the last word on
// fills, then resolves any partial-fill exposure.
func (c *Controller) reconcile(ctx context.Context, order *models.Order, final models.OrderState, reason string) error {
	if status, err := c.poll(ctx, order); err == nil {
		applyFills(order, status)
		if status.State == models.OrderFilled {
			c.setState(order, models.OrderFilled, "")
			return nil
		}
	}
	return c.resolvePartial(order, final, reason)
}

// resolvePartial lands the order in a terminal state. A partial fill on
// anything but a roll leaves an unhedged leg behind, which is escalated
// for manual review instead of being silently closed out.
func (c *Controller) resolvePartial(order *models.Order, final models.OrderState, reason string) error {
	if order.AnyLegFilled() && !order.AllLegsFilled() && order.Strategy != models.StrategyRoll {
		c.setState(order, final, "partial fill requires manual review")
		c.sink.Notify(notify.LevelError, fmt.Sprintf("order %s on %s: partial fill requires manual review", order.ClientID, order.Underlying))
		return errors.Wrapf(errors.ErrAssignmentRisk, "order %s", order.ClientID)
	}
	c.setState(order, final, reason)
	return nil
}

// withRetry retries transient transport failures with exponential
// backoff. Non-transient errors pass through unchanged.
func (c *Controller) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := c.cfg.RetryInitialDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Transient(err) {
			return err
		}
		if attempt >= c.cfg.RetryMaxAttempts {
			break
		}

		c.logger.Warn().Err(err).Str("op", op).Int("attempt", attempt+1).Msg("Transient transport error, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * c.cfg.RetryBackoff)
		if c.cfg.RetryMaxDelay > 0 && delay > c.cfg.RetryMaxDelay {
			delay = c.cfg.RetryMaxDelay
		}
	}
	return errors.Wrapf(errors.ErrTransportUnavailable, "%s: %v", op, err)
}

// patience returns how many unfilled polls to sit at one price. Late in
// the session there is no time to be patient.
func (c *Controller) patience() int {
	polls := c.cfg.PollsPerPrice
	if polls <= 0 {
		polls = 1
	}
	now := c.now()
	if now.Hour()*60+now.Minute() >= c.cutoffMinute {
		if c.cfg.LatePollsPerPrice > 0 {
			return c.cfg.LatePollsPerPrice
		}
	}
	return polls
}

func (c *Controller) setState(order *models.Order, state models.OrderState, reason string) {
	order.State = state
	if reason != "" {
		order.Reason = reason
	}
	logging.LogOrderState(c.logger, order.ClientID, string(state), order.Attempts, order.LimitPrice)

	msg := fmt.Sprintf("order %s on %s: %s", order.ClientID, order.Underlying, state)
	switch state {
	case models.OrderRejected, models.OrderExpired:
		c.sink.Notify(notify.LevelWarning, msg)
	default:
		c.sink.Notify(notify.LevelInfo, msg)
	}
}

// applyFills copies the transport's per-leg fills onto the order.
func applyFills(order *models.Order, status broker.OrderStatus) {
	for _, fill := range status.LegFills {
		for i := range order.Legs {
			if order.Legs[i].Symbol == fill.Symbol {
				order.Legs[i].FilledQty = fill.FilledQty
			}
		}
	}
}

// TickFor returns the minimum price increment for an underlying.
func TickFor(underlying string) float64 {
	switch underlying {
	case "SPX", "SPXW":
		return 0.05
	default:
		return 0.01
	}
}

func roundToTick(price, tick float64) float64 {
	return math.Round(price/tick) * tick
}

// stepToward moves the limit one tick toward the worst acceptable
// price, clamping at the bound. The bound itself is not snapped to the
// grid, so the last concession never overshoots it.
func stepToward(price, worst, tick float64) float64 {
	switch {
	case worst < price:
		next := roundToTick(price-tick, tick)
		return math.Max(worst, next)
	case worst > price:
		next := roundToTick(price+tick, tick)
		return math.Min(worst, next)
	default:
		return price
	}
}
