package models

import "time"

// OrderState represents the lifecycle state of a multi-leg order.
type OrderState string

const (
	OrderBuilding        OrderState = "BUILDING"
	OrderSubmitted       OrderState = "SUBMITTED"
	OrderPartiallyFilled OrderState = "PARTIALLY_FILLED"
	OrderFilled          OrderState = "FILLED"
	OrderCancelled       OrderState = "CANCELLED"
	OrderRejected        OrderState = "REJECTED"
	OrderExpired         OrderState = "EXPIRED"
)

// IsTerminal reports whether no further transitions are possible.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderFilled, OrderCancelled, OrderRejected, OrderExpired:
		return true
	}
	return false
}

// OrderLeg is one leg of a multi-leg order with its fill progress.
type OrderLeg struct {
	Symbol      string
	Instruction Instruction
	Quantity    int
	FilledQty   int
}

// Filled reports whether the leg is completely filled.
func (l OrderLeg) Filled() bool {
	return l.FilledQty >= l.Quantity
}

// Order is a multi-leg limit order. An Order is owned exclusively by one
// execution controller for its lifetime; retry and price-improvement
// counters live on the record itself rather than in process-wide state.
type Order struct {
	ClientID   string // stable id assigned at build time
	BrokerID   string // assigned by the transport after submission
	Underlying string
	Strategy   StrategyKind
	Legs       []OrderLeg
	LimitPrice float64 // credit positive, debit negative
	WorstPrice float64 // bound on price concessions
	State      OrderState
	Reason     string // populated on Rejected/Expired

	CreatedAt      time.Time
	LastImprovedAt time.Time
	Attempts       int // cancel-replace attempts so far
}

// FilledQuantity returns the total filled quantity across legs.
func (o *Order) FilledQuantity() int {
	var total int
	for _, leg := range o.Legs {
		total += leg.FilledQty
	}
	return total
}

// AllLegsFilled reports whether every leg is completely filled.
func (o *Order) AllLegsFilled() bool {
	for _, leg := range o.Legs {
		if !leg.Filled() {
			return false
		}
	}
	return len(o.Legs) > 0
}

// AnyLegFilled reports whether any leg has partial or full fills.
func (o *Order) AnyLegFilled() bool {
	for _, leg := range o.Legs {
		if leg.FilledQty > 0 {
			return true
		}
	}
	return false
}

// IsCredit reports whether the order collects premium.
func (o *Order) IsCredit() bool {
	return o.LimitPrice > 0
}
