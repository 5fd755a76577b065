// Package models provides domain models for the options trading application.
package models

// OptionRight represents the right of an option contract.
type OptionRight string

const (
	Call OptionRight = "CALL"
	Put  OptionRight = "PUT"
)

// Instruction represents the brokerage instruction for an order leg.
type Instruction string

const (
	BuyToOpen   Instruction = "BUY_TO_OPEN"
	BuyToClose  Instruction = "BUY_TO_CLOSE"
	SellToOpen  Instruction = "SELL_TO_OPEN"
	SellToClose Instruction = "SELL_TO_CLOSE"
)

// IsBuy reports whether the instruction adds a long leg.
func (i Instruction) IsBuy() bool {
	return i == BuyToOpen || i == BuyToClose
}

// AssetClass represents the margin classification of an underlying.
type AssetClass string

const (
	AssetEquity       AssetClass = "equity"
	AssetETF          AssetClass = "etf"
	AssetLeveragedETF AssetClass = "leveraged_etf"
	AssetIndex        AssetClass = "broad_based_index"
)

// StrategyKind represents a strategy family.
type StrategyKind string

const (
	StrategyShortCall   StrategyKind = "short_call"
	StrategyRoll        StrategyKind = "roll"
	StrategyBoxSpread   StrategyKind = "box_spread"
	StrategyVertical    StrategyKind = "vertical"
	StrategySyntheticCC StrategyKind = "synthetic_covered_call"
	StrategyCoveredCall StrategyKind = "covered_call"
)

// ContractMultiplier is the standard option contract multiplier.
const ContractMultiplier = 100.0
