package exec

import (
	"time"

	"github.com/google/uuid"

	"schwab-trader/internal/models"
)

// BuildSpreadOrder turns a scanner candidate into an order ready for the
// controller. The worst price sits maxConcession below the limit in the
// signed net-price convention, so credits shrink and debits grow.
func BuildSpreadOrder(c models.SpreadCandidate, contracts int, maxConcession float64, now time.Time) *models.Order {
	if contracts <= 0 {
		contracts = 1
	}

	legs := make([]models.OrderLeg, 0, len(c.Legs))
	for _, leg := range c.Legs {
		qty := leg.Quantity
		if qty <= 0 {
			qty = 1
		}
		legs = append(legs, models.OrderLeg{
			Symbol:      leg.Contract.Symbol,
			Instruction: leg.Instruction,
			Quantity:    qty * contracts,
		})
	}

	return &models.Order{
		ClientID:   uuid.NewString(),
		Underlying: c.Underlying,
		Strategy:   c.Kind,
		Legs:       legs,
		LimitPrice: c.NetPrice,
		WorstPrice: c.NetPrice - maxConcession,
		State:      models.OrderBuilding,
		CreatedAt:  now,
	}
}

// BuildRollOrder turns a roll candidate into a two-leg diagonal order:
// buy back the expiring short, sell the target.
func BuildRollOrder(c models.RollCandidate, contracts int, maxConcession float64, now time.Time) *models.Order {
	if contracts <= 0 {
		contracts = 1
	}

	return &models.Order{
		ClientID:   uuid.NewString(),
		Underlying: c.Source.Underlying,
		Strategy:   models.StrategyRoll,
		Legs: []models.OrderLeg{
			{Symbol: c.Source.OptionSymbol, Instruction: models.BuyToClose, Quantity: contracts},
			{Symbol: c.Target.Symbol, Instruction: models.SellToOpen, Quantity: contracts},
		},
		LimitPrice: c.NetCredit,
		WorstPrice: c.NetCredit - maxConcession,
		State:      models.OrderBuilding,
		CreatedAt:  now,
	}
}
