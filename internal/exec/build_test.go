package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schwab-trader/internal/models"
)

func TestBuildSpreadOrder(t *testing.T) {
	c := models.SpreadCandidate{
		Kind:       models.StrategyVertical,
		Underlying: "XYZ",
		NetPrice:   -2.00,
		Legs: []models.SpreadLeg{
			{Contract: models.OptionContract{Symbol: "XYZ C95"}, Instruction: models.BuyToOpen, Quantity: 1},
			{Contract: models.OptionContract{Symbol: "XYZ C100"}, Instruction: models.SellToOpen, Quantity: 1},
		},
	}

	order := BuildSpreadOrder(c, 2, 0.10, execNow)

	require.Len(t, order.Legs, 2)
	assert.NotEmpty(t, order.ClientID)
	assert.Equal(t, models.OrderBuilding, order.State)
	assert.Equal(t, 2, order.Legs[0].Quantity)
	assert.InDelta(t, -2.00, order.LimitPrice, 1e-9)
	assert.InDelta(t, -2.10, order.WorstPrice, 1e-9)
	assert.Equal(t, execNow, order.CreatedAt)
}

func TestBuildRollOrder(t *testing.T) {
	c := models.RollCandidate{
		Source: models.Position{
			Underlying:   "XYZ",
			OptionSymbol: "XYZ C100 NEAR",
			Quantity:     -1,
		},
		Target:    models.OptionContract{Symbol: "XYZ C105 FAR"},
		NetCredit: 0.80,
	}

	order := BuildRollOrder(c, 1, 0.10, execNow)

	require.Len(t, order.Legs, 2)
	assert.Equal(t, models.StrategyRoll, order.Strategy)
	assert.Equal(t, models.BuyToClose, order.Legs[0].Instruction)
	assert.Equal(t, "XYZ C100 NEAR", order.Legs[0].Symbol)
	assert.Equal(t, models.SellToOpen, order.Legs[1].Instruction)
	assert.InDelta(t, 0.80, order.LimitPrice, 1e-9)
	assert.InDelta(t, 0.70, order.WorstPrice, 1e-9)
}
