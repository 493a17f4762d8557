package services

import (
	"math"
	"math/rand"

	"github.com/shopspring/decimal"
)

// TradeLeg is one synthetic trade entry of a decomposed ROI accrual. The
// Amount is signed: losses are negative. The decomposition is cosmetic
// presentation only; the legs of one accrual always sum exactly to the
// accrued total.
type TradeLeg struct {
	Pair   string
	Side   string
	Amount decimal.Decimal
}

var tradingPairs = []string{
	"BTC/USDT", "ETH/USDT", "SOL/USDT", "BNB/USDT",
	"XRP/USDT", "ADA/USDT", "DOGE/USDT", "AVAX/USDT",
}

var tradeSides = []string{"LONG", "SHORT"}

const tradeLegScale = 8

// SplitTrades decomposes a positive total into between minLegs and maxLegs
// signed trade amounts that sum exactly to total. At least
// ceil(legs*profitRatio) legs are profits; the rest are losses funded by
// inflating the gross profit, so the mix looks like a real trading day.
// Fully deterministic for a given seed; the final profit leg absorbs the
// rounding remainder.
func SplitTrades(total decimal.Decimal, minLegs, maxLegs int, profitRatio float64, seed int64) []TradeLeg {
	if !total.IsPositive() || minLegs < 1 || maxLegs < minLegs {
		return nil
	}

	rng := rand.New(rand.NewSource(seed))
	legCount := minLegs + rng.Intn(maxLegs-minLegs+1)

	profitCount := int(math.Ceil(float64(legCount) * profitRatio))
	if profitCount < 1 {
		profitCount = 1
	}
	if profitCount > legCount {
		profitCount = legCount
	}
	lossCount := legCount - profitCount

	// Losses are carved out of an inflated gross so the net stays total.
	lossShare := decimal.Zero
	if lossCount > 0 {
		lossShare = decimal.NewFromFloat(0.05 + rng.Float64()*0.30)
	}
	grossLoss := total.Mul(lossShare).Round(tradeLegScale)
	grossProfit := total.Add(grossLoss)

	legs := make([]TradeLeg, 0, legCount)

	profitAmounts := randomPartition(rng, grossProfit, profitCount)
	for _, amount := range profitAmounts {
		legs = append(legs, TradeLeg{
			Pair:   tradingPairs[rng.Intn(len(tradingPairs))],
			Side:   tradeSides[rng.Intn(len(tradeSides))],
			Amount: amount,
		})
	}

	lossAmounts := randomPartition(rng, grossLoss, lossCount)
	for _, amount := range lossAmounts {
		legs = append(legs, TradeLeg{
			Pair:   tradingPairs[rng.Intn(len(tradingPairs))],
			Side:   tradeSides[rng.Intn(len(tradeSides))],
			Amount: amount.Neg(),
		})
	}

	// Force the exact total by pushing the rounding remainder into the
	// first generated profit leg.
	sum := decimal.Zero
	for _, leg := range legs {
		sum = sum.Add(leg.Amount)
	}
	legs[0].Amount = legs[0].Amount.Add(total.Sub(sum))

	// Totals near the ledger scale can round individual parts to zero;
	// drop those rather than writing empty ledger entries. The first leg
	// holds the remainder and stays positive, so at least one survives.
	kept := legs[:0]
	for _, leg := range legs {
		if !leg.Amount.IsZero() {
			kept = append(kept, leg)
		}
	}
	legs = kept

	rng.Shuffle(len(legs), func(i, j int) {
		legs[i], legs[j] = legs[j], legs[i]
	})

	return legs
}

// randomPartition splits amount into count positive parts of random weight,
// each rounded to the ledger scale. The parts may not sum exactly to amount;
// callers reconcile the remainder.
func randomPartition(rng *rand.Rand, amount decimal.Decimal, count int) []decimal.Decimal {
	if count <= 0 {
		return nil
	}
	if count == 1 {
		return []decimal.Decimal{amount.Round(tradeLegScale)}
	}

	weights := make([]float64, count)
	var totalWeight float64
	for i := range weights {
		weights[i] = 0.2 + rng.Float64()
		totalWeight += weights[i]
	}

	parts := make([]decimal.Decimal, count)
	for i, w := range weights {
		share := decimal.NewFromFloat(w / totalWeight)
		parts[i] = amount.Mul(share).Round(tradeLegScale)
	}
	return parts
}
