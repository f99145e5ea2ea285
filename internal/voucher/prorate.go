package voucher

import "github.com/noah-isme/toko-pricing/internal/pricing"

// Prorate splits total across weights proportionally. Every share but the last
// positive-weight one is rounded independently; the last absorbs the remainder so
// the shares always add up to total exactly. No share exceeds its weight and
// zero weights receive nothing.
func Prorate(total pricing.Money, weights []pricing.Money) []pricing.Money {
	shares := make([]pricing.Money, len(weights))
	var whole pricing.Money
	last := -1
	for i, w := range weights {
		if w > 0 {
			whole += w
			last = i
		}
	}
	if whole <= 0 || total <= 0 {
		return shares
	}
	if total > whole {
		total = whole
	}

	var assigned pricing.Money
	for i, w := range weights {
		if w <= 0 || i == last {
			continue
		}
		shares[i] = total.Prorate(w, whole)
		assigned += shares[i]
	}
	shares[last] = total - assigned

	if excess := shares[last] - weights[last]; excess > 0 {
		shares[last] = weights[last]
		for i := last - 1; i >= 0 && excess > 0; i-- {
			room := weights[i] - shares[i]
			if room <= 0 {
				continue
			}
			take := pricing.Min(room, excess)
			shares[i] += take
			excess -= take
		}
	}
	if deficit := -shares[last]; deficit > 0 {
		shares[last] = 0
		for i := last - 1; i >= 0 && deficit > 0; i-- {
			take := pricing.Min(shares[i], deficit)
			shares[i] -= take
			deficit -= take
		}
	}
	return shares
}
