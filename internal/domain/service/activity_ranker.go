package service

import (
	"math/rand"
	"sort"

	"stellar-wallet-network-explorer/internal/domain/entity"
)

// RankWallets orders discovery candidates by the chosen activity metric and
// truncates to topN. Count and volume rankings are deterministic: ties break
// by address lexical order, so identical inputs always produce identical
// output. The random metric shuffles with the provided source for
// exploratory sampling. Fewer than topN candidates returns all of them.
func RankWallets(candidates []*entity.WalletActivity, metric entity.RankMetric, topN int, rng *rand.Rand) []*entity.WalletActivity {
	if topN <= 0 || len(candidates) == 0 {
		return nil
	}

	ranked := make([]*entity.WalletActivity, len(candidates))
	copy(ranked, candidates)

	switch metric {
	case entity.RankRandom:
		// Shuffle from a deterministic base order so identical inputs with
		// the same source still reproduce.
		sort.Slice(ranked, func(i, j int) bool {
			return ranked[i].Address < ranked[j].Address
		})
		if rng != nil {
			rng.Shuffle(len(ranked), func(i, j int) {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			})
		}
	case entity.RankByVolume:
		sort.Slice(ranked, func(i, j int) bool {
			cmp := ranked[i].TotalVolume.Cmp(ranked[j].TotalVolume)
			if cmp != 0 {
				return cmp > 0
			}
			return ranked[i].Address < ranked[j].Address
		})
	default:
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].TransactionCount != ranked[j].TransactionCount {
				return ranked[i].TransactionCount > ranked[j].TransactionCount
			}
			return ranked[i].Address < ranked[j].Address
		})
	}

	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
