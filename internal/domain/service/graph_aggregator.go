package service

import (
	"stellar-wallet-network-explorer/internal/domain/entity"
)

// GraphFragment represents the node/edge model aggregated from a set of
// filtered transactions
type GraphFragment struct {
	Wallets map[string]*entity.Wallet
	Edges   map[string]*entity.FlowEdge
}

// AggregateTransactions converts flat transaction records into the node/edge
// model: one wallet per address with accumulated sent/received stats, one
// edge per ordered (from, to) pair with per-asset volume breakdown. Volumes
// are summed with decimal arithmetic; no transaction contributes to more
// than one edge. depths supplies first-discovery depth bookkeeping for known
// addresses; unknown addresses default to depth 0.
func AggregateTransactions(transactions []*entity.TransactionRecord, depths map[string]int) *GraphFragment {
	fragment := &GraphFragment{
		Wallets: make(map[string]*entity.Wallet),
		Edges:   make(map[string]*entity.FlowEdge),
	}

	for _, tx := range transactions {
		if tx.From == "" || tx.To == "" {
			continue
		}

		sender := fragment.wallet(tx.From, depths)
		sender.TransactionCount++
		sender.SentVolume = sender.SentVolume.Add(tx.Amount)
		touchSeen(sender, tx)

		receiver := fragment.wallet(tx.To, depths)
		receiver.TransactionCount++
		receiver.ReceivedVolume = receiver.ReceivedVolume.Add(tx.Amount)
		touchSeen(receiver, tx)

		key := entity.EdgeKey(tx.From, tx.To)
		edge, ok := fragment.Edges[key]
		if !ok {
			edge = entity.NewFlowEdge(tx.From, tx.To)
			fragment.Edges[key] = edge
		}
		edge.Accumulate(tx)
	}

	return fragment
}

// wallet returns the node for an address, creating it on first sight
func (f *GraphFragment) wallet(address string, depths map[string]int) *entity.Wallet {
	if w, ok := f.Wallets[address]; ok {
		return w
	}
	w := entity.NewWallet(address, depths[address])
	f.Wallets[address] = w
	return w
}

func touchSeen(w *entity.Wallet, tx *entity.TransactionRecord) {
	if w.FirstSeen.IsZero() || tx.CreatedAt.Before(w.FirstSeen) {
		w.FirstSeen = tx.CreatedAt
	}
	if tx.CreatedAt.After(w.LastSeen) {
		w.LastSeen = tx.CreatedAt
	}
}
