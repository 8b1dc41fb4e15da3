package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stellar-wallet-network-explorer/internal/domain/entity"
	"stellar-wallet-network-explorer/internal/domain/repository"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Neo4JSnapshotRepository implements SnapshotRepository interface
type Neo4JSnapshotRepository struct {
	client *Neo4JClient
	logger *logger.Logger
}

// NewNeo4JSnapshotRepository creates a new Neo4J snapshot repository
func NewNeo4JSnapshotRepository(client *Neo4JClient, logger *logger.Logger) repository.SnapshotRepository {
	return &Neo4JSnapshotRepository{
		client: client,
		logger: logger.WithComponent("neo4j-snapshot-repo"),
	}
}

// PersistSnapshot merges the snapshot's wallets and flow edges into the store
func (r *Neo4JSnapshotRepository) PersistSnapshot(ctx context.Context, snapshot *entity.NetworkSnapshot) error {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	for _, wallet := range snapshot.Wallets {
		if err := r.mergeWallet(ctx, session, wallet); err != nil {
			return fmt.Errorf("failed to persist wallet %s: %w", wallet.Address, err)
		}
	}

	for _, edge := range snapshot.Edges {
		if err := r.mergeEdge(ctx, session, edge); err != nil {
			return fmt.Errorf("failed to persist edge %s: %w", entity.EdgeKey(edge.From, edge.To), err)
		}
	}

	r.logger.Info("Persisted network snapshot",
		zap.String("seed", snapshot.Seed),
		zap.Int("wallets", len(snapshot.Wallets)),
		zap.Int("edges", len(snapshot.Edges)))
	return nil
}

// mergeWallet creates or updates one wallet node
func (r *Neo4JSnapshotRepository) mergeWallet(ctx context.Context, session neo4j.SessionWithContext, wallet *entity.Wallet) error {
	query := `
		MERGE (w:Wallet {address: $address})
		ON CREATE SET
			w.first_seen = datetime($first_seen),
			w.last_seen = datetime($last_seen),
			w.depth = $depth,
			w.transaction_count = $transaction_count,
			w.sent_volume = $sent_volume,
			w.received_volume = $received_volume,
			w.balance = $balance
		ON MATCH SET
			w.last_seen = datetime($last_seen),
			w.transaction_count = $transaction_count,
			w.sent_volume = $sent_volume,
			w.received_volume = $received_volume,
			w.balance = $balance
	`

	balance := ""
	if wallet.Balance != nil {
		balance = wallet.Balance.String()
	}

	params := map[string]interface{}{
		"address":           wallet.Address,
		"first_seen":        orNow(wallet.FirstSeen).Format(timestampLayout),
		"last_seen":         orNow(wallet.LastSeen).Format(timestampLayout),
		"depth":             wallet.Depth,
		"transaction_count": wallet.TransactionCount,
		"sent_volume":       wallet.SentVolume.String(),
		"received_volume":   wallet.ReceivedVolume.String(),
		"balance":           balance,
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	return err
}

// mergeEdge creates or updates one directional flow relationship. The
// per-asset breakdown is stored as a JSON string property.
func (r *Neo4JSnapshotRepository) mergeEdge(ctx context.Context, session neo4j.SessionWithContext, edge *entity.FlowEdge) error {
	query := `
		MATCH (from:Wallet {address: $from})
		MATCH (to:Wallet {address: $to})
		MERGE (from)-[r:TRANSFERRED]->(to)
		SET
			r.total_volume = $total_volume,
			r.asset_volumes = $asset_volumes,
			r.transaction_count = $transaction_count,
			r.first_seen = datetime($first_seen),
			r.last_seen = datetime($last_seen)
	`

	breakdown := make(map[string]string, len(edge.AssetVolumes))
	for asset, volume := range edge.AssetVolumes {
		breakdown[asset] = volume.String()
	}
	assetVolumes, err := json.Marshal(breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode asset breakdown: %w", err)
	}

	params := map[string]interface{}{
		"from":              edge.From,
		"to":                edge.To,
		"total_volume":      edge.TotalVolume().String(),
		"asset_volumes":     string(assetVolumes),
		"transaction_count": edge.TransactionCount,
		"first_seen":        orNow(edge.FirstSeen).Format(timestampLayout),
		"last_seen":         orNow(edge.LastSeen).Format(timestampLayout),
	}

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, query, params)
	})
	return err
}

// GetWallet retrieves a persisted wallet by address. An address with no
// stored node returns (nil, nil).
func (r *Neo4JSnapshotRepository) GetWallet(ctx context.Context, address string) (*entity.Wallet, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (w:Wallet {address: $address})
		RETURN w.address, w.depth, w.transaction_count, w.sent_volume, w.received_volume, w.first_seen, w.last_seen
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]interface{}{"address": address})
		if err != nil {
			return nil, err
		}
		if !records.Next(ctx) {
			return (*entity.Wallet)(nil), nil
		}
		return walletFromValues(records.Record().Values), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return result.(*entity.Wallet), nil
}

// GetTopWallets retrieves persisted wallets ordered by transaction count
func (r *Neo4JSnapshotRepository) GetTopWallets(ctx context.Context, limit int) ([]*entity.Wallet, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := `
		MATCH (w:Wallet)
		RETURN w.address, w.depth, w.transaction_count, w.sent_volume, w.received_volume, w.first_seen, w.last_seen
		ORDER BY w.transaction_count DESC
		LIMIT $limit
	`

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]interface{}{"limit": limit})
		if err != nil {
			return nil, err
		}
		var wallets []*entity.Wallet
		for records.Next(ctx) {
			wallets = append(wallets, walletFromValues(records.Record().Values))
		}
		return wallets, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get top wallets: %w", err)
	}

	return result.([]*entity.Wallet), nil
}

// GetTransactionPath finds the shortest flow path between two wallets
func (r *Neo4JSnapshotRepository) GetTransactionPath(ctx context.Context, fromAddress, toAddress string, maxHops int) ([]string, error) {
	session := r.client.GetDriver().NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH path = shortestPath((from:Wallet {address: $from})-[:TRANSFERRED*1..%d]->(to:Wallet {address: $to}))
		RETURN [node IN nodes(path) | node.address] AS addresses
	`, maxHops)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, map[string]interface{}{
			"from": fromAddress,
			"to":   toAddress,
		})
		if err != nil {
			return nil, err
		}
		if !records.Next(ctx) {
			return []string{}, nil
		}
		raw := records.Record().Values[0].([]interface{})
		addresses := make([]string, 0, len(raw))
		for _, value := range raw {
			addresses = append(addresses, value.(string))
		}
		return addresses, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction path: %w", err)
	}

	return result.([]string), nil
}

// walletFromValues maps a result row back onto the wallet entity
func walletFromValues(values []interface{}) *entity.Wallet {
	wallet := &entity.Wallet{
		Address:        values[0].(string),
		SentVolume:     parseStoredDecimal(values[3]),
		ReceivedVolume: parseStoredDecimal(values[4]),
	}
	if depth, ok := values[1].(int64); ok {
		wallet.Depth = int(depth)
	}
	if count, ok := values[2].(int64); ok {
		wallet.TransactionCount = count
	}
	if firstSeen, ok := values[5].(time.Time); ok {
		wallet.FirstSeen = firstSeen
	}
	if lastSeen, ok := values[6].(time.Time); ok {
		wallet.LastSeen = lastSeen
	}
	return wallet
}

func parseStoredDecimal(value interface{}) decimal.Decimal {
	s, ok := value.(string)
	if !ok {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
