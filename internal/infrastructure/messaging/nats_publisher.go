package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stellar-wallet-network-explorer/internal/domain/entity"
	"stellar-wallet-network-explorer/internal/infrastructure/config"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// SnapshotEvent represents the summary published after a successful build
type SnapshotEvent struct {
	Seed          string    `json:"seed"`
	DepthReached  int       `json:"depth_reached"`
	WalletCount   int       `json:"wallet_count"`
	EdgeCount     int       `json:"edge_count"`
	Filtered      int       `json:"filtered"`
	RawFetched    int       `json:"raw_fetched"`
	APICalls      int       `json:"api_calls"`
	FetchFailures int       `json:"fetch_failures"`
	Partial       bool      `json:"partial"`
	BuiltAt       time.Time `json:"built_at"`
}

// NATSPublisher publishes network build events to NATS
type NATSPublisher struct {
	conn   *nats.Conn
	config *config.NATSConfig
	logger *logger.Logger
}

// NewNATSPublisher creates a new NATS publisher
func NewNATSPublisher(cfg *config.NATSConfig, logger *logger.Logger) *NATSPublisher {
	return &NATSPublisher{
		config: cfg,
		logger: logger.WithComponent("nats-publisher"),
	}
}

// Connect connects to the NATS server
func (p *NATSPublisher) Connect(ctx context.Context) error {
	if !p.config.Enabled {
		p.logger.Info("NATS is disabled, skipping connection")
		return nil
	}

	p.logger.Info("Connecting to NATS server", zap.String("url", p.config.URL))

	opts := []nats.Option{
		nats.Name("wallet-network-explorer"),
		nats.Timeout(p.config.ConnectTimeout),
		nats.ReconnectWait(p.config.ReconnectDelay),
		nats.MaxReconnects(p.config.ReconnectAttempts),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			p.logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			p.logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(p.config.URL, opts...)
	if err != nil {
		p.logger.Error("Failed to connect to NATS", zap.Error(err))
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.conn = conn
	p.logger.Info("Successfully connected to NATS")
	return nil
}

// PublishSnapshot publishes a summary event for a completed build. Publish
// failures are the caller's to tolerate; a lost event never invalidates the
// snapshot itself.
func (p *NATSPublisher) PublishSnapshot(snapshot *entity.NetworkSnapshot) error {
	if p.conn == nil {
		return nil
	}

	event := SnapshotEvent{
		Seed:          snapshot.Seed,
		DepthReached:  snapshot.DepthReached,
		WalletCount:   len(snapshot.Wallets),
		EdgeCount:     len(snapshot.Edges),
		Filtered:      snapshot.Filtered,
		RawFetched:    snapshot.RawFetched,
		APICalls:      snapshot.APICalls,
		FetchFailures: len(snapshot.FetchFailures),
		Partial:       snapshot.Partial,
		BuiltAt:       snapshot.BuiltAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot event: %w", err)
	}

	subject := fmt.Sprintf("%s.snapshots", p.config.SubjectPrefix)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish snapshot event: %w", err)
	}

	p.logger.Debug("Published snapshot event",
		zap.String("subject", subject),
		zap.String("seed", event.Seed),
		zap.Int("wallet_count", event.WalletCount))
	return nil
}

// Disconnect drains and closes the NATS connection
func (p *NATSPublisher) Disconnect() error {
	if p.conn == nil {
		return nil
	}
	p.logger.Info("Disconnecting from NATS")
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
