package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"stellar-wallet-network-explorer/internal/domain/entity"
	"stellar-wallet-network-explorer/internal/domain/repository"
	domain_service "stellar-wallet-network-explorer/internal/domain/service"
	"stellar-wallet-network-explorer/internal/infrastructure/config"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"
	"stellar-wallet-network-explorer/internal/infrastructure/messaging"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler exposes the network explorer over HTTP
type Handler struct {
	explorer  domain_service.ExplorerService
	snapshots repository.SnapshotRepository
	publisher *messaging.NATSPublisher
	config    *config.Config
	logger    *logger.Logger
}

// NewHandler creates a new API handler. snapshots may be nil when graph
// persistence is disabled.
func NewHandler(
	explorer domain_service.ExplorerService,
	snapshots repository.SnapshotRepository,
	publisher *messaging.NATSPublisher,
	cfg *config.Config,
	logger *logger.Logger,
) *Handler {
	return &Handler{
		explorer:  explorer,
		snapshots: snapshots,
		publisher: publisher,
		config:    cfg,
		logger:    logger.WithComponent("api-handler"),
	}
}

// Router builds the HTTP route table
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/network", h.BuildNetwork).Methods(http.MethodPost)
	router.HandleFunc("/api/network/path", h.GetTransactionPath).Methods(http.MethodGet)
	router.HandleFunc("/api/wallets/top", h.GetTopWallets).Methods(http.MethodGet)
	router.HandleFunc("/api/wallets/{address}", h.GetWallet).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	return router
}

// buildNetworkRequest is the wire shape of a build request. MaxDepth is a
// pointer so an explicit depth of zero (seed only) stays distinguishable
// from an omitted field.
type buildNetworkRequest struct {
	Seed          string                `json:"seed"`
	MaxDepth      *int                  `json:"max_depth"`
	MaxWallets    int                   `json:"max_wallets"`
	Metric        entity.RankMetric     `json:"metric"`
	PageBudget    entity.PageBudget     `json:"page_budget"`
	Criteria      entity.FilterCriteria `json:"criteria"`
	IncludeFailed bool                  `json:"include_failed"`
	FetchBalances bool                  `json:"fetch_balances"`
}

// BuildNetwork runs one network build and returns the full snapshot,
// including the stage reports and per-address fetch failures the caller
// needs for diagnostics.
func (h *Handler) BuildNetwork(w http.ResponseWriter, r *http.Request) {
	var body buildNetworkRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req := h.toBuildRequest(&body)

	ctx := r.Context()
	if h.config.Explorer.BuildTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.Explorer.BuildTimeout)
		defer cancel()
	}

	snapshot, err := h.explorer.BuildNetwork(ctx, req)
	if err != nil {
		var validationErr *entity.ValidationError
		if errors.As(err, &validationErr) {
			h.writeError(w, http.StatusBadRequest, validationErr.Error())
			return
		}
		h.logger.Error("Network build failed", zap.String("seed", req.Seed), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "network build failed")
		return
	}

	// Persistence and event publication are best-effort side channels; the
	// snapshot is already complete.
	if h.snapshots != nil {
		if err := h.snapshots.PersistSnapshot(r.Context(), snapshot); err != nil {
			h.logger.Error("Failed to persist snapshot", zap.String("seed", snapshot.Seed), zap.Error(err))
		}
	}
	if h.publisher != nil {
		if err := h.publisher.PublishSnapshot(snapshot); err != nil {
			h.logger.Warn("Failed to publish snapshot event", zap.Error(err))
		}
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// GetTransactionPath returns the shortest persisted flow path between two wallets
func (h *Handler) GetTransactionPath(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, http.StatusServiceUnavailable, "graph persistence is disabled")
		return
	}

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if !entity.IsValidAddress(from) || !entity.IsValidAddress(to) {
		h.writeError(w, http.StatusBadRequest, "from and to must be valid account addresses")
		return
	}

	path, err := h.snapshots.GetTransactionPath(r.Context(), from, to, entity.MaxNetworkDepth)
	if err != nil {
		h.logger.Error("Path lookup failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "path lookup failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"from": from,
		"to":   to,
		"path": path,
	})
}

// GetWallet returns one persisted wallet's accumulated stats
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, http.StatusServiceUnavailable, "graph persistence is disabled")
		return
	}

	address := mux.Vars(r)["address"]
	if !entity.IsValidAddress(address) {
		h.writeError(w, http.StatusBadRequest, "address must be a valid account address")
		return
	}

	wallet, err := h.snapshots.GetWallet(r.Context(), address)
	if err != nil {
		h.logger.Error("Wallet lookup failed", zap.String("address", address), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "wallet lookup failed")
		return
	}
	if wallet == nil {
		h.writeError(w, http.StatusNotFound, "wallet not found")
		return
	}

	h.writeJSON(w, http.StatusOK, wallet)
}

const defaultTopWalletsLimit = 20

// GetTopWallets returns persisted wallets ordered by transaction count
func (h *Handler) GetTopWallets(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.writeError(w, http.StatusServiceUnavailable, "graph persistence is disabled")
		return
	}

	limit := defaultTopWalletsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	wallets, err := h.snapshots.GetTopWallets(r.Context(), limit)
	if err != nil {
		h.logger.Error("Top wallets lookup failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "top wallets lookup failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"limit":   limit,
		"wallets": wallets,
	})
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// toBuildRequest maps the wire request onto the domain request, filling
// omitted fields from the configured defaults
func (h *Handler) toBuildRequest(body *buildNetworkRequest) *entity.BuildRequest {
	req := &entity.BuildRequest{
		Seed:          body.Seed,
		MaxWallets:    body.MaxWallets,
		Metric:        body.Metric,
		PageBudget:    body.PageBudget,
		Criteria:      body.Criteria,
		IncludeFailed: body.IncludeFailed,
		FetchBalances: body.FetchBalances,
	}
	if body.MaxDepth != nil {
		req.MaxDepth = *body.MaxDepth
	} else {
		req.MaxDepth = h.config.Explorer.DefaultMaxDepth
	}
	if req.MaxWallets == 0 {
		req.MaxWallets = h.config.Explorer.DefaultMaxWallets
	}
	if req.Metric == "" {
		req.Metric = entity.RankByCount
	}
	if req.PageBudget == "" {
		req.PageBudget = entity.PageBudget(h.config.Explorer.DefaultPageBudget)
	}
	return req
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
