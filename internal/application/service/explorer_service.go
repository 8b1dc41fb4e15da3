package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"stellar-wallet-network-explorer/internal/domain/entity"
	"stellar-wallet-network-explorer/internal/domain/repository"
	domain_service "stellar-wallet-network-explorer/internal/domain/service"
	"stellar-wallet-network-explorer/internal/infrastructure/config"
	"stellar-wallet-network-explorer/internal/infrastructure/horizon"
	"stellar-wallet-network-explorer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// NetworkExplorerService implements ExplorerService. It drives the
// breadth-limited traversal: fetch, filter, rank, recurse, aggregate.
type NetworkExplorerService struct {
	source repository.LedgerSource
	config *config.ExplorerConfig
	logger *logger.Logger
}

// NewNetworkExplorerService creates a new network explorer service
func NewNetworkExplorerService(
	source repository.LedgerSource,
	cfg *config.ExplorerConfig,
	logger *logger.Logger,
) domain_service.ExplorerService {
	return &NetworkExplorerService{
		source: source,
		config: cfg,
		logger: logger.WithComponent("network-explorer"),
	}
}

// fetchOutcome carries one frontier wallet's fetch+filter result back to the
// coordinating goroutine. Workers never touch shared build state.
type fetchOutcome struct {
	address  string
	records  []*entity.TransactionRecord
	reports  []entity.StageReport
	pages    int
	rawCount int
	err      error
}

// buildState is the mutable accumulator for one build. It is only ever
// written by the coordinating goroutine after fetch results are folded in.
type buildState struct {
	visited      map[string]int
	discovered   map[string]int
	seenTx       map[string]struct{}
	transactions []*entity.TransactionRecord
	activity     map[string]*entity.WalletActivity
	stageTotals  []entity.StageReport
	failures     []entity.FetchFailure
	rawFetched   int
	apiCalls     int
	pagesFetched int
	depthReached int
	partial      bool
}

// BuildNetwork explores the transaction graph outward from req.Seed up to
// req.MaxDepth hops, keeping at most req.MaxWallets wallets ranked by the
// configured activity metric. Per-address failures never abort the build;
// cancellation yields the partial snapshot accumulated so far.
func (s *NetworkExplorerService) BuildNetwork(ctx context.Context, req *entity.BuildRequest) (*entity.NetworkSnapshot, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("Starting network build",
		zap.String("seed", req.Seed),
		zap.Int("max_depth", req.MaxDepth),
		zap.Int("max_wallets", req.MaxWallets),
		zap.String("metric", string(req.Metric)),
		zap.String("page_budget", string(req.PageBudget)))

	state := &buildState{
		visited:    make(map[string]int),
		discovered: make(map[string]int),
		seenTx:     make(map[string]struct{}),
		activity:   make(map[string]*entity.WalletActivity),
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	frontier := []string{req.Seed}
	for depth := 0; depth <= req.MaxDepth && len(frontier) > 0; depth++ {
		if ctx.Err() != nil {
			state.partial = true
			break
		}

		// Respect the remaining wallet budget before spending API calls.
		budget := req.MaxWallets - len(state.visited)
		if budget <= 0 {
			break
		}
		if len(frontier) > budget {
			frontier = frontier[:budget]
		}

		for _, address := range frontier {
			// First discovery wins for depth bookkeeping.
			if _, seen := state.visited[address]; !seen {
				state.visited[address] = depth
			}
			markDiscovered(state, address, depth)
		}
		state.depthReached = depth

		s.logger.Info("Expanding level",
			zap.Int("depth", depth),
			zap.Int("frontier_size", len(frontier)),
			zap.Int("visited", len(state.visited)))

		outcomes := s.fetchLevel(ctx, frontier, req)
		candidates := s.foldLevel(state, outcomes, depth)

		if ctx.Err() != nil {
			state.partial = true
			break
		}
		if depth == req.MaxDepth {
			break
		}

		topN := req.MaxWallets - len(state.visited)
		ranked := domain_service.RankWallets(candidates, req.Metric, topN, rng)
		frontier = frontier[:0]
		for _, c := range ranked {
			frontier = append(frontier, c.Address)
		}
	}

	snapshot := s.assembleSnapshot(req, state)

	if req.FetchBalances && !state.partial {
		s.enrichBalances(ctx, snapshot)
	}

	s.logger.Info("Network build complete",
		zap.String("seed", req.Seed),
		zap.Int("wallets", len(snapshot.Wallets)),
		zap.Int("edges", len(snapshot.Edges)),
		zap.Int("api_calls", snapshot.APICalls),
		zap.Int("fetch_failures", len(snapshot.FetchFailures)),
		zap.Bool("partial", snapshot.Partial))

	return snapshot, nil
}

// fetchLevel fetches and filters all frontier wallets of one depth level
// through a bounded worker pool. Workers share the source's rate limiter, so
// concurrency never exceeds the external request ceiling. Results arrive in
// any order; the caller folds them in sequentially.
func (s *NetworkExplorerService) fetchLevel(ctx context.Context, frontier []string, req *entity.BuildRequest) []fetchOutcome {
	maxPages := req.PageBudget.MaxPages()

	workers := s.config.FetchConcurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(frontier) {
		workers = len(frontier)
	}

	jobs := make(chan string, len(frontier))
	results := make(chan fetchOutcome, len(frontier))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for address := range jobs {
				if ctx.Err() != nil {
					results <- fetchOutcome{address: address, err: ctx.Err()}
					continue
				}
				results <- s.fetchWallet(ctx, address, maxPages, req)
			}
		}()
	}

	for _, address := range frontier {
		jobs <- address
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]fetchOutcome, 0, len(frontier))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// fetchWallet fetches one wallet's transactions and applies the filter
// chain. Direction filtering stays anchored to the seed wallet at every
// depth; see the pipeline documentation for the rationale.
func (s *NetworkExplorerService) fetchWallet(ctx context.Context, address string, maxPages int, req *entity.BuildRequest) fetchOutcome {
	result, err := s.source.FetchTransactions(ctx, address, maxPages, req.IncludeFailed)
	if err != nil {
		return fetchOutcome{address: address, err: err}
	}

	filtered, reports := domain_service.ApplyFilters(result.Records, &req.Criteria, req.Seed)

	s.logger.Debug("Fetched wallet transactions",
		zap.String("address", address),
		zap.Int("raw", len(result.Records)),
		zap.Int("filtered", len(filtered)),
		zap.Int("pages", result.Pages),
		zap.Bool("truncated", result.Truncated))

	return fetchOutcome{
		address:  address,
		records:  filtered,
		reports:  reports,
		pages:    result.Pages,
		rawCount: len(result.Records),
	}
}

// foldLevel merges the outcomes of the level fetched at depth into the build
// state and returns the counterparty discovery candidates for the next
// frontier. Counterparties first seen here are discovered at depth+1. A
// failed address contributes zero transactions; the failure is recorded in
// diagnostics and the build carries on.
func (s *NetworkExplorerService) foldLevel(state *buildState, outcomes []fetchOutcome, depth int) []*entity.WalletActivity {
	for _, outcome := range outcomes {
		state.apiCalls++

		if outcome.err != nil {
			switch {
			case errors.Is(outcome.err, horizon.ErrAddressNotFound):
				// Unfunded or merged accounts are routine, not failures.
				s.logger.Debug("Address has no ledger presence", zap.String("address", outcome.address))
			case errors.Is(outcome.err, context.Canceled), errors.Is(outcome.err, context.DeadlineExceeded):
				state.partial = true
			default:
				s.logger.Warn("Fetch failed for wallet, continuing without it",
					zap.String("address", outcome.address),
					zap.Error(outcome.err))
				state.failures = append(state.failures, entity.FetchFailure{
					Address: outcome.address,
					Reason:  outcome.err.Error(),
				})
			}
			continue
		}

		state.rawFetched += outcome.rawCount
		state.pagesFetched += outcome.pages
		state.stageTotals = mergeStageReports(state.stageTotals, outcome.reports)

		// The same operation appears in both endpoints' payment streams, so
		// a record already folded from the other side is skipped here.
		for _, tx := range outcome.records {
			if tx.ID != "" {
				if _, dup := state.seenTx[tx.ID]; dup {
					continue
				}
				state.seenTx[tx.ID] = struct{}{}
			}
			state.transactions = append(state.transactions, tx)
			s.trackActivity(state, tx.From, tx)
			s.trackActivity(state, tx.To, tx)
			markDiscovered(state, tx.From, depth+1)
			markDiscovered(state, tx.To, depth+1)
		}
	}

	candidates := make([]*entity.WalletActivity, 0, len(state.activity))
	for address, activity := range state.activity {
		if _, seen := state.visited[address]; seen {
			continue
		}
		candidates = append(candidates, activity)
	}
	return candidates
}

// markDiscovered records the hop distance at which an address was first
// seen. Later sightings at deeper levels never overwrite it.
func markDiscovered(state *buildState, address string, depth int) {
	if address == "" {
		return
	}
	if _, seen := state.discovered[address]; !seen {
		state.discovered[address] = depth
	}
}

// trackActivity accumulates the running activity metric for one endpoint
func (s *NetworkExplorerService) trackActivity(state *buildState, address string, tx *entity.TransactionRecord) {
	if address == "" {
		return
	}
	activity, ok := state.activity[address]
	if !ok {
		activity = &entity.WalletActivity{Address: address}
		state.activity[address] = activity
	}
	activity.TransactionCount++
	activity.TotalVolume = activity.TotalVolume.Add(tx.Amount)
}

// assembleSnapshot aggregates the accumulated transactions into the final
// node/edge model
func (s *NetworkExplorerService) assembleSnapshot(req *entity.BuildRequest, state *buildState) *entity.NetworkSnapshot {
	fragment := domain_service.AggregateTransactions(state.transactions, state.discovered)

	// The seed belongs in the snapshot even when every fetch came back empty.
	if _, ok := fragment.Wallets[req.Seed]; !ok {
		fragment.Wallets[req.Seed] = entity.NewWallet(req.Seed, 0)
	}

	return &entity.NetworkSnapshot{
		Seed:          req.Seed,
		DepthReached:  state.depthReached,
		Wallets:       fragment.Wallets,
		Edges:         fragment.Edges,
		StageReports:  state.stageTotals,
		FetchFailures: state.failures,
		Partial:       state.partial,
		RawFetched:    state.rawFetched,
		Filtered:      len(state.transactions),
		APICalls:      state.apiCalls,
		PagesFetched:  state.pagesFetched,
		BuiltAt:       time.Now().UTC(),
	}
}

// enrichBalances fetches current account state for every discovered wallet.
// A missing account gets a placeholder flag instead of blocking the graph.
func (s *NetworkExplorerService) enrichBalances(ctx context.Context, snapshot *entity.NetworkSnapshot) {
	for address, wallet := range snapshot.Wallets {
		if ctx.Err() != nil {
			snapshot.Partial = true
			return
		}

		account, err := s.source.GetAccount(ctx, address)
		if err != nil {
			s.logger.Warn("Balance lookup failed",
				zap.String("address", address),
				zap.Error(err))
			continue
		}
		if account == nil {
			wallet.AccountNotFound = true
			continue
		}
		balance := account.NativeBalance
		wallet.Balance = &balance
	}
}

// mergeStageReports sums per-stage counts across fetches. The chain
// invariant (after of stage k equals before of stage k+1) holds on the sums
// because it holds for every constituent pipeline run.
func mergeStageReports(totals, reports []entity.StageReport) []entity.StageReport {
	if len(totals) == 0 {
		merged := make([]entity.StageReport, len(reports))
		copy(merged, reports)
		return merged
	}
	for i, report := range reports {
		if i >= len(totals) {
			totals = append(totals, report)
			continue
		}
		totals[i].Before += report.Before
		totals[i].After += report.After
	}
	return totals
}
