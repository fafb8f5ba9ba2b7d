// Package activity aggregates multi-chain wallet transactions into a display-ready feed.
//
// A Store owns the refresh lifecycle: each Refresh starts a new generation and
// cancels the previous one. A generation publishes an interim snapshot built from
// the current price and fee caches, refreshes those caches, then publishes a final
// snapshot. Cache merges and publishes of a superseded generation are discarded.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matrixise/wallet-activity/internal/cache"
	"github.com/matrixise/wallet-activity/internal/metrics"
	"github.com/matrixise/wallet-activity/internal/network"
	"github.com/matrixise/wallet-activity/internal/wallet"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/matrixise/wallet-activity/internal/activity"

// DefaultCurrency is used when the currency settings cannot be read
const DefaultCurrency = "usd"

// State is the refresh lifecycle state of a Store
type State string

const (
	StateIdle       State = "idle"
	StateRefreshing State = "refreshing"
	StateCancelled  State = "cancelled"
)

// Status reports the coordinator state
type Status struct {
	State         State     `json:"state"`
	Generation    uint64    `json:"generation"`
	Currency      string    `json:"currency"`
	LastPublished time.Time `json:"lastPublished"`
	Summaries     int       `json:"summaries"`
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithMetrics sets the refresh instruments
func WithMetrics(m *metrics.Refresh) Option {
	return func(s *Store) { s.metrics = m }
}

// WithCoins restricts the coins aggregated by the store
func WithCoins(coins []wallet.CoinType) Option {
	return func(s *Store) { s.coins = slices.Clone(coins) }
}

// WithCaches makes the store merge into existing caches
func WithCaches(prices *cache.PriceCache, fees *cache.FeeCache) Option {
	return func(s *Store) {
		s.prices = prices
		s.fees = fees
	}
}

// Store coordinates refreshes and exposes the latest summaries
type Store struct {
	services Services
	coins    []wallet.CoinType
	resolver *network.Resolver
	prices   *cache.PriceCache
	fees     *cache.FeeCache
	subject  *Subject
	logger   *slog.Logger
	metrics  *metrics.Refresh
	tracer   trace.Tracer

	mu            sync.Mutex
	base          context.Context
	generation    uint64
	cancel        context.CancelFunc
	currency      string
	state         State
	lastPublished time.Time
	closed        bool
	wg            sync.WaitGroup
}

// NewStore creates an idle store reading from services
func NewStore(services Services, opts ...Option) *Store {
	s := &Store{
		services: services,
		coins:    slices.Clone(wallet.SupportedCoins),
		subject:  NewSubject(),
		tracer:   otel.Tracer(tracerName),
		base:     context.Background(),
		currency: DefaultCurrency,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRefresh(nil)
	}
	if s.prices == nil {
		s.prices = cache.NewPriceCache()
	}
	if s.fees == nil {
		s.fees = cache.NewFeeCache()
	}
	s.resolver = network.NewResolver(services.Networks, s.logger)
	return s
}

// Start initializes the store with Init and runs the first refresh
func (s *Store) Start(ctx context.Context) uint64 {
	s.Init(ctx)
	return s.Refresh()
}

// Init loads the default currency without refreshing. Runs started afterwards derive
// from ctx.
func (s *Store) Init(ctx context.Context) {
	currency := DefaultCurrency
	if s.services.Currency != nil {
		code, err := s.services.Currency.DefaultCurrency(ctx)
		if err != nil {
			s.logger.Warn("Failed to read default currency, using fallback", "fallback", DefaultCurrency, "error", err)
		} else if code = normalizeCurrency(code); code != "" {
			currency = code
		}
	}

	s.mu.Lock()
	s.base = ctx
	s.currency = currency
	s.mu.Unlock()

	s.logger.Info("Activity store started", "currency", currency, "coins", len(s.coins))
}

// Refresh cancels the in-flight generation, if any, and starts a new one.
// It returns the new generation number.
func (s *Store) Refresh() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.generation
	}

	if s.cancel != nil {
		s.cancel()
		if s.state == StateRefreshing {
			s.metrics.Superseded.Inc()
			s.logger.Debug("Refresh superseded", "generation", s.generation)
		}
	}

	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(s.base)
	s.cancel = cancel
	s.state = StateRefreshing
	currency := s.currency
	s.metrics.Started.Inc()

	s.wg.Add(1)
	go s.run(ctx, gen, currency)
	return gen
}

// SetCurrency switches the fiat currency. A refresh starts only when the code changes.
func (s *Store) SetCurrency(code string) (uint64, bool) {
	code = normalizeCurrency(code)
	if code == "" {
		return 0, false
	}

	s.mu.Lock()
	if code == s.currency {
		s.mu.Unlock()
		return 0, false
	}
	previous := s.currency
	s.currency = code
	s.mu.Unlock()

	s.logger.Info("Currency changed", "from", previous, "to", code)
	return s.Refresh(), true
}

// Currency returns the current fiat currency
func (s *Store) Currency() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency
}

// Wait blocks until every started generation has returned
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels the in-flight generation, waits for it and ends all subscriptions
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	if s.state == StateRefreshing {
		s.state = StateCancelled
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.subject.Close()
}

// State reports the coordinator status
func (s *Store) State() Status {
	snap := s.subject.Load()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:         s.state,
		Generation:    s.generation,
		Currency:      s.currency,
		LastPublished: s.lastPublished,
		Summaries:     len(snap.Summaries),
	}
}

// Snapshot returns the latest published snapshot
func (s *Store) Snapshot() Snapshot {
	return s.subject.Load()
}

// Summaries returns the latest published summaries
func (s *Store) Summaries() []TransactionSummary {
	return slices.Clone(s.subject.Load().Summaries)
}

// Subscribe streams published snapshots, see Subject.Subscribe
func (s *Store) Subscribe(buffer int) (<-chan Snapshot, func()) {
	return s.subject.Subscribe(buffer)
}

// FindTransaction returns the record of a summary in the latest snapshot
func (s *Store) FindTransaction(id string) (wallet.TransactionRecord, bool) {
	summary, ok := lo.Find(s.subject.Load().Summaries, func(t TransactionSummary) bool {
		return t.TxID == id
	})
	return summary.Record, ok
}

// TransactionDetails builds a detail view-model for record from the store collaborators
func (s *Store) TransactionDetails(record wallet.TransactionRecord) *Details {
	return &Details{
		Record:   record,
		services: s.services,
		currency: s.Currency(),
		logger:   s.logger,
	}
}

// LoadDetails loads the detail view-model of a transaction in the latest snapshot
func (s *Store) LoadDetails(ctx context.Context, id string) (TransactionSummary, error) {
	record, ok := s.FindTransaction(id)
	if !ok {
		return TransactionSummary{}, fmt.Errorf("%w: %s", ErrUnknownTransaction, id)
	}
	return s.TransactionDetails(record).Load(ctx)
}

// PriceCache exposes the price cache for inspection
func (s *Store) PriceCache() *cache.PriceCache { return s.prices }

// FeeCache exposes the fee cache for inspection
func (s *Store) FeeCache() *cache.FeeCache { return s.fees }

// fetched is the raw data gathered in the first step of a generation
type fetched struct {
	networks     map[wallet.CoinType]wallet.NetworkInfo
	accounts     []wallet.AccountInfo
	transactions []wallet.TransactionRecord
	visible      []wallet.Token
	all          []wallet.Token
}

func (f fetched) input(prices map[string]cache.Price, fees map[string]uint64, currency string) Input {
	return Input{
		Transactions:  f.transactions,
		Networks:      f.networks,
		Accounts:      f.accounts,
		VisibleTokens: f.visible,
		AllTokens:     f.all,
		Prices:        prices,
		Fees:          fees,
		Currency:      currency,
	}
}

func (s *Store) run(ctx context.Context, gen uint64, currency string) {
	defer s.wg.Done()
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "activity.refresh", trace.WithAttributes(
		attribute.Int64("generation", int64(gen)),
		attribute.String("currency", currency),
	))
	defer span.End()

	data := s.fetch(ctx)

	interim := Summarize(data.input(s.prices.Snapshot(), s.fees.Snapshot(), currency))
	if !s.publish(ctx, gen, currency, interim, false) {
		span.AddEvent("superseded")
		return
	}
	if len(interim) == 0 {
		s.finish(ctx, gen, started)
		return
	}

	if estimates := s.estimateFees(ctx, interim); len(estimates) > 0 {
		if !s.guarded(ctx, gen, func() { s.fees.Merge(estimates) }) {
			return
		}
	}

	if quotes := s.fetchPrices(ctx, data.visible, currency); len(quotes) > 0 {
		if !s.guarded(ctx, gen, func() { cache.MergePrices(s.prices, quotes, currency) }) {
			return
		}
	}

	final := Summarize(data.input(s.prices.Snapshot(), s.fees.Snapshot(), currency))
	if s.publish(ctx, gen, currency, final, true) {
		s.finish(ctx, gen, started)
	}
}

// fetch gathers keyrings, networks, transactions and tokens. Failures leave the
// affected collection empty.
func (s *Store) fetch(ctx context.Context) fetched {
	ctx, span := s.tracer.Start(ctx, "activity.fetch")
	defer span.End()

	var (
		data     fetched
		keyrings []wallet.Keyring
		g        errgroup.Group
	)

	g.Go(func() error {
		rings, err := s.services.Keyrings.Keyrings(ctx, s.coins)
		if err != nil {
			s.fetchFailed("keyrings", err)
			return nil
		}
		keyrings = rings
		return nil
	})
	g.Go(func() error {
		data.networks = s.resolver.Resolve(ctx, s.coins)
		return nil
	})
	_ = g.Wait()

	data.accounts = lo.FlatMap(keyrings, func(k wallet.Keyring, _ int) []wallet.AccountInfo {
		return k.Accounts
	})
	networks := make([]wallet.NetworkInfo, 0, len(data.networks))
	for _, coin := range s.coins {
		if n, ok := data.networks[coin]; ok {
			networks = append(networks, n)
		}
	}

	g.Go(func() error {
		txs, err := s.services.Transactions.AllTransactions(ctx, keyrings)
		if err != nil {
			s.fetchFailed("transactions", err)
			return nil
		}
		data.transactions = lo.Reject(txs, func(tx wallet.TransactionRecord, _ int) bool {
			return tx.Status == wallet.StatusRejected
		})
		return nil
	})
	if len(networks) > 0 {
		g.Go(func() error {
			tokens, err := s.services.Assets.VisibleAssets(ctx, networks)
			if err != nil {
				s.fetchFailed("visible_assets", err)
				return nil
			}
			data.visible = tokens
			return nil
		})
		g.Go(func() error {
			tokens, err := s.services.Assets.AllTokens(ctx, networks)
			if err != nil {
				s.fetchFailed("all_tokens", err)
				return nil
			}
			data.all = tokens
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("networks", len(networks)),
		attribute.Int("transactions", len(data.transactions)),
	)
	return data
}

// estimateFees asks each dynamic fee estimator for the summarized transactions of its coin
func (s *Store) estimateFees(ctx context.Context, summaries []TransactionSummary) map[string]uint64 {
	if len(s.services.FeeEstimators) == 0 {
		return nil
	}

	idsByCoin := make(map[wallet.CoinType][]string)
	for _, summary := range summaries {
		coin := summary.Record.Coin
		if _, ok := s.services.FeeEstimators[coin]; ok {
			idsByCoin[coin] = append(idsByCoin[coin], summary.TxID)
		}
	}
	if len(idsByCoin) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "activity.fees")
	defer span.End()

	var (
		mu       sync.Mutex
		g        errgroup.Group
		combined = make(map[string]uint64)
	)
	for coin, ids := range idsByCoin {
		estimator := s.services.FeeEstimators[coin]
		g.Go(func() error {
			fees, err := estimator.EstimatedFees(ctx, ids)
			if err != nil {
				s.fetchFailed("fees_"+coin.String(), err)
				return nil
			}
			mu.Lock()
			for id, fee := range lo.PickByKeys(fees, ids) {
				combined[id] = fee
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return combined
}

func (s *Store) fetchPrices(ctx context.Context, visible []wallet.Token, currency string) map[string]float64 {
	if s.services.Prices == nil {
		return nil
	}
	ids := lo.Uniq(lo.FilterMap(visible, func(t wallet.Token, _ int) (string, bool) {
		id := t.AssetRatioID()
		return id, id != "" && !t.IsNFT
	}))
	if len(ids) == 0 {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "activity.prices", trace.WithAttributes(attribute.Int("assets", len(ids))))
	defer span.End()

	quotes, err := s.services.Prices.FetchPrices(ctx, ids, currency, OneDay)
	if err != nil {
		// keep whatever the oracle managed to quote
		span.RecordError(err)
		s.fetchFailed("prices", err)
	}
	return quotes
}

func (s *Store) fetchFailed(source string, err error) {
	s.metrics.FetchFails.WithLabelValues(source).Inc()
	s.logger.Warn("Fetch failed, continuing with partial data", "source", source, "error", err)
}

// guarded runs fn under the store lock only while gen is the current, uncancelled generation
func (s *Store) guarded(ctx context.Context, gen uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.generation || ctx.Err() != nil {
		return false
	}
	fn()
	return true
}

func (s *Store) publish(ctx context.Context, gen uint64, currency string, summaries []TransactionSummary, final bool) bool {
	pass := "interim"
	if final {
		pass = "final"
	}
	return s.guarded(ctx, gen, func() {
		now := time.Now()
		s.subject.Publish(Snapshot{
			Generation:  gen,
			Currency:    currency,
			Final:       final,
			PublishedAt: now,
			Summaries:   summaries,
		})
		s.lastPublished = now
		s.metrics.Published.WithLabelValues(pass).Inc()
		s.metrics.Summaries.Set(float64(len(summaries)))
		s.logger.Debug("Summaries published", "generation", gen, "pass", pass, "count", len(summaries))
	})
}

func (s *Store) finish(ctx context.Context, gen uint64, started time.Time) {
	s.guarded(ctx, gen, func() {
		s.state = StateIdle
		s.metrics.Completed.Inc()
		s.metrics.Duration.Observe(time.Since(started).Seconds())
	})
}

func normalizeCurrency(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
