package commands

import (
	"context"
	"time"

	"github.com/wonny/ibdash/internal/account"
	"github.com/wonny/ibdash/internal/execution"
	"github.com/wonny/ibdash/internal/gateway"
	"github.com/wonny/ibdash/internal/hwm"
	"github.com/wonny/ibdash/internal/order"
	"github.com/wonny/ibdash/internal/riskctx"
	"github.com/wonny/ibdash/internal/tradelog"
	"github.com/wonny/ibdash/pkg/config"
	"github.com/wonny/ibdash/pkg/database"
	"github.com/wonny/ibdash/pkg/httputil"
	"github.com/wonny/ibdash/pkg/logger"
	"github.com/wonny/ibdash/pkg/redis"
)

// defaultAccountKey names the high-water mark row when no account is configured
const defaultAccountKey = "default"

// app holds the services shared by the commands
type app struct {
	cfg *config.Config
	log *logger.Logger

	db    *database.DB // nil unless DB_ENABLED
	redis *redis.Client

	client   *gateway.Client
	builder  *order.Builder
	store    hwm.Store
	sink     tradelog.Sink
	provider *account.Provider
	risk     *riskctx.Service

	channel execution.Channel
	book    execution.OrderBook
	paper   *execution.PaperChannel // nil in LIVE mode
}

// newApp connects the optional stores and wires every service from cfg
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.redis = rdb

	if cfg.Database.Enabled {
		db, err := database.New(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		log.Info("Connected to database")
	}

	httpClient := httputil.New(cfg, log)
	if rdb.Enabled() {
		httpClient = httpClient.WithRateLimiter(redis.NewRateLimiter(rdb, "ibdash"), redis.RateLimitConfig{
			Key:    "gateway",
			Limit:  int(cfg.Gateway.RateLimit),
			Window: time.Second,
		})
	}
	a.client = gateway.NewClient(cfg.Gateway, httpClient, redis.NewCache(rdb, "ibdash"), log)

	policy := order.LotPolicy{LotSize: cfg.Trading.FXLotSize, SecTypes: []string{order.SecTypeCash}}
	a.builder = order.NewBuilder(policy)

	accountKey := cfg.Gateway.AccountID
	if accountKey == "" {
		accountKey = defaultAccountKey
	}
	sinks := tradelog.Multi{tradelog.NewLogSink(log)}
	switch {
	case a.db != nil:
		a.store = hwm.NewPostgresStore(a.db.Pool, accountKey)
		sinks = append(sinks, tradelog.NewPostgresSink(a.db.Pool))
	case rdb.Enabled():
		a.store = hwm.NewRedisStore(rdb, accountKey)
	default:
		log.Warn("No database or Redis configured; high-water mark is kept in memory")
		a.store = hwm.NewMemoryStore(0)
	}
	a.sink = sinks

	a.provider = account.NewProvider(a.client, a.store, policy, cfg.Trading.MockFallback, log)
	a.risk = riskctx.NewService(a.provider, riskctx.StaticGraph{}, cfg.Trading.DrawdownAlertPct, log)

	if cfg.DryRun() {
		a.paper = execution.NewPaperChannel()
		a.channel, a.book = a.paper, a.paper
	} else {
		a.channel = execution.NewGatewayChannel(a.client, log)
		a.book = execution.NewSessionAdapter(a.client)
	}

	log.WithFields(map[string]interface{}{
		"trading_mode": cfg.Trading.Mode,
		"gateway":      cfg.Gateway.BaseURL,
		"database":     a.db != nil,
		"redis":        rdb.Enabled(),
	}).Debug("Services wired")
	return a, nil
}

// placer returns an order placer over the configured channel
func (a *app) placer() *execution.Placer {
	return execution.NewPlacer(a.builder, a.channel, a.sink, a.log,
		execution.WithAckTimeout(a.cfg.Trading.AckTimeout),
		execution.WithDryRun(a.cfg.DryRun()))
}

// Close releases the database and Redis connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("Failed to close Redis")
		}
	}
}

