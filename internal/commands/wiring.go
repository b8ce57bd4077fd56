package commands

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/market-returns/internal/cache"
	"github.com/trogers1052/market-returns/internal/config"
	"github.com/trogers1052/market-returns/internal/database"
	"github.com/trogers1052/market-returns/internal/marketdata"
)

const dateLayout = marketdata.DateLayout

// services holds the collaborators shared by the commands
type services struct {
	db     *database.DB
	redis  *cache.RedisStore
	source *marketdata.Source
}

// newServices connects the configured price provider and cache. needDB forces
// a database connection even when prices come from Yahoo.
func newServices(cfg *config.Config, log *logrus.Logger, needDB bool) (*services, error) {
	s := &services{}

	if needDB || cfg.MarketData.Provider == config.ProviderDatabase {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = db
		log.WithField("host", cfg.Database.Host).Info("Connected to PostgreSQL")
	}

	var provider marketdata.Provider
	switch cfg.MarketData.Provider {
	case config.ProviderDatabase:
		provider = marketdata.NewDatabaseProvider(s.db)
	default:
		provider = marketdata.NewYahooProvider(cfg.MarketData, log)
	}

	store, redisStore := newCacheStore(cfg.Redis, log)
	s.redis = redisStore

	s.source = marketdata.NewSource(provider, store, cfg.MarketData.CacheTTL, log)
	return s, nil
}

// newCacheStore returns Redis when it is enabled and reachable, and an
// in-process store otherwise. The RedisStore is nil unless it is in use.
func newCacheStore(cfg config.RedisConfig, log *logrus.Logger) (cache.Store, *cache.RedisStore) {
	if cfg.Enabled {
		redisStore, err := cache.NewRedisStore(cfg, log)
		if err == nil {
			log.WithField("addr", cfg.Addr).Info("Connected to Redis")
			return redisStore, redisStore
		}
		log.WithError(err).Warn("Redis unavailable, using in-process price cache")
	}
	return cache.NewMemoryStore(), nil
}

// Close releases every open connection
func (s *services) Close() {
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// splitTickers accepts repeated and comma separated tickers
func splitTickers(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
