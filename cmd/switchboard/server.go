package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/chatforge/switchboard/api/handlers"
	"github.com/chatforge/switchboard/config"
	"github.com/chatforge/switchboard/handover"
	"github.com/chatforge/switchboard/internal/cache"
	"github.com/chatforge/switchboard/internal/database"
	"github.com/chatforge/switchboard/internal/metrics"
	"github.com/chatforge/switchboard/internal/server"
	"github.com/chatforge/switchboard/router"
)

// =============================================================================
// 🖥️ Server
// =============================================================================

// Server wires the handover core, its stores, and the HTTP surface together.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	httpManager    *server.Manager
	metricsManager *server.Manager

	collector *metrics.Collector
	pool      *database.PoolManager
	cacheMgr  *cache.Manager
	notifier  handover.Notifier

	ledger      handover.Ledger
	agents      handover.AgentStore
	accounts    handover.AccountStore
	engine      *handover.Engine
	evaluator   *handover.Evaluator
	coordinator *handover.Coordinator
	processor   *router.Processor

	rateLimiterCancel context.CancelFunc
}

// NewServer creates an unstarted server.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 Startup
// =============================================================================

// Start initializes every component and starts the HTTP servers.
func (s *Server) Start() error {
	s.collector = metrics.NewCollector("switchboard", nil, s.logger)

	if err := s.initStores(); err != nil {
		return fmt.Errorf("failed to init stores: %w", err)
	}

	if err := s.initCore(); err != nil {
		return fmt.Errorf("failed to init handover core: %w", err)
	}

	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("cache_enabled", s.cacheMgr != nil),
		zap.Bool("intake_enabled", s.processor != nil),
	)
	return nil
}

// initStores opens the database and the optional cache, and builds the
// ledger, agent, and account stores on top of them.
func (s *Server) initStores() error {
	if s.cfg.Database.Driver == "" || s.cfg.Database.Driver == "memory" {
		// in-memory mode for local development and tests
		s.logger.Warn("No database configured, running with in-memory stores")
		s.ledger = handover.NewMemoryLedger()
		s.agents = handover.NewMemoryAgentStore()
		s.accounts = handover.NewMemoryAccountStore()
	} else {
		db, err := openDatabase(s.cfg.Database, s.logger)
		if err != nil {
			return err
		}

		poolCfg := database.DefaultPoolConfig()
		if s.cfg.Database.MaxOpenConns > 0 {
			poolCfg.MaxOpenConns = s.cfg.Database.MaxOpenConns
		}
		if s.cfg.Database.MaxIdleConns > 0 {
			poolCfg.MaxIdleConns = s.cfg.Database.MaxIdleConns
		}
		if s.cfg.Database.ConnMaxLifetime > 0 {
			poolCfg.ConnMaxLifetime = s.cfg.Database.ConnMaxLifetime
		}

		s.pool, err = database.NewPoolManager(db, poolCfg, s.logger)
		if err != nil {
			return err
		}

		ledger := handover.NewGormLedger(s.pool.DB(), s.logger)
		if err := ledger.AutoMigrate(); err != nil {
			return fmt.Errorf("ledger migration failed: %w", err)
		}
		s.ledger = ledger

		agents := handover.NewGormAgentStore(s.pool.DB(), s.logger)
		if err := agents.AutoMigrate(); err != nil {
			return fmt.Errorf("agent store migration failed: %w", err)
		}
		s.agents = agents

		accounts := handover.NewGormAccountStore(s.pool.DB(), s.logger)
		if err := accounts.AutoMigrate(); err != nil {
			return fmt.Errorf("account store migration failed: %w", err)
		}
		s.accounts = accounts
	}

	// the cache is advisory: a missing or unreachable Redis only costs
	// lookups, never correctness
	if s.cfg.Redis.Addr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.Addr = s.cfg.Redis.Addr
		cacheCfg.Password = s.cfg.Redis.Password
		cacheCfg.DB = s.cfg.Redis.DB
		if s.cfg.Redis.PoolSize > 0 {
			cacheCfg.PoolSize = s.cfg.Redis.PoolSize
		}
		if s.cfg.Redis.MinIdleConns > 0 {
			cacheCfg.MinIdleConns = s.cfg.Redis.MinIdleConns
		}
		cacheCfg.DefaultTTL = s.cfg.Handover.ConfigCacheTTL

		mgr, err := cache.NewManager(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn("Cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.cacheMgr = mgr
			s.agents = handover.NewCachedAgentStore(
				s.agents, mgr, s.cfg.Handover.ConfigCacheTTL, s.collector, s.logger)
			s.accounts = handover.NewCachedAccountStore(
				s.accounts, mgr, s.cfg.Handover.ConfigCacheTTL, s.collector, s.logger)
		}
	}

	return nil
}

// initCore builds the notifier, engine, evaluator, coordinator, and the
// optional message processor.
func (s *Server) initCore() error {
	s.notifier = handover.NopNotifier{}
	if s.cfg.Broker.URL != "" {
		notifier, err := handover.NewAMQPNotifier(handover.AMQPConfig{
			URL:           s.cfg.Broker.URL,
			Exchange:      s.cfg.Broker.Exchange,
			RetryAttempts: s.cfg.Broker.RetryAttempts,
			RetryDelay:    s.cfg.Broker.RetryDelay,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("failed to connect notification broker: %w", err)
		}
		s.notifier = notifier
	} else {
		s.logger.Info("Broker not configured, operator notifications disabled")
	}

	s.engine = handover.NewEngine(s.ledger, s.notifier, s.collector,
		s.cfg.Handover.NotifyTimeout, s.logger)
	s.evaluator = handover.NewEvaluator(s.accounts, s.agents, s.ledger,
		s.collector, s.logger)
	s.coordinator = handover.NewCoordinator(s.agents, s.accounts, s.ledger,
		s.engine, s.collector, s.cfg.Handover.TransferConcurrency, s.logger)

	if s.cfg.Gateway.RuntimeURL != "" {
		runtime := router.NewHTTPRuntime(router.GatewayConfig{
			BaseURL: s.cfg.Gateway.RuntimeURL,
			APIKey:  s.cfg.Gateway.APIKey,
			Timeout: s.cfg.Gateway.Timeout,
		}, s.logger)
		messenger := router.NewHTTPMessenger(router.GatewayConfig{
			BaseURL: s.cfg.Gateway.DeliveryURL,
			APIKey:  s.cfg.Gateway.APIKey,
			Timeout: s.cfg.Gateway.Timeout,
		}, s.logger)
		s.processor = router.NewProcessor(s.evaluator, s.ledger, runtime, messenger, s.notifier, s.logger)
	} else {
		s.logger.Info("Agent runtime not configured, message intake disabled")
	}

	return nil
}

// =============================================================================
// 🌐 HTTP Server
// =============================================================================

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	checks := map[string]handlers.Pinger{}
	if s.pool != nil {
		checks["database"] = s.pool.Ping
	}
	if s.cacheMgr != nil {
		checks["cache"] = s.cacheMgr.Ping
	}
	handlers.NewHealthHandler(Version, checks, s.logger).Register(mux)

	handlers.NewAgentHandler(s.agents, s.coordinator, s.logger).Register(mux)
	handlers.NewConversationHandler(s.engine, s.evaluator, s.ledger, s.logger).Register(mux)
	handlers.NewMessageHandler(s.processor, s.logger).Register(mux)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version"}
	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel

	middlewares := []Middleware{
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger, s.collector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
	}
	if s.cfg.Server.RateLimitRPS > 0 {
		middlewares = append(middlewares, RateLimiter(rateLimiterCtx,
			float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger))
	}
	if len(s.cfg.Server.APIKeys) > 0 {
		middlewares = append(middlewares, APIKeyAuth(s.cfg.Server.APIKeys,
			skipAuthPaths, s.cfg.Server.AllowQueryAPIKey, s.logger))
	}
	if s.cfg.Server.JWT.Secret != "" {
		middlewares = append(middlewares, JWTAuth(s.cfg.Server.JWT, skipAuthPaths, s.logger))
	}

	handler := Chain(mux, middlewares...)

	s.httpManager = server.NewManager(handler, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics Server
// =============================================================================

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s.metricsManager = server.NewManager(mux, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 Shutdown
// =============================================================================

// WaitForShutdown blocks until a termination signal, then shuts down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown closes every component in reverse startup order.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	if closer, ok := s.notifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error("Notifier shutdown error", zap.Error(err))
		}
	}

	if s.cacheMgr != nil {
		if err := s.cacheMgr.Close(); err != nil {
			s.logger.Error("Cache shutdown error", zap.Error(err))
		}
	}

	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("Database shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
