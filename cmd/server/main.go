// Tabula - DAO intelligence server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/tabula-labs/tabula/internal/api"
	"github.com/tabula-labs/tabula/internal/backend"
	"github.com/tabula-labs/tabula/internal/chaindata"
	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/config"
	"github.com/tabula-labs/tabula/internal/delegation"
	"github.com/tabula-labs/tabula/internal/identity"
	"github.com/tabula-labs/tabula/internal/middleware"
	"github.com/tabula-labs/tabula/internal/store"
	"github.com/tabula-labs/tabula/internal/stream"
	"github.com/tabula-labs/tabula/internal/wallet"
	"github.com/tabula-labs/tabula/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server",
		"port", cfg.Port,
		"dev", cfg.IsDevelopment(),
		"chain_id", cfg.Chain.ChainID,
		"strategy", cfg.Chain.Strategy,
		"holdings_source", cfg.HoldingsSource,
	)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	params, err := cfg.DelegationParams()
	if err != nil {
		slog.Error("Invalid chain profile", "error", err)
		os.Exit(1)
	}
	executor, err := delegation.NewExecutor(params, logger)
	if err != nil {
		slog.Error("Failed to initialize delegation executor", "error", err)
		os.Exit(1)
	}

	conversationLogger, err := chat.NewConversationLogger(chat.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	holdings, closeHoldings, err := newHoldingsProvider(cfg, logger)
	if err != nil {
		slog.Error("Failed to initialize chain data provider", "error", err)
		os.Exit(1)
	}
	defer closeHoldings()

	var signers api.SignerFactory
	if cfg.WalletRPCURL != "" {
		signers = func(ctx context.Context, address common.Address) (wallet.Signer, error) {
			dialCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()
			return wallet.DialRPCSigner(dialCtx, cfg.WalletRPCURL, address, logger)
		}
		slog.Info("Wallet signing enabled", "wallet_rpc", cfg.WalletRPCURL)
	} else {
		slog.Info("Wallet signing disabled (WALLET_RPC_URL not set)")
	}

	// Initialize services.
	sessions := chat.NewRegistry(executor, conversationLogger, logger)
	cm := stream.NewConnManager()
	daoClient := backend.New(cfg.BackendURL, &http.Client{Timeout: cfg.RequestTimeout}, logger)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, sessions, daoClient, holdings, signers, logger)
	healthHandler := api.NewHealthHandler(repo, sessions)
	walletHandler := api.NewWalletHandler(baseHandler)
	chatHandler := api.NewChatHandler(baseHandler)
	daoHandler := api.NewDAOHandler(baseHandler)
	wsHandler := stream.NewWebSocketHandler(sessions, cm, cfg.FrontendURL, cfg.IsDevelopment(), logger)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(allowedOrigins(cfg), identity.SessionHeaderName))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All other routes carry the anonymous device identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		walletHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
		daoHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// WriteTimeout stays 0: a chat POST blocks until the delegation is mined
	// and /ws/chat is long-lived.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat.StartSweeper(ctx, sessions, cfg.SessionTTL, 5*time.Minute, func(s *chat.Session, signer wallet.Signer) {
		cm.CloseSession(s.UserID, s.ID)
		wallet.Release(signer)
	})

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}

func newHoldingsProvider(cfg *config.Config, logger *slog.Logger) (chaindata.Provider, func(), error) {
	if cfg.HoldingsSource == config.HoldingsPortfolio {
		chains := make([]string, 0, len(cfg.RPCURLs))
		for chain := range cfg.RPCURLs {
			chains = append(chains, chain)
		}
		slices.Sort(chains)
		c := chaindata.NewPortfolioClient(cfg.PortfolioURL, chains, &http.Client{Timeout: cfg.RequestTimeout}, logger)
		return c, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	reader, err := chaindata.DialBalanceReader(ctx, cfg.RPCURLs, logger)
	if err != nil {
		return nil, nil, err
	}
	return reader, reader.Close, nil
}
