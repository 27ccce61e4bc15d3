package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/alias/internal/auth"
	"github.com/playperu/alias/internal/chat"
	"github.com/playperu/alias/internal/config"
	"github.com/playperu/alias/internal/database"
	"github.com/playperu/alias/internal/game"
	"github.com/playperu/alias/internal/handler/health"
	"github.com/playperu/alias/internal/migrations"
	"github.com/playperu/alias/internal/seed"
	"github.com/playperu/alias/internal/server"
	"github.com/playperu/alias/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "alias-server",
		Short:         "Backend for the Alias word-guessing game",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadDotEnv(envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stdout)
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), stdout)
		},
	})

	var rooms int
	var wordsFile string
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the word list and open the first rooms, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), stdout, rooms, wordsFile)
		},
	}
	seedCmd.Flags().IntVar(&rooms, "rooms", 1, "rooms to open when none exist")
	seedCmd.Flags().StringVar(&wordsFile, "words", "", "YAML word list (defaults to the built-in list)")
	root.AddCommand(seedCmd)

	return root
}

func newLogger(stdout io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg)

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	version, err := migrations.Run(db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	checks := map[string]health.Checker{"sqlite": health.SQL(db)}
	s := store.New(db)

	// --- Redis ---
	var registry auth.Registry = auth.NewStoreRegistry(s)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		registry = auth.NewRedisRegistry(rdb)
		checks["redis"] = health.Redis(rdb)
		logger.Info("connected to redis")
	}

	// --- NATS ---
	broker := chat.NewBroker()
	var pub chat.Publisher
	if cfg.NATSURL != "" {
		nc, err := openNATS(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("connecting to nats: %w", err)
		}
		defer nc.Close()
		relay, err := chat.NewRelay(nc, broker, logger)
		if err != nil {
			return fmt.Errorf("subscribing chat relay: %w", err)
		}
		defer relay.Close()
		pub = relay
		checks["nats"] = health.NATS(nc)
		logger.Info("connected to nats", "url", nc.ConnectedUrlRedacted())
	}

	// --- Game ---
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := auth.NewService(s, tokens, registry, logger)
	hub := chat.NewHub(s, authSvc, broker, pub, logger, chat.Options{
		RatePerSecond: cfg.ChatRatePerSecond,
		Burst:         cfg.ChatBurst,
	})
	defer hub.Close()
	ctrl := game.NewController(s, hub, logger)
	defer ctrl.Close()
	lobby := game.NewLobby(s, logger)

	if err := seed.Run(ctx, logger, s, lobby, cfg.SeedRooms, cfg.WordsFile); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:     s,
		Game:      ctrl,
		Lobby:     lobby,
		Auth:      authSvc,
		Chat:      hub,
		Health:    health.NewHandler(logger, checks).Routes(),
		PublicURL: cfg.PublicURL,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		// Websocket connections are hijacked; Shutdown does not wait for them.
		hub.Close()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func runSeed(ctx context.Context, stdout io.Writer, rooms int, wordsFile string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(stdout, cfg)

	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	pending, err := migrations.Pending(db)
	if err != nil {
		return err
	}
	version, err := migrations.Run(db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("schema ready", "applied", pending, "schema_version", version)

	s := store.New(db)
	return seed.Run(ctx, logger, s, game.NewLobby(s, logger), rooms, wordsFile)
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func openNATS(url string, logger *slog.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("alias-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrlRedacted())
		}),
	)
}
