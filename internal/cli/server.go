package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mockprep-service/internal/app"
	"mockprep-service/internal/auth"
	"mockprep-service/internal/config"
	"mockprep-service/internal/evaluator"
	"mockprep-service/internal/infra/memory"
	pginfra "mockprep-service/internal/infra/postgres"
	redisinfra "mockprep-service/internal/infra/redis"
	"mockprep-service/internal/speech"
	transport "mockprep-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var client evaluator.Client
	if cfg.Evaluator.BaseURL != "" {
		client = evaluator.NewHTTPClient(cfg.Evaluator.BaseURL, cfg.Evaluator.APIKey,
			evaluator.WithTimeout(config.Duration(cfg.Evaluator.Timeout, 60*time.Second)))
	} else {
		log.Println("no evaluator configured, using the scripted offline client")
		client = evaluator.NewScripted()
	}

	cacheTTL := config.Duration(cfg.Tests.CacheTTL, 10*time.Minute)
	var generator app.TestGenerator
	if redisClient != nil {
		generator = redisinfra.NewQuestionCache(redisClient, client, cacheTTL)
	} else {
		generator = memory.NewQuestionCache(client, cacheTTL)
	}

	var interviews app.InterviewRepository
	var tests app.TestRepository
	if redisClient != nil {
		interviews = redisinfra.NewInterviewStore(redisClient, redisTTL)
		tests = redisinfra.NewTestStore(redisClient, redisTTL)
	} else {
		interviews = memory.NewInterviewStore()
		tests = memory.NewTestStore()
	}

	var identities app.IdentityStore
	if redisClient != nil {
		identities = redisinfra.NewIdentityStore(redisClient, redisTTL)
	} else {
		identities = memory.NewIdentityStore()
	}

	var users auth.UserRepository
	if pool != nil {
		users = pginfra.NewUserRepository(pool)
	} else {
		users = memory.NewUserStore()
	}

	opts := []app.ServiceOption{
		app.WithServiceSpeech(
			speech.NewTimedSpeaker(3*time.Second),
			speech.NewScriptedRecognizer(),
		),
		app.WithServiceFallbackDelay(config.Duration(cfg.Speech.FallbackDelay, 3*time.Second)),
	}
	if pool != nil {
		opts = append(opts, app.WithArchive(pginfra.NewResultArchive(pool)))
	}
	service := app.NewService(interviews, tests, client, generator, opts...)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}
	if jwtSecret == "" {
		jwtSecret = "change-me"
		log.Println("auth.jwt_secret not configured, using insecure default")
	}
	authService := auth.NewService(users, jwtSecret, config.Duration(cfg.Auth.TokenTTL, time.Hour))

	handler := transport.NewHandler(service, authService, identities)
	server := transport.NewServer(":"+finalPort, handler.Router())

	reaperCtx, stopReaper := context.WithCancel(ctx)
	defer stopReaper()
	sessionTTL := config.Duration(cfg.Sessions.TTL, 30*time.Minute)
	go service.RunReaper(reaperCtx, time.Minute, sessionTTL)

	go func() {
		log.Printf("starting mockprep service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
