package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
	cli "github.com/urfave/cli/v3"

	"github.com/zigral/zigral/pkg/checkpoint"
	zigralcmd "github.com/zigral/zigral/pkg/cmd"
	"github.com/zigral/zigral/pkg/generator"
	"github.com/zigral/zigral/pkg/log"
	"github.com/zigral/zigral/pkg/orchestrator"
	"github.com/zigral/zigral/pkg/otelhelper"
	"github.com/zigral/zigral/pkg/ratelimit"
	"github.com/zigral/zigral/pkg/updates"
	"github.com/zigral/zigral/pkg/web"
)

const (
	defaultPort       = 8000
	defaultAuthToken  = "zigral_dev_token_123"
	defaultLLMTimeout = 60 * time.Second
)

func main() {
	_ = godotenv.Load()

	logger := log.WithModule("orchestrator")

	cmd := &cli.Command{
		Name:                  "zigral-orchestrator",
		Usage:                 "Turn natural-language prospecting commands into executed action sequences",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the orchestrator server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Context store URL (memory://, file://path, postgres://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:     "openai-api-key",
				Usage:    "OpenAI API key used for action sequence generation",
				Required: true,
				Sources:  cli.EnvVars("OPENAI_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "openai-model",
				Usage:   "OpenAI model used for action sequence generation",
				Value:   generator.DefaultModel,
				Sources: cli.EnvVars("OPENAI_MODEL"),
			},
			&cli.StringFlag{
				Name:    "auth-token",
				Usage:   "Bearer token required on API requests",
				Value:   defaultAuthToken,
				Sources: cli.EnvVars("AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for shared rate limiting (empty uses in-process limiting)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "checkpoint-dir",
				Usage:   "Directory for job execution checkpoints",
				Value:   "./checkpoints",
				Sources: cli.EnvVars("CHECKPOINT_DIR"),
			},
			&cli.StringFlag{
				Name:    "checkpoint-prune-schedule",
				Usage:   "Cron schedule for checkpoint pruning",
				Value:   "@hourly",
				Sources: cli.EnvVars("CHECKPOINT_PRUNE_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "checkpoint-retention",
				Usage:   "How long checkpoints are kept before pruning",
				Value:   24 * time.Hour,
				Sources: cli.EnvVars("CHECKPOINT_RETENTION"),
			},
			&cli.BoolFlag{
				Name:    "enable-tracing",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Zigral orchestrator")

			if command.Bool("enable-tracing") {
				tp, err := otelhelper.InitTracer(ctx, web.ServiceName)
				if err != nil {
					return err
				}

				defer func() {
					if err := tp.Shutdown(context.Background()); err != nil {
						logger.Error("Failed to shut down tracer provider", "error", err)
					}
				}()
			}

			reg := zigralcmd.NewRegistry(logger)

			store := zigralcmd.NewContextStore(command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close context store", "error", err)
				}
			}()

			eventBus := zigralcmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			checkpoints, err := checkpoint.NewManager(command.String("checkpoint-dir"))
			if err != nil {
				return err
			}

			if err := checkpoints.StartPruning(
				command.String("checkpoint-prune-schedule"),
				command.Duration("checkpoint-retention"),
			); err != nil {
				return err
			}
			defer checkpoints.StopPruning()

			limiter, err := newLimiter(command.String("redis-url"))
			if err != nil {
				return err
			}

			client := openai.NewClient(command.String("openai-api-key"))
			gen := generator.NewGenerator(client, command.String("openai-model"), defaultLLMTimeout, logger)

			orch := orchestrator.NewOrchestrator(
				gen, reg, store, eventBus, checkpoints, orchestrator.Config{}, logger)

			hub := updates.NewHub(logger)
			hub.BindEventBus(eventBus)

			go func() {
				if err := eventBus.Subscribe(ctx); err != nil {
					logger.ErrorContext(ctx, "Event bus subscription ended", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				store,
				reg,
				eventBus,
				orch,
				hub,
				limiter,
				command.String("auth-token"),
			)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start orchestrator server", "error", err)
			}

			return nil
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}

func newLimiter(redisURL string) (ratelimit.Limiter, error) {
	if redisURL == "" {
		return ratelimit.NewWindow(ratelimit.DefaultLimit, ratelimit.DefaultPeriod), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	return ratelimit.NewRedisWindow(
		redis.NewClient(opts), ratelimit.DefaultLimit, ratelimit.DefaultPeriod), nil
}
