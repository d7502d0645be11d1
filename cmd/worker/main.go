package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dyluth/relay/internal/adapter"
	"github.com/dyluth/relay/internal/config"
	"github.com/dyluth/relay/internal/ratelimit"
	"github.com/dyluth/relay/internal/worker"
	"github.com/dyluth/relay/pkg/stream"
)

func main() {
	// 1. Load environment variables
	configPath := os.Getenv("RELAY_CONFIG")
	if configPath == "" {
		configPath = "relay.yml"
	}
	redisURL := os.Getenv("REDIS_URL")

	// 2. Load relay.yml configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if redisURL == "" {
		redisURL = cfg.RedisURL
	}
	if redisURL == "" {
		fmt.Fprintf(os.Stderr, "Error: REDIS_URL must be set (env or relay.yml)\n")
		os.Exit(1)
	}

	// 3. Parse Redis URL
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid REDIS_URL: %v\n", err)
		os.Exit(1)
	}

	// 4. Create bus client
	bus, err := stream.NewClient(redisOpts, cfg.Instance)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to create bus client: %v\n", err)
		os.Exit(1)
	}
	defer bus.Close()

	// 5. Verify Redis connectivity
	ctx := context.Background()
	if err := bus.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Redis not accessible: %v\n", err)
		os.Exit(1)
	}

	// 6. Build the admission-control limiter: durable backend with
	// in-process degrade.
	limitCfg := ratelimit.Config{Rate: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}
	limiter := ratelimit.NewDegradingLimiter(
		ratelimit.NewRedisLimiter(bus.Redis(), cfg.Instance, limitCfg), limitCfg)

	// 7. Assemble the consumer. Consumer names are unique per process so
	// peers can tell whose claims went stale.
	consumerName := os.Getenv("RELAY_CONSUMER_NAME")
	if consumerName == "" {
		consumerName = "worker-" + uuid.New().String()[:8]
	}
	workerCfg := worker.Config{
		GroupName:          cfg.Worker.Group,
		ConsumerName:       consumerName,
		InboundTopic:       cfg.Topics.Inbound,
		OutboundTopic:      cfg.Topics.Outbound,
		BatchSize:          cfg.Worker.BatchSize,
		PollInterval:       cfg.Worker.PollInterval(),
		RetryInterval:      cfg.Worker.RetryInterval(),
		MaxPublishAttempts: cfg.Worker.MaxPublishAttempts,
		ReclaimIdle:        cfg.Worker.ReclaimIdle(),
		MaxDeliveries:      cfg.Worker.MaxDeliveries,
	}
	if err := workerCfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid worker configuration: %v\n", err)
		os.Exit(1)
	}
	consumer := worker.New(workerCfg, bus, limiter)

	// 8. Start health server
	healthAddr := os.Getenv("RELAY_HEALTH_ADDR")
	if healthAddr == "" {
		healthAddr = ":8080"
	}
	health := worker.NewHealthServer(bus, healthAddr)
	if err := health.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to start health server: %v\n", err)
		os.Exit(1)
	}
	defer health.Shutdown(context.Background())

	// 9. Run until SIGINT/SIGTERM
	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 10. Optionally run a channel adapter feed alongside the consumer
	if cfg.Adapter != nil {
		chat := adapter.NewChatAdapter(cfg.Adapter.URL, cfg.Adapter.Channel)
		if err := chat.Connect(runCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer chat.Close()

		pump := adapter.NewPump(chat, bus, cfg.Topics.Inbound,
			cfg.Worker.MaxPublishAttempts, cfg.Worker.RetryInterval())
		go pump.Run(runCtx)
	}

	if err := consumer.Run(runCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Worker failed: %v\n", err)
		os.Exit(1)
	}
}
