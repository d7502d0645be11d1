package commands

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dyluth/relay/pkg/stream"
)

var (
	version string
	commit  string
	date    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - omnichannel message-routing pipeline",
	Long: `Relay is the message-routing core for omnichannel conversations:
inbound events from channel adapters are durably queued on a Redis
Streams bus, routed through an intent classifier under per-identity
admission control, and republished to an outbound topic with
at-least-once delivery.

This CLI appends test messages, tails topics, and reports consumer-group
status. The pipeline itself runs as the relay-worker daemon.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// busClient builds a bus client from the global --redis and --name flags,
// falling back to REDIS_URL and RELAY_INSTANCE_NAME.
func busClient() (*stream.Client, error) {
	url := redisURL
	if url == "" {
		url = os.Getenv("REDIS_URL")
	}
	if url == "" {
		url = "redis://localhost:6379"
	}

	name := instanceName
	if name == "" {
		name = os.Getenv("RELAY_INSTANCE_NAME")
	}
	if name == "" {
		name = "default"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL %q: %w", url, err)
	}
	return stream.NewClient(opts, name)
}

var (
	redisURL     string
	instanceName string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&redisURL, "redis", "", "Redis URL (default: REDIS_URL or redis://localhost:6379)")
	rootCmd.PersistentFlags().StringVarP(&instanceName, "name", "n", "", "Relay instance name (default: RELAY_INSTANCE_NAME or \"default\")")
}
