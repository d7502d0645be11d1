package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dyluth/relay/internal/printer"
)

var (
	statusGroup    string
	statusInbound  string
	statusOutbound string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report topic depths and pending work",
	Long: `Report the length of the inbound and outbound topics and how many
inbound entries are claimed but not yet acknowledged by the worker group.

A persistently growing pending count usually means workers are crashing
before acking or publish retries are being exhausted.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusGroup, "group", "relay-workers", "Worker consumer group")
	statusCmd.Flags().StringVar(&statusInbound, "inbound", "inbound", "Inbound topic name")
	statusCmd.Flags().StringVar(&statusOutbound, "outbound", "outbound", "Outbound topic name")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := busClient()
	if err != nil {
		return printer.Error("Failed to connect to Redis", err.Error(), nil)
	}
	defer client.Close()

	ctx := context.Background()

	inLen, err := client.Length(ctx, statusInbound)
	if err != nil {
		return printer.Error("Failed to read inbound topic", err.Error(), nil)
	}
	outLen, err := client.Length(ctx, statusOutbound)
	if err != nil {
		return printer.Error("Failed to read outbound topic", err.Error(), nil)
	}

	printer.Printf("Inbound topic:   %d entries\n", inLen)
	printer.Printf("Outbound topic:  %d entries\n", outLen)

	pending, err := client.PendingCount(ctx, statusInbound, statusGroup)
	if err != nil {
		// The group may simply not exist yet (no worker has run).
		printer.Warning("No pending data for group %s (has a worker run yet?)\n", statusGroup)
		return nil
	}
	printer.Printf("Pending (group %s): %d entries\n", statusGroup, pending)
	return nil
}
