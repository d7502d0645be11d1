package commands

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dyluth/relay/internal/printer"
	"github.com/dyluth/relay/pkg/envelope"
)

var tailCount int64

var tailCmd = &cobra.Command{
	Use:   "tail TOPIC",
	Short: "Print the oldest entries of a topic",
	Long: `Read entries from a topic without consuming them and print each
as one JSON line. Dead-letter streams can be inspected the same way
(e.g. "relay tail inbound:dead").

Examples:
  relay tail outbound
  relay tail inbound --count 50`,
	Args: cobra.ExactArgs(1),
	RunE: runTail,
}

func init() {
	tailCmd.Flags().Int64Var(&tailCount, "count", 20, "Maximum entries to print")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	client, err := busClient()
	if err != nil {
		return printer.Error("Failed to connect to Redis", err.Error(), nil)
	}
	defer client.Close()

	entries, err := client.Range(context.Background(), args[0], tailCount)
	if err != nil {
		return printer.Error("Failed to read topic", err.Error(), nil)
	}

	for _, e := range entries {
		line := map[string]interface{}{"entry_id": e.ID}
		if msg, err := envelope.Decode(e.Payload); err == nil {
			line["message"] = msg
		} else {
			line["payload"] = string(e.Payload)
		}
		out, _ := json.Marshal(line)
		printer.Println(string(out))
	}
	return nil
}
