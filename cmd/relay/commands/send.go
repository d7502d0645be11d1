package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dyluth/relay/internal/printer"
	"github.com/dyluth/relay/pkg/envelope"
)

var (
	sendTopic        string
	sendChannel      string
	sendFrom         string
	sendTo           string
	sendConversation string
	sendMediaURL     string
)

var sendCmd = &cobra.Command{
	Use:   "send TEXT",
	Short: "Append a Canonical Message to a topic",
	Long: `Append a Canonical Message to a bus topic, the way a channel
adapter would. Useful for exercising the pipeline without a live
channel feed.

Examples:
  # Send an inbound message to the default inbound topic
  relay send "Quero orçamento"

  # Send as a specific identity on a named conversation
  relay send --from user-42 --conversation conv-7 "preciso de ajuda"`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendTopic, "topic", "inbound", "Target topic")
	sendCmd.Flags().StringVar(&sendChannel, "channel", "chat-app", "Originating channel name")
	sendCmd.Flags().StringVar(&sendFrom, "from", "cli-user", "Sender identity reference")
	sendCmd.Flags().StringVar(&sendTo, "to", "relay", "Recipient identity reference")
	sendCmd.Flags().StringVar(&sendConversation, "conversation", "", "Conversation id (generated if omitted)")
	sendCmd.Flags().StringVar(&sendMediaURL, "media-url", "", "Optional media payload URL")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	client, err := busClient()
	if err != nil {
		return printer.Error("Failed to connect to Redis", err.Error(), nil)
	}
	defer client.Close()

	conversation := sendConversation
	if conversation == "" {
		conversation = uuid.New().String()
	}

	msg := &envelope.Message{
		ID:             uuid.New().String(),
		Channel:        sendChannel,
		Direction:      envelope.DirectionIn,
		ConversationID: conversation,
		From:           sendFrom,
		To:             sendTo,
		Timestamp:      time.Now().UTC(),
		Text:           args[0],
		MediaURL:       sendMediaURL,
	}
	if err := msg.Validate(); err != nil {
		return printer.Error("Invalid message", err.Error(), nil)
	}

	payload, err := msg.Encode()
	if err != nil {
		return printer.Error("Failed to encode message", err.Error(), nil)
	}

	entryID, err := client.Append(context.Background(), sendTopic, payload)
	if err != nil {
		return printer.Error("Failed to append message", err.Error(),
			[]string{"Check that Redis is running and reachable"})
	}

	printer.Success("Appended message %s to topic %s as entry %s\n", msg.ID, sendTopic, entryID)
	return nil
}
