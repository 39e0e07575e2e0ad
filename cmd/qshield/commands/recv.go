package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qshield/internal/domain"
)

// recvCmd polls the relay and opens whatever arrived. Rejected envelopes are
// reported with their reason code and consume no session state.
func recvCmd() *cobra.Command {
	var me string
	var max int

	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Fetch and decrypt pending messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			msgs, err := appCtx.RecvMessages(passphrase, domain.Peer(me), max)
			if err != nil {
				return fmt.Errorf("fetching messages: %w", err)
			}
			if len(msgs) == 0 {
				fmt.Println("No messages")
				return nil
			}
			for _, m := range msgs {
				if m.Err != nil {
					fmt.Printf("[rejected] %v\n", m.Err)
					continue
				}
				fmt.Printf("%s: %s\n", m.From, m.Plaintext)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&me, "id", "u", "", "your relay identity")
	cmd.Flags().IntVar(&max, "max", 16, "maximum messages to fetch")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
