package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qshield/internal/domain"
)

// sendCmd encrypts and sends a message to <peer>.
func sendCmd() *cobra.Command {
	var me string

	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			peer := domain.Peer(args[0])
			err := appCtx.SendMessage(passphrase, domain.Peer(me), peer, []byte(args[1]))
			if err != nil {
				return fmt.Errorf("sending message to %q: %w", peer, err)
			}
			fmt.Println("Message sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&me, "id", "u", "", "your relay identity")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
