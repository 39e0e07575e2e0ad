package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qshield/internal/domain"
)

// establishCmd binds base-handshake outputs into a suite-2 session for a
// peer. The outputs file comes from the external handshake runner; the KT
// gate refuses when no real verifier is wired.
func establishCmd() *cobra.Command {
	var outputsFile string

	cmd := &cobra.Command{
		Use:   "establish <peer>",
		Short: "Derive a session from base-handshake outputs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			peer := domain.Peer(args[0])
			if err := appCtx.EstablishSession(passphrase, peer, outputsFile); err != nil {
				return fmt.Errorf("establishing session with %q: %w", peer, err)
			}
			fmt.Printf("Session established with %s\n", peer)
			return nil
		},
	}

	cmd.Flags().StringVar(&outputsFile, "outputs", "", "handshake outputs JSON file")
	_ = cmd.MarkFlagRequired("outputs")
	return cmd
}
