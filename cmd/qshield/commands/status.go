package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qshield/internal/domain"
)

// statusCmd prints the stored session counters for a peer.
func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <peer>",
		Short: "Show session counters for a peer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			st, err := appCtx.Status(passphrase, domain.Peer(args[0]))
			if err != nil {
				return err
			}
			fmt.Printf("peer:                 %s\n", st.Peer)
			fmt.Printf("profile:              %s\n", st.Profile)
			fmt.Printf("sent (current chain): %d\n", st.SendCount)
			fmt.Printf("received:             %d\n", st.RecvCount)
			fmt.Printf("next advertisement:   %d\n", st.NextAdvID)
			fmt.Printf("peer max adv seen:    %d\n", st.PeerMaxAdvIDSeen)
			fmt.Printf("skipped keys cached:  %d\n", st.SkippedKeys)
			fmt.Printf("known targets:        %d\n", st.KnownTargets)
			fmt.Printf("tombstoned targets:   %d\n", st.TombstonedTargets)
			return nil
		},
	}
}
