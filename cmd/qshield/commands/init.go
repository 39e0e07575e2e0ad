package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// initCmd creates the config directory and records the relay and profile
// choices for later commands.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the local config directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(homeDir, 0o700); err != nil {
				return fmt.Errorf("creating config dir: %w", err)
			}
			data, err := json.MarshalIndent(cliConfig{
				RelayURL: relayURL,
				Profile:  profile,
			}, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(configPath(homeDir), data, 0o600); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Initialised %s (relay %s, profile %s)\n", homeDir, relayURL, profile)
			return nil
		},
	}
}
