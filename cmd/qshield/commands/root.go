package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"qshield/internal/app"
)

var (
	// These flags are shared across all commands.
	homeDir    string
	relayURL   string
	profile    string
	passphrase string

	// appCtx holds the wired dependencies after PersistentPreRunE.
	appCtx *app.Wire
)

// cliConfig is the JSON written by `qshield init` and read back at startup.
type cliConfig struct {
	RelayURL string `json:"relay_url"`
	Profile  string `json:"profile"`
}

func configPath(home string) string { return filepath.Join(home, "config.json") }

// Execute initialises the application context and runs the root cobra command.
func Execute() error {
	root := &cobra.Command{
		Use:   "qshield",
		Short: "Post-quantum secure messaging CLI",
		// Before any sub-command runs we need to build our Wire (dependencies).
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Default home directory to $HOME/.qshield if not provided.
			if homeDir == "" {
				if h, err := os.UserHomeDir(); err == nil {
					homeDir = filepath.Join(h, ".qshield")
				}
			}

			// Stored config supplies defaults; flags win when set.
			if data, err := os.ReadFile(configPath(homeDir)); err == nil {
				var cfg cliConfig
				if err := json.Unmarshal(data, &cfg); err == nil {
					if relayURL == "" {
						relayURL = cfg.RelayURL
					}
					if profile == "" {
						profile = cfg.Profile
					}
				}
			}
			if profile == "" {
				profile = "standard"
			}
			if relayURL == "" {
				return fmt.Errorf("relay URL not configured; pass --relay or run qshield init")
			}

			httpClient := &http.Client{
				Timeout: 15 * time.Second,
				Transport: &http.Transport{
					Proxy: http.ProxyFromEnvironment,
					DialContext: (&net.Dialer{
						Timeout:   5 * time.Second,
						KeepAlive: 30 * time.Second,
					}).DialContext,
					TLSHandshakeTimeout: 5 * time.Second,
					IdleConnTimeout:     90 * time.Second,
					MaxIdleConns:        100,
				},
			}

			wire, err := app.NewWire(app.Config{
				Home:     homeDir,
				RelayURL: relayURL,
				Profile:  profile,
				HTTP:     httpClient,
			})
			if err != nil {
				return err
			}
			appCtx = wire
			return nil
		},
	}

	root.PersistentFlags().StringVar(&homeDir, "home", "", "config directory (default $HOME/.qshield)")
	root.PersistentFlags().StringVar(&relayURL, "relay", "", "relay base URL")
	root.PersistentFlags().StringVar(&profile, "profile", "", "envelope profile: standard, enhanced, private")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "vault passphrase")

	root.AddCommand(
		initCmd(),
		establishCmd(),
		sendCmd(),
		recvCmd(),
		statusCmd(),
	)
	return root.Execute()
}

// requirePassphrase fails fast when a command needs the vault unlocked.
func requirePassphrase() error {
	if passphrase == "" {
		return fmt.Errorf("a passphrase is required; pass --passphrase")
	}
	return nil
}
