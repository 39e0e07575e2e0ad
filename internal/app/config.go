package app

import (
	"net/http"

	"qshield/internal/kt"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string       // config directory, e.g. $HOME/.qshield
	RelayURL string       // relay base URL, e.g. http://127.0.0.1:8080
	Profile  string       // envelope profile name: standard, enhanced, private
	HTTP     *http.Client // optional; defaults to http.DefaultClient
	Verifier kt.Verifier  // optional; defaults to the refusing stub
}
