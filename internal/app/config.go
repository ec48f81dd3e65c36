package app

import (
	"net/http"

	"go.uber.org/zap"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home     string // config directory, e.g. $HOME/.cloak
	RelayURL string // relay base URL, e.g. http://127.0.0.1:8080
	Identity string // local identity name, e.g. alice

	// RequireVerified restricts outbound encryption to VERIFIED sessions.
	RequireVerified bool
	// ConfirmOnWarn suspends sends with warn-tier scan findings until the
	// user confirms.
	ConfirmOnWarn bool

	HTTP   *http.Client // optional; defaults to http.DefaultClient
	Logger *zap.Logger  // optional; defaults to a no-op logger
}
