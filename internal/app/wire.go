package app

import (
	"net/http"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"cloak/internal/dlp"
	"cloak/internal/domain"
	"cloak/internal/services/keyexchange"
	"cloak/internal/services/pipeline"
	"cloak/internal/services/verify"
	"cloak/internal/store"
	"cloak/internal/transport"
)

// App bundles the stores, protocol clients and high-level services for the
// CLI. Close must be called to release the underlying database.
type App struct {
	Me        domain.RemoteIdentity
	Identity  domain.IdentityStore
	Sessions  domain.SessionStore
	PreKeys   domain.PreKeyStore
	Directory domain.Directory
	Transport domain.Transport
	Exchange  domain.KeyExchangeService
	Verifier  domain.VerificationService
	Scanner   domain.Scanner
	Messages  domain.MessageService
	Log       *zap.Logger

	db *badger.DB
}

// New constructs the dependency graph from cfg. auth may be nil when no
// biometric authenticator is available.
func New(cfg Config, auth domain.Authenticator) (*App, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	db, err := store.OpenDB(filepath.Join(cfg.Home, "db"))
	if err != nil {
		return nil, err
	}

	identityStore := store.NewIdentityFileStore(cfg.Home)
	sessionStore := store.NewSessionBadgerStore(db)
	prekeyStore := store.NewPreKeyBadgerStore(db)

	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	relay := transport.NewHTTPClient(cfg.RelayURL, httpClient)

	me := domain.RemoteIdentity(cfg.Identity)

	exchange := keyexchange.New(identityStore, prekeyStore, sessionStore, relay, log)
	verifier := verify.New(sessionStore, auth, log)
	scanner := dlp.New(log, dlp.Config{ConfirmOnWarn: cfg.ConfirmOnWarn})
	messages := pipeline.New(me, sessionStore, exchange, scanner, relay,
		pipeline.Policy{RequireVerified: cfg.RequireVerified}, log)

	return &App{
		Me:        me,
		Identity:  identityStore,
		Sessions:  sessionStore,
		PreKeys:   prekeyStore,
		Directory: relay,
		Transport: relay,
		Exchange:  exchange,
		Verifier:  verifier,
		Scanner:   scanner,
		Messages:  messages,
		Log:       log,
		db:        db,
	}, nil
}

// Close flushes and closes the session database.
func (a *App) Close() error {
	return a.db.Close()
}
