package store

import (
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

// OpenDB opens the engine's badger database rooted at dir. One DB backs all
// badger stores in the process; the caller owns closing it.
func OpenDB(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	// Session records are small and must survive a crash between persist
	// and transport send, so keep synchronous writes on.
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %s", dir)
	}
	return db, nil
}
