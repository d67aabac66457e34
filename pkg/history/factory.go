package history

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Settings selects and configures a history backend.
type Settings struct {
	// URI picks the backend by scheme: mongodb:// and mongodb+srv:// for
	// MongoDB, sqlite://<path> or file:<path> for SQLite, memory:// for an
	// in-process store.
	URI        string `mapstructure:"uri" yaml:"uri"`
	Database   string `mapstructure:"database" yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

func (s *Settings) Validate() error {
	if strings.TrimSpace(s.URI) == "" {
		return ErrMissingURI
	}
	if _, err := backendForURI(s.URI); err != nil {
		return err
	}
	return nil
}

type backend string

const (
	backendMongo  backend = "mongo"
	backendSQLite backend = "sqlite"
	backendMemory backend = "memory"
)

func backendForURI(uri string) (backend, error) {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return backendMongo, nil
	case strings.HasPrefix(uri, "sqlite://"), strings.HasPrefix(uri, "file:"):
		return backendSQLite, nil
	case strings.HasPrefix(uri, "memory://"):
		return backendMemory, nil
	}
	return "", errors.Wrapf(ErrUnsupportedURI, "scheme of %q", redactURI(uri))
}

// Open creates the configured store, verifies it is reachable and ensures
// its index exists. Any failure closes the store and is meant to abort startup.
func Open(ctx context.Context, settings Settings) (Store, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	b, _ := backendForURI(settings.URI)

	var (
		store Store
		err   error
	)
	switch b {
	case backendMongo:
		store, err = NewMongoStore(ctx, settings.URI, settings.Database, settings.Collection)
	case backendSQLite:
		dsn := settings.URI
		if strings.HasPrefix(dsn, "sqlite://") {
			dsn, err = SQLiteDSNForFile(strings.TrimPrefix(dsn, "sqlite://"))
			if err != nil {
				return nil, err
			}
		}
		store, err = NewSQLiteStore(dsn)
	case backendMemory:
		store = NewInMemoryStore()
	}
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, errors.Wrapf(err, "cannot connect to history store %s", redactURI(settings.URI))
	}
	log.Info().Str("backend", string(b)).Str("uri", redactURI(settings.URI)).Msg("Connected to history store")

	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	return store, nil
}

// redactURI strips credentials from a connection URI before it is logged.
func redactURI(uri string) string {
	schemeEnd := strings.Index(uri, "://")
	if schemeEnd < 0 {
		return uri
	}
	rest := uri[schemeEnd+3:]
	hostEnd := strings.IndexAny(rest, "/?")
	authority := rest
	if hostEnd >= 0 {
		authority = rest[:hostEnd]
	}
	at := strings.LastIndex(authority, "@")
	if at < 0 {
		return uri
	}
	return uri[:schemeEnd+3] + "***@" + rest[at+1:]
}
