package session

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const DefaultMarkerFile = "session.txt"

// Resolution is the outcome of resolving the session for a run.
type Resolution struct {
	SessionID string
	// Resumed is true when the id was read from an existing marker.
	Resumed bool
}

// Resolver decides which session a run belongs to, using a small marker file
// holding the last used session id.
type Resolver struct {
	fs    afero.Fs
	path  string
	newID func() string
}

type ResolverOption func(*Resolver)

func WithIDGenerator(f func() string) ResolverOption {
	return func(r *Resolver) {
		r.newID = f
	}
}

func NewResolver(fs afero.Fs, path string, options ...ResolverOption) *Resolver {
	if path == "" {
		path = DefaultMarkerFile
	}
	ret := &Resolver{
		fs:    fs,
		path:  path,
		newID: uuid.NewString,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (r *Resolver) Path() string {
	return r.path
}

// Resolve returns the session id stored in the marker, or creates a new one
// and writes it to the marker.
//
// The stored id is not checked against the history store: a marker pointing
// at an unknown session resumes an empty history.
func (r *Resolver) Resolve() (Resolution, error) {
	id, err := r.Current()
	if err != nil {
		return Resolution{}, err
	}
	if id != "" {
		log.Debug().Str("marker", r.path).Str("session_id", id).Msg("Resuming session from marker")
		return Resolution{SessionID: id, Resumed: true}, nil
	}

	id = r.newID()
	if err := r.write(id); err != nil {
		return Resolution{}, err
	}
	log.Debug().Str("marker", r.path).Str("session_id", id).Msg("Started new session")
	return Resolution{SessionID: id, Resumed: false}, nil
}

// Current returns the session id stored in the marker without creating one.
// A missing or empty marker yields an empty id.
func (r *Resolver) Current() (string, error) {
	b, err := afero.ReadFile(r.fs, r.path)
	switch {
	case err == nil:
		id := strings.TrimSpace(string(b))
		if id == "" {
			log.Warn().Str("marker", r.path).Msg("Session marker is empty")
		}
		return id, nil
	case errors.Is(err, os.ErrNotExist):
		return "", nil
	default:
		return "", errors.Wrapf(err, "could not read session marker %s", r.path)
	}
}

// Reset removes the marker so that the next Resolve starts a new session.
func (r *Resolver) Reset() error {
	err := r.fs.Remove(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrapf(err, "could not remove session marker %s", r.path)
	}
	return nil
}

func (r *Resolver) write(id string) error {
	if dir := filepath.Dir(r.path); dir != "." && dir != "" {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "could not create directory for session marker %s", r.path)
		}
	}
	if err := afero.WriteFile(r.fs, r.path, []byte(id), 0o644); err != nil {
		return errors.Wrapf(err, "could not write session marker %s", r.path)
	}
	return nil
}
