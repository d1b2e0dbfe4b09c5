package repository

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/officine/bilan/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	Exists(ctx context.Context, id string) bool
	// Create fails with ErrAlreadyExists instead of overwriting another session.
	Create(ctx context.Context, session *model.Session) error
	Update(ctx context.Context, session *model.Session) error
}

type sessionRepo struct {
	dir string
}

func NewSessionRepository(sessionsDir string) SessionRepository {
	return &sessionRepo{dir: sessionsDir}
}

func (r *sessionRepo) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *sessionRepo) FindByID(_ context.Context, id string) (*model.Session, error) {
	var session model.Session
	found, err := readJSON(r.path(id), &session)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &session, nil
}

func (r *sessionRepo) Exists(_ context.Context, id string) bool {
	return fileExists(r.path(id))
}

func (r *sessionRepo) Create(_ context.Context, session *model.Session) error {
	payload, err := encodeJSON(session)
	if err != nil {
		return err
	}
	if err := writeFileExclusive(r.path(session.SessionID), payload, 0o644); err != nil {
		return fmt.Errorf("create session %s: %w", session.SessionID, err)
	}
	return nil
}

func (r *sessionRepo) Update(_ context.Context, session *model.Session) error {
	payload, err := encodeJSON(session)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(r.path(session.SessionID), payload, 0o644); err != nil {
		return fmt.Errorf("update session %s: %w", session.SessionID, err)
	}
	return nil
}
