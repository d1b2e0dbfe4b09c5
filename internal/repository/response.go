package repository

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/officine/bilan/internal/model"
)

type ResponseRepository interface {
	FindBySessionID(ctx context.Context, sessionID string) (*model.ResponseRecord, error)
	Exists(ctx context.Context, sessionID string) bool
	// Save replaces any earlier submission for the session.
	Save(ctx context.Context, record *model.ResponseRecord) error
}

type responseRepo struct {
	dir string
}

func NewResponseRepository(sessionsDir string) ResponseRepository {
	return &responseRepo{dir: sessionsDir}
}

func (r *responseRepo) path(sessionID string) string {
	return filepath.Join(r.dir, sessionID+"_responses.json")
}

func (r *responseRepo) FindBySessionID(_ context.Context, sessionID string) (*model.ResponseRecord, error) {
	var record model.ResponseRecord
	found, err := readJSON(r.path(sessionID), &record)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &record, nil
}

func (r *responseRepo) Exists(_ context.Context, sessionID string) bool {
	return fileExists(r.path(sessionID))
}

func (r *responseRepo) Save(_ context.Context, record *model.ResponseRecord) error {
	payload, err := encodeJSON(record)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(r.path(record.SessionID), payload, 0o644); err != nil {
		return fmt.Errorf("save responses %s: %w", record.SessionID, err)
	}
	return nil
}
