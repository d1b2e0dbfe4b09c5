package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

type SecretRepository interface {
	// Load returns found=false when no secret has been written yet.
	Load(ctx context.Context) (secret string, found bool, err error)
	// CreateIfAbsent stores candidate unless a secret already exists, and returns
	// whichever secret is now on disk.
	CreateIfAbsent(ctx context.Context, candidate string) (string, error)
}

type secretRepo struct {
	path string
}

func NewSecretRepository(path string) SecretRepository {
	return &secretRepo{path: path}
}

func (r *secretRepo) Load(_ context.Context) (string, bool, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read qr secret: %w", err)
	}
	secret := strings.TrimSpace(string(raw))
	if secret == "" {
		return "", false, nil
	}
	return secret, true, nil
}

func (r *secretRepo) CreateIfAbsent(ctx context.Context, candidate string) (string, error) {
	err := writeFileExclusive(r.path, []byte(candidate), 0o600)
	if err == nil {
		return candidate, nil
	}
	if !errors.Is(err, ErrAlreadyExists) {
		return "", fmt.Errorf("write qr secret: %w", err)
	}

	existing, found, err := r.Load(ctx)
	if err != nil {
		return "", err
	}
	if !found {
		// An empty file is left over from an interrupted manual edit.
		if err := writeFileAtomic(r.path, []byte(candidate), 0o600); err != nil {
			return "", fmt.Errorf("write qr secret: %w", err)
		}
		return candidate, nil
	}
	return existing, nil
}
