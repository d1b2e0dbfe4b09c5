package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentRepository stores the markdown files written next to the sessions.
type DocumentRepository interface {
	Read(ctx context.Context, name string) (content string, found bool, err error)
	Write(ctx context.Context, name, content string) error
	Path(name string) string
}

type documentRepo struct {
	dir string
}

func NewDocumentRepository(sessionsDir string) DocumentRepository {
	return &documentRepo{dir: sessionsDir}
}

func (r *documentRepo) Path(name string) string {
	return filepath.Join(r.dir, filepath.Base(name))
}

func (r *documentRepo) Read(_ context.Context, name string) (string, bool, error) {
	raw, err := os.ReadFile(r.Path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read %s: %w", name, err)
	}
	return string(raw), true, nil
}

func (r *documentRepo) Write(_ context.Context, name, content string) error {
	if err := writeFileAtomic(r.Path(name), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

type PromptRepository interface {
	// Load returns the trimmed prompt, empty when the file is missing.
	Load(ctx context.Context) (string, error)
}

type promptRepo struct {
	path string
}

func NewPromptRepository(path string) PromptRepository {
	return &promptRepo{path: path}
}

func (r *promptRepo) Load(_ context.Context) (string, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
