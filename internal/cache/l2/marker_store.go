package l2

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-route-guard/internal/interfaces"
)

var (
	_ interfaces.VersionMarkerStore = (*KeyDBMarkerStore)(nil)
	_ interfaces.VersionMarkerStore = (*FileMarkerStore)(nil)
)

// KeyDBMarkerStore keeps the cache version marker in a KeyDB key so that
// every instance sharing the database agrees on it.
type KeyDBMarkerStore struct {
	client interfaces.KeyDbClient
	key    string
	logger *zap.Logger
}

func NewKeyDBMarkerStore(client interfaces.KeyDbClient, key string, logger *zap.Logger) *KeyDBMarkerStore {
	return &KeyDBMarkerStore{client: client, key: key, logger: logger}
}

func (s *KeyDBMarkerStore) Load(ctx context.Context) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read version marker %s: %w", s.key, err)
	}
	return value, true, nil
}

func (s *KeyDBMarkerStore) Store(ctx context.Context, version string) error {
	if err := s.client.Set(ctx, s.key, version, 0).Err(); err != nil {
		return fmt.Errorf("failed to write version marker %s: %w", s.key, err)
	}
	s.logger.Debug("Stored cache version marker", zap.String("key", s.key), zap.String("version", version))
	return nil
}

// FileMarkerStore keeps the cache version marker in a local file
type FileMarkerStore struct {
	path   string
	logger *zap.Logger
}

func NewFileMarkerStore(path string, logger *zap.Logger) *FileMarkerStore {
	return &FileMarkerStore{path: path, logger: logger}
}

func (s *FileMarkerStore) Load(_ context.Context) (string, bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read version marker file %s: %w", s.path, err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

func (s *FileMarkerStore) Store(_ context.Context, version string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(version+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write version marker file %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace version marker file %s: %w", s.path, err)
	}
	s.logger.Debug("Stored cache version marker", zap.String("path", s.path), zap.String("version", version))
	return nil
}
