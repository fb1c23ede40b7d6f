// Package fs persists engine checkpoints as JSON documents on any storage
// supported by viant/afs (local file system, s3, gs, mem, ...). Writes are
// atomic: the snapshot is uploaded to a temporary object first and then moved
// to its final location, so a crashed writer never leaves a partial
// checkpoint behind.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	"github.com/viant/cyclor/runtime/state"
	"github.com/viant/cyclor/service/dao"
)

const checkpointExt = ".json"

// Service implements filesystem-based checkpoint storage.
type Service struct {
	basePath string
	fs       afs.Service
	mu       sync.RWMutex
}

// Ensure Service implements dao.Service.
var _ dao.Service[string, state.Snapshot] = (*Service)(nil)

// Save persists a snapshot under id.
func (s *Service) Save(ctx context.Context, id string, snapshot *state.Snapshot) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint %s: %w", id, err)
	}

	// Write-temp-then-move keeps the final object atomic.
	tempPath := s.checkpointPath(id) + ".tmp-" + uuid.New().String()
	if err = s.fs.Upload(ctx, tempPath, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", id, err)
	}
	if err = s.fs.Move(ctx, tempPath, s.checkpointPath(id)); err != nil {
		_ = s.fs.Delete(ctx, tempPath)
		return fmt.Errorf("failed to finalize checkpoint %s: %w", id, err)
	}
	return nil
}

// Load retrieves a snapshot by id.
func (s *Service) Load(ctx context.Context, id string) (*state.Snapshot, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	filePath := s.checkpointPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to check checkpoint %s: %w", id, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}

	data, err := s.fs.DownloadWithURL(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", id, err)
	}

	var snapshot state.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint %s: %w", id, err)
	}
	snapshot.Normalize()
	return &snapshot, nil
}

// Delete removes a checkpoint by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	filePath := s.checkpointPath(id)
	exists, err := s.fs.Exists(ctx, filePath)
	if err != nil {
		return fmt.Errorf("failed to check checkpoint %s: %w", id, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	return s.fs.Delete(ctx, filePath)
}

// List returns the ids of all stored checkpoints.
func (s *Service) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}

	var ids []string
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		name := object.Name()
		if !strings.HasSuffix(name, checkpointExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, checkpointExt))
	}
	return ids, nil
}

// checkpointPath returns the object path for a checkpoint id.
func (s *Service) checkpointPath(id string) string {
	return path.Join(s.basePath, id+checkpointExt)
}

// New creates a filesystem checkpoint store rooted at basePath.
func New(basePath string) (*Service, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	fsService := afs.New()

	ctx := context.Background()
	exists, _ := fsService.Exists(ctx, basePath)
	if !exists {
		if err := fsService.Create(ctx, basePath, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	basePath = url.Normalize(basePath, file.Scheme)

	return &Service{
		basePath: basePath,
		fs:       fsService,
	}, nil
}
