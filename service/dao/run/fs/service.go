// Package fs archives runs as JSON documents, one per run, under a base URL
// served by github.com/viant/afs (local file system, mem://, cloud storage).
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/dao"
	"github.com/viant/workgrid/service/dao/criteria"
)

// Service implements an afs based run archive
type Service struct {
	baseURL string
	fs      afs.Service
	logger  *slog.Logger
	mu      sync.RWMutex
}

var _ dao.Service[string, run.Run] = (*Service)(nil)

// Save persists a run
func (s *Service) Save(ctx context.Context, aRun *run.Run) error {
	if aRun == nil {
		return dao.ErrNilEntity
	}
	if aRun.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(aRun.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	URL := s.runURL(aRun.ID)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save run to %s: %w", URL, err)
	}
	return nil
}

// Load retrieves a run
func (s *Service) Load(ctx context.Context, id string) (*run.Run, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	URL := s.runURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check if run exists: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("run %s: %w", id, dao.ErrNotFound)
	}
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}
	aRun := &run.Run{}
	if err := json.Unmarshal(data, aRun); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
	}
	return aRun, nil
}

// Delete removes a run
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	URL := s.runURL(id)
	exists, err := s.fs.Exists(ctx, URL)
	if err != nil {
		return fmt.Errorf("failed to check if run exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("run %s: %w", id, dao.ErrNotFound)
	}
	if err := s.fs.Delete(ctx, URL); err != nil {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

// List returns archived runs ordered by start time. Unreadable documents are
// logged and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*run.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}
	var runs []*run.Run
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			s.logger.Warn("failed to read run file", "url", object.URL(), "error", err)
			continue
		}
		aRun := &run.Run{}
		if err := json.Unmarshal(data, aRun); err != nil {
			s.logger.Warn("failed to unmarshal run file", "url", object.URL(), "error", err)
			continue
		}
		if !criteria.FilterByStatus(string(aRun.Status), parameters) {
			continue
		}
		runs = append(runs, aRun)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].StartTime.Before(runs[j].StartTime) })
	return runs, nil
}

func (s *Service) runURL(id string) string {
	return url.Join(s.baseURL, path.Base(id)+".json")
}

// Option configures the store.
type Option func(*Service)

// WithLogger sets the logger used for skipped documents.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithFS sets the storage service.
func WithFS(fs afs.Service) Option {
	return func(s *Service) {
		s.fs = fs
	}
}

// New creates a run archive rooted at baseURL, creating it when missing.
func New(ctx context.Context, baseURL string, options ...Option) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	s := &Service{baseURL: url.Normalize(baseURL, file.Scheme)}
	for _, opt := range options {
		opt(s)
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	exists, _ := s.fs.Exists(ctx, s.baseURL)
	if !exists {
		if err := s.fs.Create(ctx, s.baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}
	return s, nil
}
