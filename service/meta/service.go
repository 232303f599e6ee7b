// Package meta loads YAML or JSON documents (scheduler configuration, graph
// definitions) through afs, expanding ${env.KEY} expressions before decoding.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"gopkg.in/yaml.v3"
)

// Service resolves relative URLs against a base URL and decodes documents.
type Service struct {
	fs      afs.Service
	baseURL string
	options []storage.Option
}

// New creates a meta service; baseURL may be empty. Options are passed to every
// storage call, e.g. an embed.FS for embed:// URLs.
func New(fs afs.Service, baseURL string, options ...storage.Option) *Service {
	if fs == nil {
		fs = afs.New()
	}
	if baseURL != "" {
		baseURL = url.Normalize(baseURL, file.Scheme)
	}
	return &Service{fs: fs, baseURL: baseURL, options: options}
}

// URL returns the absolute location of a document.
func (s *Service) URL(location string) string {
	if s.baseURL != "" && url.IsRelative(location) {
		return url.Join(s.baseURL, location)
	}
	return location
}

// Exists reports whether the document is present.
func (s *Service) Exists(ctx context.Context, location string) (bool, error) {
	return s.fs.Exists(ctx, s.URL(location), s.options...)
}

// Download returns the document content with ${env.KEY} expanded.
func (s *Service) Download(ctx context.Context, location string) ([]byte, error) {
	URL := s.URL(location)
	data, err := s.fs.DownloadWithURL(ctx, URL, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", URL, err)
	}
	return []byte(expandEnvExpr(string(data))), nil
}

// Load decodes the document into target; .json documents use encoding/json,
// everything else yaml.v3.
func (s *Service) Load(ctx context.Context, location string, target interface{}) error {
	data, err := s.Download(ctx, location)
	if err != nil {
		return err
	}
	if strings.EqualFold(path.Ext(url.Path(s.URL(location))), ".json") {
		err = json.Unmarshal(data, target)
	} else {
		err = yaml.Unmarshal(data, target)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", s.URL(location), err)
	}
	return nil
}
