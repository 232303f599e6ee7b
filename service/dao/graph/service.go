// Package graph loads layer graph definitions from YAML documents.
package graph

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/viant/workgrid/model/graph"
	"github.com/viant/workgrid/service/meta"
)

var counter int32

// Service loads and validates graphs.
type Service struct {
	metaService *meta.Service
}

// Option configures the loader.
type Option func(*Service)

// WithMetaService sets the meta service
func WithMetaService(metaService *meta.Service) Option {
	return func(s *Service) {
		s.metaService = metaService
	}
}

// New creates a graph loader.
func New(options ...Option) *Service {
	s := &Service{}
	for _, opt := range options {
		opt(s)
	}
	if s.metaService == nil {
		s.metaService = meta.New(nil, "")
	}
	return s
}

// DecodeYAML decodes and validates a graph.
func (s *Service) DecodeYAML(encoded []byte) (*graph.Graph, error) {
	ret := &graph.Graph{}
	if err := yaml.Unmarshal(encoded, ret); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return s.prepare("", ret)
}

// Load loads a graph from YAML at the specified URL; ".yaml" is appended when
// the URL has no extension.
func (s *Service) Load(ctx context.Context, URL string) (*graph.Graph, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	ret := &graph.Graph{}
	if err := s.metaService.Load(ctx, URL, ret); err != nil {
		return nil, fmt.Errorf("failed to load graph from %s: %w", URL, err)
	}
	return s.prepare(s.metaService.URL(URL), ret)
}

func (s *Service) prepare(URL string, g *graph.Graph) (*graph.Graph, error) {
	if URL != "" {
		g.Source = &graph.Source{URL: URL}
	}
	if g.Name == "" {
		g.Name = nameFromURL(URL)
	}
	if g.Name == "" {
		g.Name = fmt.Sprintf("anonymous-%d", atomic.AddInt32(&counter, 1))
	}
	if issues := g.Validate(); len(issues) > 0 {
		return nil, fmt.Errorf("invalid graph %s: %w", g.Name, multierror.Append(nil, issues...))
	}
	return g, nil
}

// nameFromURL extracts the file name without extension.
func nameFromURL(URL string) string {
	if URL == "" {
		return ""
	}
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
