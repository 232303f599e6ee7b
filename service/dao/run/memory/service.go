// Package memory archives runs in process memory.
package memory

import (
	"github.com/viant/workgrid/runtime/run"
	"github.com/viant/workgrid/service/dao"
	"github.com/viant/workgrid/service/dao/criteria"
	"github.com/viant/workgrid/service/dao/store"
)

// Service implements an in-memory, thread-safe run archive. All API methods
// work with copies.
type Service struct {
	*store.MemoryStore[string, run.Run]
}

var _ dao.Service[string, run.Run] = (*Service)(nil)

// New creates an empty run archive filtering List by the Status parameter.
func New() *Service {
	return &Service{MemoryStore: store.NewMemoryStore[string, run.Run](
		func(r *run.Run) string { return r.ID },
		(*run.Run).Clone,
		func(r *run.Run, parameters []*dao.Parameter) bool {
			return criteria.FilterByStatus(string(r.Status), parameters)
		},
	)}
}
