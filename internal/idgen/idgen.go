package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier. Override in tests to get
// stable run IDs.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new run identifier.
func New() string { return NewFunc() }
