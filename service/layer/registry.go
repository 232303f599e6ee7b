package layer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registered layer kinds.
const (
	KindSub               = "Sub"
	KindActivation        = "Activation"
	KindSoftmax           = "Softmax"
	KindSlice             = "Slice"
	KindSplit             = "Split"
	KindBinarySign        = "BinarySign"
	KindBinaryConvolution = "BinaryConvolution"
)

// Constructor creates an unconfigured layer.
type Constructor func(name string, params Params) (Layer, error)

// Registry maps layer kinds (case insensitive) to constructors.
type Registry struct {
	mux          sync.RWMutex
	constructors map[string]Constructor
	kinds        map[string]string
}

// NewRegistry returns a registry holding the built-in layers.
func NewRegistry() *Registry {
	r := &Registry{constructors: map[string]Constructor{}, kinds: map[string]string{}}
	r.Register(KindSub, NewSub)
	r.Register(KindActivation, NewActivation)
	r.Register(KindSoftmax, NewSoftmax)
	r.Register(KindSlice, NewSlice)
	r.Register(KindSplit, NewSplit)
	r.Register(KindBinarySign, NewBinarySign)
	r.Register(KindBinaryConvolution, NewBinaryConvolution)
	return r
}

// Register adds or replaces a constructor.
func (r *Registry) Register(kind string, constructor Constructor) {
	r.mux.Lock()
	defer r.mux.Unlock()
	key := strings.ToLower(kind)
	r.constructors[key] = constructor
	r.kinds[key] = kind
}

// New creates a layer of the given kind.
func (r *Registry) New(kind, name string, params Params) (Layer, error) {
	r.mux.RLock()
	constructor, ok := r.constructors[strings.ToLower(kind)]
	r.mux.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if params == nil {
		params = Params{}
	}
	return constructor(name, params)
}

// Kinds returns registered kinds sorted by name.
func (r *Registry) Kinds() []string {
	r.mux.RLock()
	defer r.mux.RUnlock()
	ret := make([]string, 0, len(r.kinds))
	for _, kind := range r.kinds {
		ret = append(ret, kind)
	}
	sort.Strings(ret)
	return ret
}
