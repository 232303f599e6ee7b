package layer

import (
	"fmt"
	"math"
	"strings"

	"github.com/viant/toolbox"
)

// Params are layer parameters as decoded from a graph definition.
type Params map[string]interface{}

func (p Params) lookup(name string) (interface{}, bool) {
	if v, ok := p[name]; ok {
		return v, true
	}
	for k, v := range p {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Int returns an integer parameter or def when absent.
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p.lookup(name)
	if !ok || v == nil {
		return def, nil
	}
	return toInt(name, v)
}

// Float returns a float parameter or def when absent.
func (p Params) Float(name string, def float64) (float64, error) {
	v, ok := p.lookup(name)
	if !ok || v == nil {
		return def, nil
	}
	f, err := toolbox.ToFloat(v)
	if err != nil {
		return 0, fmt.Errorf("param %v: %w", name, err)
	}
	return f, nil
}

// String returns a string parameter or def when absent.
func (p Params) String(name string, def string) string {
	v, ok := p.lookup(name)
	if !ok || v == nil {
		return def
	}
	return toolbox.AsString(v)
}

// Ints returns an integer list parameter, nil when absent.
func (p Params) Ints(name string) ([]int, error) {
	v, ok := p.lookup(name)
	if !ok || v == nil {
		return nil, nil
	}
	if !toolbox.IsSlice(v) {
		return nil, fmt.Errorf("param %v: expected a list, got %T", name, v)
	}
	items := toolbox.AsSlice(v)
	ret := make([]int, len(items))
	for i, item := range items {
		value, err := toInt(name, item)
		if err != nil {
			return nil, err
		}
		ret[i] = value
	}
	return ret, nil
}

func toInt(name string, v interface{}) (int, error) {
	if f, ok := v.(float64); ok && f != math.Trunc(f) {
		return 0, fmt.Errorf("param %v: %v is not an integer", name, f)
	}
	i, err := toolbox.ToInt(v)
	if err != nil {
		return 0, fmt.Errorf("param %v: %w", name, err)
	}
	return i, nil
}
