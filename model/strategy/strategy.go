// Package strategy enumerates the partitioning strategies a scheduler can use.
package strategy

import (
	"fmt"
	"strings"
)

// Kind identifies how a window is partitioned across workers.
type Kind int

const (
	// Static precomputes one equally sized partition per worker before dispatch.
	Static Kind = iota
	// Dynamic hands out fixed size chunks to idle workers on demand.
	Dynamic
)

var names = map[Kind]string{
	Static:  "STATIC",
	Dynamic: "DYNAMIC",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is a known strategy.
func (k Kind) Valid() bool {
	_, ok := names[k]
	return ok
}

// Parse converts a case insensitive strategy name.
func Parse(name string) (Kind, error) {
	for kind, candidate := range names {
		if strings.EqualFold(strings.TrimSpace(name), candidate) {
			return kind, nil
		}
	}
	return Static, fmt.Errorf("unsupported strategy: %q", name)
}

// MarshalText renders the strategy name.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unsupported strategy: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText parses the strategy name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
