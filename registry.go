package jsonapikit

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
)

// DecodeFunc builds a resource from the raw JSON of one resource object.
type DecodeFunc func(data []byte) (AnyResource, error)

// Registry maps wire type names to decoders. Registrations are additive and
// the last registration for a name wins. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]DecodeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]DecodeFunc),
	}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry used by clients that
// were not given one with WithRegistry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register associates typeName with fn, replacing any previous decoder.
func (r *Registry) Register(typeName string, fn DecodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[typeName] = fn
}

// Resolve returns the decoder for typeName or an *UnknownResourceTypeError.
func (r *Registry) Resolve(typeName string) (DecodeFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.decoders[typeName]
	if !ok {
		return nil, &UnknownResourceTypeError{TypeName: typeName}
	}
	return fn, nil
}

// TypeNames lists registered names in sorted order.
func (r *Registry) TypeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Decode reads the "type" member of a single resource object and decodes it
// with the matching decoder.
func (r *Registry) Decode(data []byte) (AnyResource, error) {
	typeField := gjson.GetBytes(data, "type")
	if !typeField.Exists() || typeField.Type != gjson.String {
		return nil, fmt.Errorf("jsonapikit: resource object has no string \"type\" member")
	}

	fn, err := r.Resolve(typeField.String())
	if err != nil {
		return nil, err
	}
	return fn(data)
}

// RegisterResource registers T under typeName in reg (DefaultRegistry when
// reg is nil). Decoded values whose "type" differs from typeName are rejected.
func RegisterResource[T AnyResource](reg *Registry, typeName string) {
	if reg == nil {
		reg = defaultRegistry
	}
	reg.Register(typeName, func(data []byte) (AnyResource, error) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("jsonapikit: decode %q resource: %w", typeName, err)
		}
		if got := v.ResourceType(); got != typeName {
			return nil, fmt.Errorf("jsonapikit: resource type %q does not match registered type %q", got, typeName)
		}
		return v, nil
	})
}
