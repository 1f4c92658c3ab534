package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ajitpratap0/nebula-firestore/pkg/logger"
	"github.com/ajitpratap0/nebula-firestore/pkg/nebulaerrors"
	"github.com/ajitpratap0/nebula-firestore/pkg/propertymap"
	"go.uber.org/zap"
)

// Registry maps format names to the decoders workers use to read the
// property maps shipped with a task.
type Registry struct {
	decoders map[string]Decoder
	mu       sync.RWMutex
	logger   *zap.Logger
}

// Params is what a decoder returns. Both propertymap.SourceParams and
// propertymap.SinkParams satisfy it.
type Params interface {
	Connection() propertymap.ConnectionParams
}

// Decoder reads a property map written for one format.
type Decoder func(m *propertymap.Map) (Params, error)

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new format registry
func NewRegistry() *Registry {
	return &Registry{
		decoders: make(map[string]Decoder),
		logger:   logger.Get().With(zap.String("component", "format_registry")),
	}
}

// Register registers a decoder under name
func (r *Registry) Register(name string, decoder Decoder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.decoders[name]; exists {
		return nebulaerrors.New(nebulaerrors.ErrorTypeConfig, fmt.Sprintf("format %s already registered", name))
	}

	r.decoders[name] = decoder
	r.logger.Debug("format registered", zap.String("name", name))
	return nil
}

// Decode decodes m with the decoder registered under name. Decoder errors
// are returned unchanged so that codec mismatches keep their type.
func (r *Registry) Decode(name string, m *propertymap.Map) (Params, error) {
	r.mu.RLock()
	decoder, exists := r.decoders[name]
	r.mu.RUnlock()

	if !exists {
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeNotFound, fmt.Sprintf("format %s not found", name))
	}
	return decoder(m)
}

// List returns the registered format names in lexical order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a format is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.decoders[name]
	return exists
}

// Clear removes all registered formats (mainly for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.decoders = make(map[string]Decoder)
}

// Global registry functions

// Register registers a decoder in the global registry
func Register(name string, decoder Decoder) error {
	return globalRegistry.Register(name, decoder)
}

// Decode decodes with the global registry
func Decode(name string, m *propertymap.Map) (Params, error) {
	return globalRegistry.Decode(name, m)
}

// List returns the formats in the global registry
func List() []string {
	return globalRegistry.List()
}

// Has checks if a format is registered in the global registry
func Has(name string) bool {
	return globalRegistry.Has(name)
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
