package connector

import (
	"context"

	"github.com/ajitpratap0/nebula-firestore/pkg/connection"
	"github.com/ajitpratap0/nebula-firestore/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-firestore/pkg/propertymap"
	"github.com/ajitpratap0/nebula-firestore/pkg/validation"
)

// Format names shipped alongside the property map.
const (
	SourceFormatName = "firestore-source"
	SinkFormatName   = "firestore-sink"
)

func init() {
	must(registry.Register(SourceFormatName, func(m *propertymap.Map) (registry.Params, error) {
		return propertymap.DecodeSource(m)
	}))
	must(registry.Register(SinkFormatName, func(m *propertymap.Map) (registry.Params, error) {
		return propertymap.DecodeSink(m)
	}))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Format is what the client hands the host framework for one stage: a
// format name and the properties a worker needs.
type Format struct {
	Name       string
	Properties *propertymap.Map
}

// SourceFormat validates spec and encodes it for read workers.
func SourceFormat(spec connection.SourceSpec) (*Format, error) {
	failures := validation.ValidateSource(spec)
	if err := failures.Err(); err != nil {
		failures.Record()
		return nil, err
	}
	m, err := propertymap.EncodeSource(spec)
	if err != nil {
		return nil, err
	}
	return &Format{Name: SourceFormatName, Properties: m}, nil
}

// SinkFormat validates spec and encodes it for write workers.
func SinkFormat(spec connection.SinkSpec) (*Format, error) {
	failures := validation.ValidateSink(spec)
	if err := failures.Err(); err != nil {
		failures.Record()
		return nil, err
	}
	m, err := propertymap.EncodeSink(spec)
	if err != nil {
		return nil, err
	}
	return &Format{Name: SinkFormatName, Properties: m}, nil
}

// Task is what a worker holds while it runs: the decoded parameters and an
// open handle.
type Task struct {
	Params registry.Params
	Handle *Handle
}

// Close closes the task's handle.
func (t *Task) Close() error {
	return t.Handle.Close()
}

// OpenFormat decodes m with the decoder registered for name and opens a
// handle for it.
func (f *Factory) OpenFormat(ctx context.Context, name string, m *propertymap.Map) (*Task, error) {
	params, err := registry.Decode(name, m)
	if err != nil {
		return nil, err
	}
	h, err := f.OpenParams(ctx, params.Connection())
	if err != nil {
		return nil, err
	}
	return &Task{Params: params, Handle: h}, nil
}
