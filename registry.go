package flatfile

import (
	"bytes"
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v4"
)

// Registry maps definition names to schemas. It is safe for concurrent use.
//
// A Registry is an explicit dependency: create one, register schemas, and pass
// it to the code that resolves schemas by name.
type Registry struct {
	schemas *xsync.Map[string, *Schema]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: xsync.NewMap[string, *Schema]()}
}

// Register stores schema under name, replacing any previous schema with that
// name.
func (r *Registry) Register(name string, schema *Schema) {
	r.schemas.Store(name, schema)
}

// Lookup returns the schema registered under name.
func (r *Registry) Lookup(name string) (*Schema, error) {
	schema, ok := r.schemas.Load(name)
	if !ok {
		return nil, errors.Wrapf(ErrSchemaNotFound, "%q", name)
	}
	return schema, nil
}

// Has reports whether a schema is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.schemas.Load(name)
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.schemas.Size())
	r.schemas.Range(func(name string, _ *Schema) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// Parse decodes rd with the named schema.
func (r *Registry) Parse(name string, rd io.Reader) (RecordSet, error) {
	schema, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	return NewDecoder(schema, rd).Decode()
}

// Generate encodes v with the named schema.
func (r *Registry) Generate(name string, v any) ([]byte, error) {
	buff := bytes.NewBuffer(nil)
	if err := r.Write(buff, name, v); err != nil {
		return nil, err
	}
	return buff.Bytes(), nil
}

// Write encodes v with the named schema and writes it to w.
func (r *Registry) Write(w io.Writer, name string, v any) error {
	schema, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return NewEncoder(schema, w).Encode(v)
}
