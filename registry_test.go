package flatfile

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if r.Has("boundary") {
		t.Fatalf("Has() on an empty registry")
	}
	if _, err := r.Lookup("boundary"); !errors.Is(err, ErrSchemaNotFound) {
		t.Errorf("Lookup() expected ErrSchemaNotFound, have %v", err)
	}

	r.Register("boundary", boundarySchema(t, Options{}))
	r.Register("repeat", repeatSchema(t))

	if !r.Has("boundary") {
		t.Errorf("Has() registered schema not found")
	}
	if names := r.Names(); !reflect.DeepEqual(names, []string{"boundary", "repeat"}) {
		t.Errorf("Names() have %v", names)
	}

	records, err := r.Parse("boundary", strings.NewReader(boundaryText))
	if err != nil {
		t.Fatalf("Parse() unexpected error %v", err)
	}
	if !reflect.DeepEqual(records, boundaryRecords) {
		t.Errorf("Parse() have %v, want %v", records, boundaryRecords)
	}

	data, err := r.Generate("repeat", repeatRecords)
	if err != nil {
		t.Fatalf("Generate() unexpected error %v", err)
	}
	if string(data) != repeatText {
		t.Errorf("Generate() have %q, want %q", data, repeatText)
	}

	var buff bytes.Buffer
	if err := r.Write(&buff, "boundary", boundaryRecords); err != nil {
		t.Fatalf("Write() unexpected error %v", err)
	}
	if buff.String() != boundaryText {
		t.Errorf("Write() have %q, want %q", buff.String(), boundaryText)
	}

	if _, err := r.Parse("missing", strings.NewReader("")); !errors.Is(err, ErrSchemaNotFound) {
		t.Errorf("Parse() expected ErrSchemaNotFound, have %v", err)
	}
	if _, err := r.Generate("missing", nil); !errors.Is(err, ErrSchemaNotFound) {
		t.Errorf("Generate() expected ErrSchemaNotFound, have %v", err)
	}
}

func TestRegistry_Register_replaces(t *testing.T) {
	r := NewRegistry()
	first := New(Options{})
	second := New(Options{})
	r.Register("s", first)
	r.Register("s", second)

	have, err := r.Lookup("s")
	if err != nil {
		t.Fatalf("Lookup() unexpected error %v", err)
	}
	if have != second {
		t.Errorf("Lookup() did not return the latest registration")
	}
}

func TestRegistry_concurrent(t *testing.T) {
	r := NewRegistry()
	r.Register("boundary", boundarySchema(t, Options{}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("schema-%d", i), New(Options{}))
			if _, err := r.Parse("boundary", strings.NewReader(boundaryText)); err != nil {
				t.Errorf("Parse() unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := len(r.Names()); n != 9 {
		t.Errorf("Names() have %d entries, want 9", n)
	}
}
