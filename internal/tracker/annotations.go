package tracker

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/brunoga/deep"
	"github.com/iancoleman/orderedmap"
)

// ErrInvalidAnnotation is returned for edits without an aircraft id or field name
var ErrInvalidAnnotation = errors.New("invalid annotation")

const maxFieldNameLength = 64

// Annotations is the operator notes shared by every viewer, keyed by aircraft id and then field
// name. Aircraft ids and field names keep the order in which they were first edited. Concurrent
// edits to the same field are last-writer-wins.
type Annotations struct {
	mu   sync.RWMutex
	byID *orderedmap.OrderedMap // id -> *orderedmap.OrderedMap of field -> value
}

// NewAnnotations creates an empty annotation mapping
func NewAnnotations() *Annotations {
	return &Annotations{byID: orderedmap.New()}
}

// Set stores one field value for an aircraft
func (a *Annotations) Set(id, field string, value any) error {
	id = strings.TrimSpace(id)
	field = strings.TrimSpace(field)
	if id == "" {
		return fmt.Errorf("%w: missing aircraft id", ErrInvalidAnnotation)
	}
	if field == "" {
		return fmt.Errorf("%w: missing field name", ErrInvalidAnnotation)
	}
	if len(field) > maxFieldNameLength {
		return fmt.Errorf("%w: field name longer than %d bytes", ErrInvalidAnnotation, maxFieldNameLength)
	}

	// Values come from viewers; keep our own copy
	value = copyValue(value)

	a.mu.Lock()
	defer a.mu.Unlock()

	fields := orderedmap.New()
	if existing, ok := a.byID.Get(id); ok {
		fields = existing.(*orderedmap.OrderedMap)
	}
	fields.Set(field, value)
	a.byID.Set(id, fields)
	return nil
}

// Get returns a copy of one field value
func (a *Annotations) Get(id, field string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	existing, ok := a.byID.Get(id)
	if !ok {
		return nil, false
	}
	v, ok := existing.(*orderedmap.OrderedMap).Get(field)
	if !ok {
		return nil, false
	}
	return copyValue(v), true
}

// Len returns the number of annotated aircraft
func (a *Annotations) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byID.Keys())
}

// Snapshot returns a deep copy of the whole mapping that the caller may marshal or modify freely
func (a *Annotations) Snapshot() *orderedmap.OrderedMap {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := orderedmap.New()
	for _, id := range a.byID.Keys() {
		existing, _ := a.byID.Get(id)
		src := existing.(*orderedmap.OrderedMap)

		fields := orderedmap.New()
		for _, field := range src.Keys() {
			v, _ := src.Get(field)
			fields.Set(field, copyValue(v))
		}
		out.Set(id, fields)
	}
	return out
}

func copyValue(v any) any {
	if v == nil {
		return nil
	}
	return deep.MustCopy(v)
}
