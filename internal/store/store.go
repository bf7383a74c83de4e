package store

import (
	"errors"
	"fmt"
	"reflect"
)

// Key addresses an entity: its type and its primary key value.
type Key struct {
	Type reflect.Type
	ID   any
}

func (k Key) String() string {
	return fmt.Sprintf("%v(%v)", k.Type, k.ID)
}

// ErrInvalidKey is returned for keys that cannot address an entity.
var ErrInvalidKey = errors.New("invalid identity key")

// Store is an identity map from Key to materialized entity.
type Store struct {
	entries  map[Key]reflect.Value
	versions map[Key]int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		entries:  map[Key]reflect.Value{},
		versions: map[Key]int64{},
	}
}

// NewKey validates and builds a key. The ID must be a non-nil comparable
// value; entity types are normalized to their pointer type.
func NewKey(t reflect.Type, id any) (Key, error) {
	if t == nil {
		return Key{}, fmt.Errorf("%w: nil type", ErrInvalidKey)
	}
	if t.Kind() == reflect.Struct {
		t = reflect.PointerTo(t)
	}
	if id == nil {
		return Key{}, fmt.Errorf("%w: nil primary key for %v", ErrInvalidKey, t)
	}
	if !reflect.TypeOf(id).Comparable() {
		return Key{}, fmt.Errorf("%w: primary key of type %T for %v is not comparable", ErrInvalidKey, id, t)
	}
	return Key{Type: t, ID: id}, nil
}

// Get returns the instance stored under (t, id).
func (s *Store) Get(t reflect.Type, id any) (reflect.Value, bool) {
	k, err := NewKey(t, id)
	if err != nil {
		return reflect.Value{}, false
	}
	v, ok := s.entries[k]
	return v, ok
}

// Put stores v under (t, id), replacing any previous instance.
func (s *Store) Put(t reflect.Type, id any, v reflect.Value) error {
	k, err := NewKey(t, id)
	if err != nil {
		return err
	}
	if !v.IsValid() {
		return fmt.Errorf("store %v: invalid value", k)
	}
	if v.Type() != k.Type {
		return fmt.Errorf("store %v: value of type %v", k, v.Type())
	}
	s.entries[k] = v
	return nil
}

// GetOrInsert returns the instance stored under (t, id). When there is
// none, build creates it and the result is stored before GetOrInsert
// returns. found reports whether the instance already existed.
func (s *Store) GetOrInsert(t reflect.Type, id any, build func() (reflect.Value, error)) (v reflect.Value, found bool, err error) {
	k, err := NewKey(t, id)
	if err != nil {
		return reflect.Value{}, false, err
	}
	if v, ok := s.entries[k]; ok {
		return v, true, nil
	}

	v, err = build()
	if err != nil {
		return reflect.Value{}, false, err
	}
	if err := s.Put(t, id, v); err != nil {
		return reflect.Value{}, false, err
	}
	return v, false, nil
}

// SetVersion remembers the version read for (t, id).
func (s *Store) SetVersion(t reflect.Type, id any, version int64) error {
	k, err := NewKey(t, id)
	if err != nil {
		return err
	}
	s.versions[k] = version
	return nil
}

// Version returns the version last read for (t, id).
func (s *Store) Version(t reflect.Type, id any) (int64, bool) {
	k, err := NewKey(t, id)
	if err != nil {
		return 0, false
	}
	v, ok := s.versions[k]
	return v, ok
}

// Versions returns a copy of every remembered version.
func (s *Store) Versions() map[Key]int64 {
	out := make(map[Key]int64, len(s.versions))
	for k, v := range s.versions {
		out[k] = v
	}
	return out
}

// Remove forgets the instance and version stored under (t, id).
func (s *Store) Remove(t reflect.Type, id any) {
	k, err := NewKey(t, id)
	if err != nil {
		return
	}
	delete(s.entries, k)
	delete(s.versions, k)
}

// Len returns the number of stored instances.
func (s *Store) Len() int { return len(s.entries) }

// Clear forgets everything.
func (s *Store) Clear() {
	clear(s.entries)
	clear(s.versions)
}

// Lookup returns the instance of type T stored under id.
func Lookup[T any](s *Store, id any) (T, bool) {
	var zero T
	v, ok := s.Get(reflect.TypeFor[T](), id)
	if !ok {
		return zero, false
	}
	out, ok := v.Interface().(T)
	return out, ok
}
