package compiler

import (
	"errors"
	"fmt"
	"reflect"

	"cuelang.org/go/cue"

	"github.com/warning-explosive/Core-sub004/internal/model"
)

// Spec is a compiled specs directory: runtime entity types registered in
// a model provider and the queries over them.
type Spec struct {
	Entities []reflect.Type
	Queries  []*Query
}

// Query returns the query called name.
func (s *Spec) Query(name string) (*Query, bool) {
	for _, q := range s.Queries {
		if q.Name == name {
			return q, true
		}
	}
	return nil, false
}

// Compile compiles the entity and query sections of v and registers the
// entities with models. Validation errors of one declaration are joined
// into a single error.
func Compile(v cue.Value, models *model.Provider) (*Spec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	defs, err := collectEntities(v)
	if err != nil {
		return nil, err
	}
	defs, err = OrderEntities(defs)
	if err != nil {
		return nil, err
	}

	spec := &Spec{}
	for _, def := range defs {
		t, err := models.Define(def)
		if err != nil {
			return nil, fmt.Errorf("define entity %s: %w", def.Name, err)
		}
		spec.Entities = append(spec.Entities, t)
	}

	queriesVal := v.LookupPath(cue.ParsePath("query"))
	if !queriesVal.Exists() {
		return spec, nil
	}
	iter, err := queriesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		qs, err := ParseQuery(iter.Value())
		if err != nil {
			return nil, err
		}
		if err := joinValidation(Validate(qs)); err != nil {
			return nil, fmt.Errorf("query %s: %w", qs.Name, err)
		}
		q, err := BuildQuery(qs, models)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", qs.Name, err)
		}
		spec.Queries = append(spec.Queries, q)
	}
	return spec, nil
}

func collectEntities(v cue.Value) ([]model.Definition, error) {
	entitiesVal := v.LookupPath(cue.ParsePath("entity"))
	if !entitiesVal.Exists() {
		return nil, nil
	}
	iter, err := entitiesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []model.Definition
	for iter.Next() {
		def, err := CompileEntity(iter.Value())
		if err != nil {
			return nil, err
		}
		if err := joinValidation(Validate(def)); err != nil {
			return nil, fmt.Errorf("entity %s: %w", def.Name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func joinValidation(verrs []ValidationError) error {
	errs := make([]error, 0, len(verrs))
	for _, e := range verrs {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}
