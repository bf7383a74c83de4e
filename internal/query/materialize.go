package query

import (
	"context"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/objectbuilder"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

var int64Slice = reflect.TypeFor[[]int64]()

// materialize builds a value of type item from one row.
func (s *Session) materialize(ctx context.Context, item reflect.Type, row map[string]any) (reflect.Value, error) {
	if !s.provider.models.IsEntity(item) {
		v, err := objectbuilder.Build(item, row)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("materialize %v: %w", item, err)
		}
		return v, nil
	}

	table, err := s.provider.models.Table(item)
	if err != nil {
		return reflect.Value{}, err
	}
	if item.Kind() != reflect.Pointer {
		return reflect.Value{}, fmt.Errorf("materialize %v: entities are materialized as %v", item, table.Type)
	}
	return s.entity(ctx, table, row)
}

// entity materializes one entity row through the identity map.
func (s *Session) entity(ctx context.Context, table *model.Table, row map[string]any) (reflect.Value, error) {
	flat := make(map[string]any, len(row))
	refs := map[*model.Relation]any{}

	// Relation keys are set aside; the builder only sees stored scalars.
	for column, raw := range row {
		col, ok := table.Column(column)
		if !ok {
			flat[column] = raw
			continue
		}
		switch col.Kind {
		case model.ColumnRelation:
			refs[col.Relation] = raw
		case model.ColumnFlags:
			v, err := decodeFlags(raw, col.Type)
			if err != nil {
				return reflect.Value{}, columnError(table, col, err)
			}
			flat[column] = v
		case model.ColumnJSON:
			v, err := decodeJSON(raw, col.Type)
			if err != nil {
				return reflect.Value{}, columnError(table, col, err)
			}
			flat[column] = v
		default:
			flat[column] = raw
		}
	}

	pk := table.PrimaryKey
	raw, ok := flat[pk.Name]
	if !ok || raw == nil {
		return reflect.Value{}, columnError(table, pk, fmt.Errorf("row has no primary key"))
	}
	key, err := convertKey(raw, pk.Type)
	if err != nil {
		return reflect.Value{}, columnError(table, pk, err)
	}

	ts := s.tx.Store
	v, found := ts.Get(table.Type, key)
	if found {
		if err := objectbuilder.Fill(v, flat); err != nil {
			return reflect.Value{}, fmt.Errorf("materialize %v: %w", table.Type, err)
		}
	} else {
		v, err = objectbuilder.Build(table.Type, flat)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("materialize %v: %w", table.Type, err)
		}
		// stored before relations so cycles find it
		if err := ts.Put(table.Type, key, v); err != nil {
			return reflect.Value{}, err
		}
	}

	if table.Version != nil {
		if raw, ok := flat[table.Version.Name]; ok && raw != nil {
			version := v.Elem().FieldByIndex(table.Version.Index).Int()
			if err := ts.SetVersion(table.Type, key, version); err != nil {
				return reflect.Value{}, err
			}
		}
	}

	for _, rel := range table.References() {
		raw, ok := refs[rel]
		if !ok {
			continue
		}
		field := v.Elem().FieldByIndex(rel.Index)
		if raw == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		target, err := s.reference(ctx, rel, raw)
		if err != nil {
			return reflect.Value{}, err
		}
		field.Set(target)
	}

	if found {
		return v, nil
	}
	for _, rel := range table.Collections() {
		items, err := s.collection(ctx, rel, key)
		if err != nil {
			return reflect.Value{}, err
		}
		v.Elem().FieldByIndex(rel.Index).Set(items)
	}
	return v, nil
}

// reference resolves a to-one relation from its foreign key, preferring
// the identity map over a round trip.
func (s *Session) reference(ctx context.Context, rel *model.Relation, raw any) (reflect.Value, error) {
	target, err := s.provider.models.Table(rel.Target)
	if err != nil {
		return reflect.Value{}, err
	}
	key, err := convertKey(raw, target.PrimaryKey.Type)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("materialize %v: relation %s: %w", rel.Owner, rel.Field, err)
	}

	if v, ok := s.tx.Store.Get(target.Type, key); ok {
		return v, nil
	}

	s.provider.logger.Debug("relation round trip", "owner", rel.Owner, "relation", rel.Field, "key", key)
	v, err := s.find(ctx, target, key)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("materialize %v: relation %s: %w", rel.Owner, rel.Field, err)
	}
	return v, nil
}

// find queries the entity of table with primary key key.
func (s *Session) find(ctx context.Context, table *model.Table, key any) (reflect.Value, error) {
	pk := table.PrimaryKey
	q := expr.CachedExpression(
		expr.Where(expr.All(table.Type), expr.Func(table.Type, func(x *expr.Parameter) expr.Node {
			return expr.Equal(expr.Field(x, pk.Field), expr.TypedConst(key, pk.Type))
		})),
		"find:"+table.Name)

	cmd, err := s.provider.Render(q)
	if err != nil {
		return reflect.Value{}, err
	}
	values, err := s.collect(ctx, cmd, table.Type)
	if err != nil {
		return reflect.Value{}, err
	}
	if len(values) == 0 {
		return reflect.Value{}, fmt.Errorf("%v %v: %w", table.Type, key, ErrNoRows)
	}
	return values[0], nil
}

// collection loads a many-to-many relation of the owner with key owner:
//
//	SELECT <target columns> FROM <target> a
//	WHERE a.<pk> IN (SELECT b."Right" FROM <join> b WHERE b."Left" = @param_0)
func (s *Session) collection(ctx context.Context, rel *model.Relation, owner any) (reflect.Value, error) {
	target, err := s.provider.models.Table(rel.Target)
	if err != nil {
		return reflect.Value{}, err
	}
	join := rel.Join
	left, _ := join.Column("Left")
	right, _ := join.Column("Right")

	a := &sqlexpr.Parameter{Item: target.Type, Name: "a"}
	b := &sqlexpr.Parameter{Item: join.Type, Name: "b"}
	param := &sqlexpr.QueryParameter{Item: left.Type, Name: "param_0", Value: owner}

	keys := &sqlexpr.Projection{
		Item: reflect.SliceOf(right.Type),
		Source: &sqlexpr.Filter{
			Item:   join.Type,
			Source: namedTable(join, b),
			Predicate: &sqlexpr.Binary{
				Operator: sqlexpr.Equal,
				Left:     &sqlexpr.SimpleBinding{Item: left.Type, Source: b, Name: left.Name},
				Right:    param,
			},
		},
		Bindings: []sqlexpr.Expression{&sqlexpr.SimpleBinding{Item: right.Type, Source: b, Name: right.Name}},
	}

	bindings := make([]sqlexpr.Expression, len(target.Columns))
	for i, col := range target.Columns {
		bindings[i] = &sqlexpr.SimpleBinding{Item: col.Type, Source: a, Name: col.Name}
	}
	query := &sqlexpr.Projection{
		Item: target.Type,
		Source: &sqlexpr.Filter{
			Item:   target.Type,
			Source: namedTable(target, a),
			Predicate: &sqlexpr.Binary{
				Operator: sqlexpr.Contains,
				Left:     &sqlexpr.SimpleBinding{Item: target.PrimaryKey.Type, Source: a, Name: target.PrimaryKey.Name},
				Right:    keys,
			},
		},
		Bindings: bindings,
	}

	cmd, err := s.provider.render(query, []*sqlexpr.QueryParameter{param}, "mtm:"+join.Name)
	if err != nil {
		return reflect.Value{}, err
	}

	s.provider.logger.Debug("collection round trip", "owner", rel.Owner, "relation", rel.Field, "key", owner)
	values, err := s.collect(ctx, cmd, target.Type)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("materialize %v: collection %s: %w", rel.Owner, rel.Field, err)
	}

	items := reflect.MakeSlice(reflect.SliceOf(rel.Target), 0, len(values))
	for _, v := range values {
		items = reflect.Append(items, v)
	}
	return items, nil
}

// convertKey converts a driver or caller value to the primary key type t,
// the form the identity map is keyed by.
func convertKey(raw any, t reflect.Type) (any, error) {
	v, err := objectbuilder.Convert(raw, t)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func namedTable(table *model.Table, alias *sqlexpr.Parameter) *sqlexpr.NamedSource {
	return &sqlexpr.NamedSource{
		Item:      table.Type,
		Source:    &sqlexpr.QuerySource{Item: table.Type, Schema: table.Schema, Table: table.Name},
		Parameter: alias,
	}
}

// decodeFlags folds an array of set bits into an integer of type t.
func decodeFlags(raw any, t reflect.Type) (any, error) {
	if raw == nil {
		return reflect.Zero(t).Interface(), nil
	}
	bits, err := objectbuilder.Convert(raw, int64Slice)
	if err != nil {
		return nil, err
	}
	var n uint64
	for _, bit := range bits.Interface().([]int64) {
		n |= uint64(bit)
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(int64(n))
	default:
		out.SetUint(n)
	}
	return out.Interface(), nil
}

// decodeJSON decodes a JSON document into a value of type t.
func decodeJSON(raw any, t reflect.Type) (any, error) {
	if raw == nil {
		return reflect.Zero(t).Interface(), nil
	}

	var doc []byte
	switch v := raw.(type) {
	case []byte:
		doc = v
	case string:
		doc = []byte(v)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("re-encode json: %w", err)
		}
		doc = encoded
	}

	ptr := reflect.New(t)
	if err := json.Unmarshal(doc, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return ptr.Elem().Interface(), nil
}

func columnError(table *model.Table, col *model.Column, err error) error {
	return &objectbuilder.Error{Type: table.Type, Column: col.Name, Message: err.Error()}
}
