package query

import (
	"context"
	"fmt"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/objectbuilder"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
	"github.com/warning-explosive/Core-sub004/internal/transaction"
	"github.com/warning-explosive/Core-sub004/internal/translate"
)

var int64Type = reflect.TypeFor[int64]()

// Insert writes entities, stamping each with the transaction version.
// Many-to-many collections are written to their join tables; the
// referenced entities must already exist. Inserted entities join the
// identity map. With InsertDoNothing an entity whose row already exists
// is left untouched: not stamped, not stored, and its join rows are not
// written. It returns the number of entity rows written.
func Insert[T any](ctx context.Context, s *Session, behavior sqlexpr.InsertBehavior, entities ...T) (int64, error) {
	if len(entities) == 0 {
		return 0, nil
	}
	t := reflect.TypeFor[T]()
	table, err := s.provider.models.Table(t)
	if err != nil {
		return 0, err
	}
	if t != table.Type {
		return 0, fmt.Errorf("insert %v: entities are inserted as %v", t, table.Type)
	}

	version := s.tx.Version()
	for i, entity := range entities {
		if reflect.ValueOf(entity).IsNil() {
			return 0, fmt.Errorf("insert %v: entity %d is nil", t, i)
		}
	}

	// A skipped conflicting row is indistinguishable inside a multi-row
	// statement, so DO NOTHING inserts one entity per statement and only
	// the rows actually written join the identity map.
	batches := [][]T{entities}
	if behavior == sqlexpr.InsertDoNothing {
		batches = make([][]T, len(entities))
		for i := range entities {
			batches[i] = entities[i : i+1]
		}
	}

	var affected int64
	for _, batch := range batches {
		n, err := insertBatch(ctx, s, table, behavior, version, batch)
		if err != nil {
			return 0, err
		}
		affected += n
	}

	s.tx.Record(&transaction.Change{
		Kind:       transaction.ChangeInsert,
		Type:       table.Type,
		NewVersion: version,
		Affected:   affected,
	})
	return affected, nil
}

// insertBatch writes entities in one statement followed by their join
// rows. When the statement writes nothing the entities keep their
// previous version and stay out of the identity map.
func insertBatch[T any](ctx context.Context, s *Session, table *model.Table, behavior sqlexpr.InsertBehavior, version int64, entities []T) (int64, error) {
	previous := make([]int64, len(entities))
	values := make([]any, len(entities))
	for i, entity := range entities {
		v := reflect.ValueOf(entity)
		if table.Version != nil {
			field := v.Elem().FieldByIndex(table.Version.Index)
			previous[i] = field.Int()
			field.SetInt(version)
		}
		values[i] = entity
	}
	restore := func() {
		if table.Version == nil {
			return
		}
		for i, entity := range entities {
			reflect.ValueOf(entity).Elem().FieldByIndex(table.Version.Index).SetInt(previous[i])
		}
	}

	commands, err := s.provider.translator.TranslateInsert(behavior, values...)
	if err != nil {
		restore()
		return 0, err
	}

	var affected int64
	for i, cmd := range commands {
		rendered, err := s.provider.render(cmd.Expression, cmd.Parameters, cmd.CacheKey)
		if err != nil {
			restore()
			return 0, err
		}
		n, err := s.tx.Exec(ctx, rendered)
		if err != nil {
			restore()
			return 0, fmt.Errorf("insert %v: %w", table.Type, err)
		}
		if i > 0 {
			// later commands write join rows
			continue
		}
		affected = n
		if n == 0 {
			restore()
			return 0, nil
		}
	}

	for _, entity := range entities {
		v := reflect.ValueOf(entity)
		key := v.Elem().FieldByIndex(table.PrimaryKey.Index).Interface()
		if err := s.tx.Store.Put(table.Type, key, v); err != nil {
			return 0, err
		}
		if table.Version != nil {
			if err := s.tx.Store.SetVersion(table.Type, key, version); err != nil {
				return 0, err
			}
		}
	}
	return affected, nil
}

// UpdateCommand updates the entities of type T matching its filters.
type UpdateCommand[T any] struct {
	session *Session
	node    expr.Node
}

// Update starts an update of entities of type T. At least one Set is
// required; without Where every row is updated.
func Update[T any](s *Session) *UpdateCommand[T] {
	return &UpdateCommand[T]{session: s, node: expr.Update(reflect.TypeFor[T]())}
}

// Set adds an assignment. The body must be an expr.Assign call.
func (u *UpdateCommand[T]) Set(assignment func(x *expr.Parameter) expr.Node) *UpdateCommand[T] {
	return &UpdateCommand[T]{session: u.session, node: expr.Set(u.node, expr.Func(reflect.TypeFor[T](), assignment))}
}

// Where restricts the updated rows. Chained filters are combined with AND.
func (u *UpdateCommand[T]) Where(predicate func(x *expr.Parameter) expr.Node) *UpdateCommand[T] {
	return &UpdateCommand[T]{session: u.session, node: expr.Where(u.node, expr.Func(reflect.TypeFor[T](), predicate))}
}

// CachedExpression tags the command with key.
func (u *UpdateCommand[T]) CachedExpression(key string) *UpdateCommand[T] {
	return &UpdateCommand[T]{session: u.session, node: expr.CachedExpression(u.node, key)}
}

// Node returns the host expression of the command.
func (u *UpdateCommand[T]) Node() expr.Node { return u.node }

// Exec captures the versions of the matching rows, runs the update and
// records the change. It returns the number of rows updated.
func (u *UpdateCommand[T]) Exec(ctx context.Context) (int64, error) {
	return u.session.exec(ctx, transaction.ChangeUpdate, u.node)
}

// DeleteCommand deletes the entities of type T matching its filters.
type DeleteCommand[T any] struct {
	session *Session
	node    expr.Node
}

// Delete starts a delete of entities of type T. Without Where every row is
// deleted.
func Delete[T any](s *Session) *DeleteCommand[T] {
	return &DeleteCommand[T]{session: s, node: expr.Delete(reflect.TypeFor[T]())}
}

// Where restricts the deleted rows. Chained filters are combined with AND.
func (d *DeleteCommand[T]) Where(predicate func(x *expr.Parameter) expr.Node) *DeleteCommand[T] {
	return &DeleteCommand[T]{session: d.session, node: expr.Where(d.node, expr.Func(reflect.TypeFor[T](), predicate))}
}

// CachedExpression tags the command with key.
func (d *DeleteCommand[T]) CachedExpression(key string) *DeleteCommand[T] {
	return &DeleteCommand[T]{session: d.session, node: expr.CachedExpression(d.node, key)}
}

// Node returns the host expression of the command.
func (d *DeleteCommand[T]) Node() expr.Node { return d.node }

// Exec captures the versions of the matching rows, runs the delete and
// records the change. It returns the number of rows deleted.
func (d *DeleteCommand[T]) Exec(ctx context.Context) (int64, error) {
	return d.session.exec(ctx, transaction.ChangeDelete, d.node)
}

// exec runs an update or delete command:
//
//  1. translate the command;
//  2. count the matching rows per version with the same predicate;
//  3. stamp updated rows with the transaction version and run the command;
//  4. record the change for reconciliation at commit.
func (s *Session) exec(ctx context.Context, kind transaction.ChangeKind, n expr.Node) (int64, error) {
	cmd, err := s.provider.translator.Translate(n)
	if err != nil {
		return 0, err
	}

	var (
		source    *sqlexpr.NamedSource
		predicate sqlexpr.Expression
	)
	switch c := cmd.Expression.(type) {
	case *sqlexpr.Update:
		source, predicate = c.Source, c.Predicate
	case *sqlexpr.Delete:
		source, predicate = c.Source, c.Predicate
	default:
		return 0, fmt.Errorf("%s: translated to %s", kind, cmd.Expression.Kind())
	}

	table, err := s.provider.models.Table(source.Item)
	if err != nil {
		return 0, err
	}

	versions, err := s.captureVersions(ctx, table, cmd, source, predicate)
	if err != nil {
		return 0, err
	}

	var newVersion int64
	if upd, ok := cmd.Expression.(*sqlexpr.Update); ok && table.Version != nil {
		newVersion = s.tx.Version()
		upd.Assignments = append(upd.Assignments, &sqlexpr.Assign{
			Left:  &sqlexpr.SimpleBinding{Item: int64Type, Source: source.Parameter, Name: table.Version.Name},
			Right: cmd.AddParameter(newVersion, int64Type),
		})
	}

	rendered, err := s.provider.render(cmd.Expression, cmd.Parameters, cmd.CacheKey)
	if err != nil {
		return 0, err
	}
	affected, err := s.tx.Exec(ctx, rendered)
	if err != nil {
		return 0, fmt.Errorf("%s %v: %w", kind, table.Type, err)
	}

	s.tx.Record(&transaction.Change{
		Kind:       kind,
		Type:       table.Type,
		Versions:   versions,
		NewVersion: newVersion,
		Affected:   affected,
		Predicate:  predicate,
		CacheKey:   cmd.CacheKey,
	})
	return affected, nil
}

// captureVersions counts the rows a command is about to write, per
// version:
//
//	SELECT a."Version", COUNT(*) AS "Count" FROM <table> a WHERE <predicate> GROUP BY a."Version"
//
// Entities without a version column are counted as version 0.
func (s *Session) captureVersions(ctx context.Context, table *model.Table, cmd *translate.Command, source *sqlexpr.NamedSource, predicate sqlexpr.Expression) (map[int64]int64, error) {
	count := &sqlexpr.NamedBinding{
		Name:       "Count",
		Expression: &sqlexpr.MethodCall{Item: int64Type, Name: "COUNT", Arguments: []sqlexpr.Expression{&sqlexpr.Special{Text: "*"}}},
	}

	capture := &sqlexpr.Projection{Item: table.Type, Source: source, Bindings: []sqlexpr.Expression{count}}
	if predicate != nil {
		capture.Source = &sqlexpr.Filter{Item: table.Type, Source: source, Predicate: predicate}
	}
	if table.Version != nil {
		version := &sqlexpr.SimpleBinding{Item: int64Type, Source: source.Parameter, Name: table.Version.Name}
		capture.Bindings = []sqlexpr.Expression{version, count}
		capture.GroupBy = []sqlexpr.Expression{version}
	}

	cacheKey := ""
	if cmd.CacheKey != "" {
		cacheKey = cmd.CacheKey + ":versions"
	}
	rendered, err := s.provider.render(capture, cmd.Parameters, cacheKey)
	if err != nil {
		return nil, err
	}
	rows, err := s.tx.Query(ctx, rendered)
	if err != nil {
		return nil, fmt.Errorf("capture versions of %v: %w", table.Type, err)
	}
	data, err := rows.Drain()
	if err != nil {
		return nil, fmt.Errorf("capture versions of %v: %w", table.Type, err)
	}

	versions := make(map[int64]int64, len(data))
	for _, row := range data {
		n, err := int64Column(row, "Count")
		if err != nil {
			return nil, err
		}
		var version int64
		if table.Version != nil {
			if version, err = int64Column(row, table.Version.Name); err != nil {
				return nil, err
			}
		}
		versions[version] += n
	}
	s.provider.logger.Debug("versions captured", "type", table.Type, "versions", versions)
	return versions, nil
}

func int64Column(row map[string]any, name string) (int64, error) {
	v, err := objectbuilder.Convert(row[name], int64Type)
	if err != nil {
		return 0, fmt.Errorf("capture versions: column %s: %w", name, err)
	}
	return v.Int(), nil
}
