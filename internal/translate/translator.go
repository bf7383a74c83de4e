package translate

import (
	"log/slog"
	"reflect"

	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
)

// Command is a translated expression together with the query parameters
// extracted from it.
type Command struct {
	Expression sqlexpr.Expression
	Parameters []*sqlexpr.QueryParameter
	CacheKey   string
}

// AddParameter appends a parameter named after the ones already
// extracted. Callers use it to bind values that are not part of the host
// expression, such as the new version of an update.
func (c *Command) AddParameter(value any, t reflect.Type) *sqlexpr.QueryParameter {
	p := &sqlexpr.QueryParameter{Item: t, Name: parameterName(len(c.Parameters)), Value: value}
	c.Parameters = append(c.Parameters, p)
	return p
}

// Translator converts host expressions into intermediate expressions.
//
// A Translator is immutable after construction and safe for concurrent
// use; every Translate call works on its own Context.
type Translator struct {
	models      *model.Provider
	recognizers []MemberRecognizer
	logger      *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithRecognizers appends recognizers after the built-in ones.
func WithRecognizers(recognizers ...MemberRecognizer) Option {
	return func(t *Translator) {
		t.recognizers = append(t.recognizers, recognizers...)
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a translator resolving entities through models.
func New(models *model.Provider, opts ...Option) *Translator {
	t := &Translator{
		models:      models,
		recognizers: DefaultRecognizers(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Models returns the model provider.
func (t *Translator) Models() *model.Provider { return t.models }

// Translate converts a query or command expression.
//
// The resulting root is a Projection, or an OrderBy, RowsFetchLimit,
// Explain, GroupBy or command node wrapping one.
func (t *Translator) Translate(n expr.Node) (*Command, error) {
	c := newContext(t)

	var root sqlexpr.Expression
	var err error
	if call, ok := n.(*expr.Call); ok && isCommand(call) {
		root, err = c.translateCommand(call)
	} else {
		err = c.visit(n)
		if err == nil {
			root, err = c.finish()
		}
	}
	if err != nil {
		return nil, err
	}

	t.logger.Debug("translated expression",
		"kind", root.Kind(),
		"cache_key", c.shared.cacheKey,
		"parameters", len(c.shared.params))

	return &Command{
		Expression: root,
		Parameters: c.shared.params,
		CacheKey:   c.shared.cacheKey,
	}, nil
}
