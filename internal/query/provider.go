package query

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/warning-explosive/Core-sub004/internal/database"
	"github.com/warning-explosive/Core-sub004/internal/expr"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/render"
	"github.com/warning-explosive/Core-sub004/internal/render/postgres"
	"github.com/warning-explosive/Core-sub004/internal/sqlexpr"
	"github.com/warning-explosive/Core-sub004/internal/transaction"
	"github.com/warning-explosive/Core-sub004/internal/translate"
)

// DefaultCacheSize is the number of rendered commands a provider keeps
// unless WithCacheSize says otherwise.
const DefaultCacheSize = 256

// cachedText is a rendered command without its parameter values.
type cachedText struct {
	text  string
	names []string
}

// Provider translates, renders and runs queries.
//
// Thread-safety: Provider is safe for concurrent use. Sessions are not.
type Provider struct {
	db         *database.DB
	models     *model.Provider
	translator *translate.Translator
	composite  *render.Composite
	cache      *lru.Cache[string, *cachedText]
	txOptions  []transaction.Option
	logger     *slog.Logger
}

type config struct {
	cacheSize   int
	recognizers []translate.MemberRecognizer
	composite   *render.Composite
	txOptions   []transaction.Option
	logger      *slog.Logger
}

// Option configures a Provider.
type Option func(*config)

// WithLogger sets the logger. Defaults to the logger of the database.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheSize sets the number of rendered commands kept. Zero disables
// the cache.
func WithCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithRecognizers adds member recognizers after the built-in ones.
func WithRecognizers(recognizers ...translate.MemberRecognizer) Option {
	return func(c *config) { c.recognizers = append(c.recognizers, recognizers...) }
}

// WithComposite replaces the PostgreSQL translator table.
func WithComposite(composite *render.Composite) Option {
	return func(c *config) { c.composite = composite }
}

// WithTransactionOptions is applied to every transaction begun by the
// provider.
func WithTransactionOptions(opts ...transaction.Option) Option {
	return func(c *config) { c.txOptions = append(c.txOptions, opts...) }
}

// NewProvider creates a provider over db. It fails when the translator
// table leaves a node kind without a translator.
func NewProvider(db *database.DB, models *model.Provider, opts ...Option) (*Provider, error) {
	c := config{cacheSize: DefaultCacheSize, logger: db.Logger()}
	for _, opt := range opts {
		opt(&c)
	}
	if c.composite == nil {
		c.composite = postgres.New()
	}
	if err := c.composite.Verify(); err != nil {
		return nil, err
	}

	p := &Provider{
		db:     db,
		models: models,
		translator: translate.New(models,
			translate.WithRecognizers(c.recognizers...),
			translate.WithLogger(c.logger)),
		composite: c.composite,
		txOptions: c.txOptions,
		logger:    c.logger,
	}
	if c.cacheSize > 0 {
		cache, err := lru.New[string, *cachedText](c.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create command cache: %w", err)
		}
		p.cache = cache
	}
	return p, nil
}

// Models returns the model provider.
func (p *Provider) Models() *model.Provider { return p.models }

// Translator returns the expression translator.
func (p *Provider) Translator() *translate.Translator { return p.translator }

// DB returns the database the provider runs on.
func (p *Provider) DB() *database.DB { return p.db }

// Render translates and renders n.
func (p *Provider) Render(n expr.Node) (*render.Command, error) {
	cmd, err := p.translator.Translate(n)
	if err != nil {
		return nil, err
	}
	return p.render(cmd.Expression, cmd.Parameters, cmd.CacheKey)
}

// render renders e. With a cache key the text is rendered once and later
// calls only bind the new parameter values by name.
func (p *Provider) render(e sqlexpr.Expression, params []*sqlexpr.QueryParameter, cacheKey string) (*render.Command, error) {
	if cacheKey != "" && p.cache != nil {
		if cached, ok := p.cache.Get(cacheKey); ok {
			if cmd, ok := bind(cached, params); ok {
				p.logger.Debug("command cache hit", "cache_key", cacheKey)
				return cmd, nil
			}
			p.logger.Debug("command cache entry does not fit parameters", "cache_key", cacheKey)
		}
	}

	cmd, err := p.composite.Render(e)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("rendered command", "cache_key", cacheKey, "sql", cmd.Text, "parameters", len(cmd.Parameters))

	if cacheKey != "" && p.cache != nil {
		names := make([]string, len(cmd.Parameters))
		for i, param := range cmd.Parameters {
			names[i] = param.Name
		}
		p.cache.Add(cacheKey, &cachedText{text: cmd.Text, names: names})
	}
	return cmd, nil
}

// bind reuses cached text only when params are exactly the parameters
// it was rendered with. A list that grew or a comparison that became
// IS NULL changes the set, and the text must be rendered again.
func bind(cached *cachedText, params []*sqlexpr.QueryParameter) (*render.Command, bool) {
	if len(params) != len(cached.names) {
		return nil, false
	}
	byName := make(map[string]*sqlexpr.QueryParameter, len(params))
	for _, param := range params {
		byName[param.Name] = param
	}
	cmd := &render.Command{Text: cached.text, Parameters: make([]*sqlexpr.QueryParameter, len(cached.names))}
	for i, name := range cached.names {
		param, ok := byName[name]
		if !ok {
			return nil, false
		}
		cmd.Parameters[i] = param
	}
	return cmd, true
}

// Begin starts a session on a new transaction.
func (p *Provider) Begin(ctx context.Context) (*Session, error) {
	tx, err := transaction.Begin(ctx, p.db, append([]transaction.Option{transaction.WithLogger(p.logger)}, p.txOptions...)...)
	if err != nil {
		return nil, err
	}
	return &Session{provider: p, tx: tx}, nil
}
