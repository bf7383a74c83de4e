package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/warning-explosive/Core-sub004/internal/compiler"
	"github.com/warning-explosive/Core-sub004/internal/database"
	"github.com/warning-explosive/Core-sub004/internal/model"
	"github.com/warning-explosive/Core-sub004/internal/query"
	"github.com/warning-explosive/Core-sub004/internal/settings"
)

// environment is what every spec command works with: the settings, the
// compiled specs and the model provider they were registered with.
type environment struct {
	settings  settings.Settings
	models    *model.Provider
	spec      *compiler.Spec
	logger    *slog.Logger
	formatter *OutputFormatter
}

// prepare loads settings and compiles the specs in specsDir. Errors are
// written through the formatter and returned as ExitErrors.
func prepare(opts *RootOptions, specsDir string, cmd *cobra.Command) (*environment, error) {
	formatter := newFormatter(opts, cmd)

	s, err := settings.Load(opts.Config)
	if err != nil {
		return nil, outputError(formatter, ExitCommandError, ErrCodeConfig, err.Error())
	}

	loadResult, loadErrors := LoadSpecs(specsDir, LoadModeFailFast)
	if len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return nil, outputError(formatter, ExitCommandError, loadErr.Code, loadErr.Message)
		}
		return nil, outputError(formatter, ExitCommandError, ErrCodeGeneric, loadErrors[0].Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, specsDir)

	models := model.NewProvider(s.Schema)
	spec, err := loadResult.Compile(models)
	if err != nil {
		code, message := parseCompileError(err)
		return nil, outputError(formatter, ExitCommandError, code, message)
	}
	formatter.VerboseLog("Compiled %d entity(ies), %d query(ies)", len(spec.Entities), len(spec.Queries))

	return &environment{
		settings:  s,
		models:    models,
		spec:      spec,
		logger:    newLogger(opts, cmd.ErrOrStderr()),
		formatter: formatter,
	}, nil
}

// lookup returns the query called name.
func (e *environment) lookup(name string) (*compiler.Query, error) {
	q, ok := e.spec.Query(name)
	if !ok {
		return nil, outputError(e.formatter, ExitCommandError, ErrCodeUnknownName, fmt.Sprintf("no query named %q", name))
	}
	return q, nil
}

// renderer returns a provider that only renders; it never connects.
func (e *environment) renderer() (*query.Provider, error) {
	db := database.New(nil, database.Driver(e.settings.Driver), database.WithLogger(e.logger))
	return e.newProvider(db)
}

// connect opens the configured database. The returned close function
// must be called when the command is done.
func (e *environment) connect(ctx context.Context) (*query.Provider, func(), error) {
	db, err := database.Open(ctx, e.settings, database.WithLogger(e.logger))
	if err != nil {
		return nil, nil, outputError(e.formatter, ExitCommandError, ErrCodeDatabase, err.Error())
	}
	p, err := e.newProvider(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return p, func() { db.Close() }, nil
}

func (e *environment) newProvider(db *database.DB) (*query.Provider, error) {
	p, err := query.NewProvider(db, e.models,
		query.WithLogger(e.logger),
		query.WithCacheSize(e.settings.CacheSize))
	if err != nil {
		return nil, outputError(e.formatter, ExitCommandError, ErrCodeGeneric, err.Error())
	}
	return p, nil
}

// outputError writes one error and returns it with the exit code.
func outputError(formatter *OutputFormatter, exitCode int, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(exitCode, fmt.Sprintf("%s: %s", code, message))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), err.Error()
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, err.Error()
	}
	return ErrCodeGeneric, err.Error()
}
