// Package exprcodec builds per-field override codecs from expr-lang
// expressions, so simple value transforms can be declared as strings instead
// of Go functions.
//
// Dump expressions see the raw field value as "value"; load expressions see
// the document string as "raw". Both see the field name as "field". A dump
// expression must produce a string; a load expression may produce any value
// the target attribute accepts.
package exprcodec

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	confstore "github.com/goliatone/go-confstore"
)

// Cache stores compiled expression programs keyed by expression strings, so
// codecs shared across many stores compile once.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// Option configures codec construction.
type Option func(*config)

type config struct {
	cache Cache
}

// WithCache wires a program cache into compilation.
func WithCache(cache Cache) Option {
	return func(cfg *config) {
		cfg.cache = cache
	}
}

// New compiles dumpExpr and loadExpr into a confstore codec.
func New(dumpExpr, loadExpr string, opts ...Option) (confstore.Codec, error) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	dumpProgram, err := loadOrCompile(cfg.cache, dumpExpr)
	if err != nil {
		return confstore.Codec{}, fmt.Errorf("exprcodec: dump expression: %w", err)
	}
	loadProgram, err := loadOrCompile(cfg.cache, loadExpr)
	if err != nil {
		return confstore.Codec{}, fmt.Errorf("exprcodec: load expression: %w", err)
	}

	return confstore.Codec{
		Dump: func(value any, field confstore.Field) (string, error) {
			out, err := exprlang.Run(dumpProgram, map[string]any{
				"value": value,
				"field": field.Name,
			})
			if err != nil {
				return "", fmt.Errorf("exprcodec: dump %q: %w", field.Name, err)
			}
			s, ok := out.(string)
			if !ok {
				return "", fmt.Errorf("exprcodec: dump %q: expression produced %T, want string", field.Name, out)
			}
			return s, nil
		},
		Load: func(raw string, field confstore.Field) (any, error) {
			out, err := exprlang.Run(loadProgram, map[string]any{
				"raw":   raw,
				"field": field.Name,
			})
			if err != nil {
				return nil, fmt.Errorf("exprcodec: load %q: %w", field.Name, err)
			}
			return out, nil
		},
	}, nil
}

func loadOrCompile(cache Cache, expression string) (*exprvm.Program, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if cache != nil {
		if cached, ok := cache.Get(expression); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Set(expression, program)
	}
	return program, nil
}
