package strategy

import (
	"time"

	"github.com/rs/zerolog"

	apperrors "txo-strategist/internal/errors"
	"txo-strategist/internal/logging"
	"txo-strategist/internal/models"
)

// Registry maps strategy ids to definitions, preserving registration order.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry returns a registry holding the built-in and portfolio
// strategies.
func NewRegistry(env Env) *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, d := range builtins(env) {
		r.Register(d)
	}
	for _, d := range portfolios(env) {
		r.Register(d)
	}
	return r
}

// Register adds or replaces a definition.
func (r *Registry) Register(d Definition) {
	id := d.Info().ID
	if _, exists := r.defs[id]; !exists {
		r.order = append(r.order, id)
	}
	r.defs[id] = d
}

// Get looks up a definition by id.
func (r *Registry) Get(id string) (Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// List returns every definition in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

// IDs returns the registered ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Engine evaluates registered strategies.
type Engine struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewEngine creates an engine over registry.
func NewEngine(registry *Registry, logger zerolog.Logger) *Engine {
	return &Engine{registry: registry, logger: logger}
}

// Registry returns the engine's registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Evaluate runs the strategy's Calculate. Unknown ids return
// ErrStrategyNotFound. A panic inside Calculate is logged and replaced by
// the neutral result.
func (e *Engine) Evaluate(id string, params Parameters, snap models.MarketSnapshot) (result models.StrategyResult, err error) {
	def, ok := e.registry.Get(id)
	if !ok {
		return models.NeutralResult(), apperrors.Wrapf(apperrors.ErrStrategyNotFound, "strategy %q", id)
	}

	logger := logging.WithStrategy(e.logger, id)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Err(apperrors.NewCalculationError(id, r)).
				Msg("Strategy calculation failed, using neutral result")
			result = models.NeutralResult()
			err = nil
		}
	}()

	result = def.Calculate(params, snap)
	if result.BreakEvens == nil {
		result.BreakEvens = []float64{}
	}
	if result.Payoff == nil {
		result.Payoff = models.NeutralResult().Payoff
	}

	logging.LogEvaluation(logger, id, len(params.Legs), result.BreakEvens, result.EstimatedMargin, time.Since(start))
	return result, nil
}

// Legs returns the canonical legs of strategy id.
func (e *Engine) Legs(id string, params Parameters) ([]models.Leg, error) {
	def, ok := e.registry.Get(id)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrStrategyNotFound, "strategy %q", id)
	}
	return def.Legs(params), nil
}
