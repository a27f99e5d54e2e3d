package engine

import "go.uber.org/zap"

// Engine reduces oracle findings and scores them against a registry.
type Engine struct {
	registry *Registry
	logger   *zap.Logger
}

// NewEngine creates a compliance engine. A nil registry selects the embedded
// NDPA table.
func NewEngine(registry *Registry, logger *zap.Logger) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: registry, logger: logger}
}

// Registry returns the requirement table the engine scores against.
func (e *Engine) Registry() *Registry {
	return e.registry
}
