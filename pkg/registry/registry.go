// Package registry maps step kinds to their stage executors. The runner
// resolves every stage through it, so swapping an executor (for tests or an
// alternative provider) needs no runner changes.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/contentline/contentline/pkg/models"
	"github.com/contentline/contentline/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	executors map[models.StepKind]protocol.StageExecutor
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		executors: make(map[models.StepKind]protocol.StageExecutor),
	}
}

// Register binds an executor to its step kind, replacing any previous one.
func (r *Registry) Register(executor protocol.StageExecutor) {
	r.executors[executor.Kind()] = executor
}

// Executor resolves the executor for a step kind.
func (r *Registry) Executor(kind models.StepKind) (protocol.StageExecutor, error) {
	executor, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("stage %q not registered", kind)
	}

	return executor, nil
}

// Kinds returns the registered step kinds in pipeline order.
func (r *Registry) Kinds() []models.StepKind {
	kinds := make([]models.StepKind, 0, len(r.executors))

	for _, kind := range models.StepOrder() {
		if _, ok := r.executors[kind]; ok {
			kinds = append(kinds, kind)
		}
	}

	return kinds
}

// HealthCheck reports whether every pipeline stage has an executor.
func (r *Registry) HealthCheck() (string, bool) {
	for _, kind := range models.StepOrder() {
		if _, ok := r.executors[kind]; !ok {
			return fmt.Sprintf("stage %q has no registered executor", kind), false
		}
	}

	return fmt.Sprintf("%d stage executors registered", len(r.executors)), true
}
