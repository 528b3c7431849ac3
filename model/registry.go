package model

import (
	"fmt"

	"github.com/flowforge/flowforge/registry"
)

// Registry manages named Model instances, grounded on the teacher's
// llms.LLMRegistry shape (BaseRegistry[LLMProvider] plus named-construction
// helpers), generalized to the Model capability of C3.
type Registry struct {
	*registry.BaseRegistry[Model]
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Model]()}
}

// RegisterModel registers a pre-built Model under name.
func (r *Registry) RegisterModel(name string, m Model) error {
	if name == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if m == nil {
		return fmt.Errorf("model cannot be nil")
	}
	return r.Register(name, m)
}

// GetModel retrieves a Model by name.
func (r *Registry) GetModel(name string) (Model, error) {
	m, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("model '%s' not found", name)
	}
	return m, nil
}
