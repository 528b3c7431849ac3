package tool

import (
	"context"
	"fmt"

	"github.com/flowforge/flowforge/ferrors"
	"github.com/flowforge/flowforge/registry"
)

// Registry is a process-local concurrent name->Tool map. Multiple readers
// may read concurrently while at most one writer mutates; last
// registration wins on duplicate names, per C2.
type Registry struct {
	*registry.BaseRegistry[Tool]
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Tool]()}
}

// RegisterTool registers (or replaces) a tool by its own Name().
func (r *Registry) RegisterTool(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	return r.Register(t.Name(), t)
}

// Lookup retrieves a tool by name, wrapping a miss in ferrors.ToolNotFound.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, ferrors.ToolNotFound(name)
	}
	return t, nil
}

// Resolve looks up each requested name against the registry. Unknown names
// are returned separately rather than erroring, so the caller (the
// builder, per C11 step 4) can log a warning and drop them.
func (r *Registry) Resolve(names []string) (found []Tool, missing []string) {
	for _, name := range names {
		if t, ok := r.Get(name); ok {
			found = append(found, t)
		} else {
			missing = append(missing, name)
		}
	}
	return found, missing
}

// Execute dispatches args to the named tool. Unknown names and execution
// failures both return a {"error": ...} JSON payload alongside the error,
// so callers that only care about the ToolResponse payload can ignore the
// error and use the returned bytes directly.
func (r *Registry) Execute(ctx context.Context, name string, args []byte) ([]byte, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return ErrorResponse(fmt.Sprintf("Tool %s not found", name)), err
	}
	result, err := t.Execute(ctx, args)
	if err != nil {
		wrapped := ferrors.New(ferrors.KindToolExecFailed, "ToolRegistry", "Execute", err.Error(), err)
		return ErrorResponse(err.Error()), wrapped
	}
	return result, nil
}

// ListInfo returns the Info view of every registered tool, sorted by name.
func (r *Registry) ListInfo() []Info {
	tools := r.List()
	infos := make([]Info, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, InfoOf(t))
	}
	return infos
}
