// Package workflow defines the YAML-bound workflow spec types (C6) and the
// normalizer that canonicalizes any of the three workflow kinds into a
// GraphWorkflow (C7), grounded on the teacher's workflow.WorkflowRequest /
// config.AgentConfig shape but rebuilt around the new spec's Direct /
// Composite / Graph kinds.
package workflow

import (
	"github.com/flowforge/flowforge/agent"
)

// Kind selects which of Agent, Workflow, Graph is authoritative.
type Kind string

const (
	KindDirect    Kind = "Direct"
	KindComposite Kind = "Composite"
	KindGraph     Kind = "Graph"
)

// ExecutionMode selects how a Composite workflow's agents are wired.
type ExecutionMode string

const (
	ExecutionSequential ExecutionMode = "sequential"
	ExecutionParallel   ExecutionMode = "parallel"
	ExecutionLoop       ExecutionMode = "loop"
)

// WaitFor selects a node's dependency-satisfaction mode.
type WaitFor string

const (
	WaitForAll WaitFor = "all"
	WaitForAny WaitFor = "any"
)

// MCPServer describes one MCP tool source to connect at build time.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
	Filter  []string `yaml:"filter,omitempty"`
}

// AgentRef is either an inline AgentSpec or a {file, overrides} reference.
// Exactly one of Inline or File is populated after parsing.
type AgentRef struct {
	Inline    *agent.Spec
	File      string
	Overrides map[string]interface{}
}

// UnmarshalYAML accepts either an inline agent mapping (has a `name` or
// `instructions` key) or a `{file, overrides}` reference.
func (r *AgentRef) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var fileForm struct {
		File      string                 `yaml:"file"`
		Overrides map[string]interface{} `yaml:"overrides"`
	}
	if err := unmarshal(&fileForm); err == nil && fileForm.File != "" {
		r.File = fileForm.File
		r.Overrides = fileForm.Overrides
		return nil
	}

	var spec agent.Spec
	if err := unmarshal(&spec); err != nil {
		return err
	}
	r.Inline = &spec
	return nil
}

// StringOrList accepts a YAML scalar string or a list of strings, per §4.6's
// requirement that dependsOn be parseable either way.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		if single != "" {
			*s = []string{single}
		}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// StateFieldSpec describes one entry of graph.state in the YAML shape.
type StateFieldSpec struct {
	Type    string      `yaml:"type"`
	Reducer string      `yaml:"reducer,omitempty"`
	Default interface{} `yaml:"default,omitempty"`
}

// NodeSpec is a source graph node, pre-normalization.
type NodeSpec struct {
	ID           string            `yaml:"id"`
	Agent        AgentRef          `yaml:"agent"`
	DependsOn    StringOrList      `yaml:"depends_on,omitempty"`
	When         string            `yaml:"when,omitempty"`
	OutputSchema map[string]interface{} `yaml:"output_schema,omitempty"`
	Outputs      map[string]string `yaml:"outputs,omitempty"`
	WaitFor      WaitFor           `yaml:"wait_for,omitempty"`
}

// CompositeSpec is the `workflow:` block, used only when kind == Composite.
type CompositeSpec struct {
	Execution     ExecutionMode `yaml:"execution"`
	Agents        []AgentRef    `yaml:"agents"`
	MaxIterations int           `yaml:"max_iterations,omitempty"`
}

// GraphSpec is the `graph:` block, used only when kind == Graph.
type GraphSpec struct {
	State map[string]StateFieldSpec `yaml:"state,omitempty"`
	Nodes []NodeSpec                `yaml:"nodes"`
}

// Definition is the root YAML document shape of §6.
type Definition struct {
	Kind        Kind            `yaml:"kind"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	MCPServers  []MCPServer     `yaml:"mcp_servers,omitempty"`
	Agent       *AgentRef       `yaml:"agent,omitempty"`
	Workflow    *CompositeSpec  `yaml:"workflow,omitempty"`
	Graph       *GraphSpec      `yaml:"graph,omitempty"`
}
