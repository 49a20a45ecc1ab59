/*
 *  workflow.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	sp "github.com/scipipe/scipipe"
)

// Pipeline wraps a scipipe workflow together with the merged configuration
// and the statement runner. All task graphs in this repository are declared
// through it; scheduling, ordering and concurrency belong to scipipe.
type Pipeline struct {
	Name   string
	Wf     *sp.Workflow
	Params *Params
	Runner Runner
}

// NewPipeline sets up an empty task graph
func NewPipeline(name string, params *Params, runner Runner, maxTasks int) *Pipeline {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	return &Pipeline{
		Name:   name,
		Wf:     sp.NewWorkflow(name, maxTasks),
		Params: params,
		Runner: runner,
	}
}

// Shell declares a task that runs a shell statement. The statement may
// contain scipipe {i:...}/{o:...} placeholders and %(key)s configuration
// references; the latter are substituted now, and the whole command is
// routed through the cluster manager with the given resource hints.
func (p *Pipeline) Shell(name, statement string, job Job) *sp.Process {
	expanded := p.Runner.Wrap(p.Params.Substitute(statement), job)
	return p.Wf.NewProc(name, expanded)
}

// Native declares a task implemented in Go rather than by an external tool.
// The trailing comment carries the placeholders so scipipe still tracks the
// task's files. The execute function must write its outputs through
// TempOutPath; scipipe promotes them to their final paths on success.
func (p *Pipeline) Native(name, ports string, execute func(t *sp.Task)) *sp.Process {
	proc := p.Wf.NewProc(name, "# "+ports)
	proc.CustomExecute = execute
	return proc
}

// TempOutPath resolves the file an executing task must write for the named
// out-port. scipipe runs every task against a temporary directory and moves
// its content into place once the task succeeds; a file written straight to
// the final OutPath is reported missing by that bookkeeping.
func TempOutPath(t *sp.Task, port string) string {
	return filepath.Join(t.TempDir(), t.OutIP(port).TempPath())
}

// TaskNames lists the declared tasks in sorted order
func (p *Pipeline) TaskNames() []string {
	names := []string{}
	for name := range p.Wf.Procs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunTasks executes the graph up to the named tasks. An empty list means
// the full graph. Unknown names are reported with the available choices.
func (p *Pipeline) RunTasks(tasks ...string) error {
	if len(tasks) == 0 {
		p.Wf.Run()
		return nil
	}
	known := p.Wf.Procs()
	for _, task := range tasks {
		if _, ok := known[task]; !ok {
			return errors.Errorf("unknown task `%s`; choose one of:\n%s",
				task, strings.Join(p.TaskNames(), "\n"))
		}
	}
	p.Wf.RunTo(tasks...)
	return nil
}

// RunToRegex executes the graph up to every task matching the patterns
func (p *Pipeline) RunToRegex(patterns ...string) {
	p.Wf.RunToRegex(patterns...)
}

// PlotGraph writes the task graph in dot format
func (p *Pipeline) PlotGraph(dotfile string) error {
	p.Wf.PlotGraph(dotfile)
	log.Noticef("Wrote workflow graph to `%s`", dotfile)
	return nil
}
