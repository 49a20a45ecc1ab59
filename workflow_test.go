/*
 *  workflow_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow_test

import (
	"os"
	"testing"

	sp "github.com/scipipe/scipipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinrue/cgat-flow"
)

// TestPipelineRunsToCompletion drives a two-task graph end to end: a Go task
// feeding a shell task. Both outputs must land on their final paths once the
// run returns.
func TestPipelineRunsToCompletion(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	p := cgatflow.NewPipeline("tiny", cgatflow.NewParams(), cgatflow.Runner{Manager: "none"}, 1)

	greeting := p.Native("write_greeting", "{o:greeting}", func(task *sp.Task) {
		err := os.WriteFile(cgatflow.TempOutPath(task, "greeting"), []byte("hello\n"), 0644)
		require.NoError(t, err)
	})
	greeting.SetOut("greeting", "greeting.txt")

	copied := p.Shell("copy_greeting", "cat {i:src} > {o:dest}", cgatflow.DefaultJob)
	copied.In("src").From(greeting.Out("greeting"))
	copied.SetOut("dest", "greeting_copy.txt")

	require.NoError(t, p.RunTasks())

	for _, path := range []string{"greeting.txt", "greeting_copy.txt"} {
		content, err := os.ReadFile(path)
		require.NoError(t, err, "missing final output %s", path)
		assert.Equal(t, "hello\n", string(content))
	}
}

// TestRunTasksRejectsUnknownNames asserts a misspelled target is reported
// before anything runs
func TestRunTasksRejectsUnknownNames(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(wd) })
	require.NoError(t, os.Chdir(t.TempDir()))

	p := cgatflow.NewPipeline("tiny", cgatflow.NewParams(), cgatflow.Runner{Manager: "none"}, 1)
	p.Shell("noop", "true # {o:done}", cgatflow.DefaultJob).SetOut("done", "done.txt")

	err = p.RunTasks("no_such_task")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task `no_such_task`")
	assert.Contains(t, err.Error(), "noop")
}
