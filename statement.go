/*
 *  statement.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import (
	"fmt"
	"strings"
)

// Job carries the resource hints attached to a task. They are consumed by
// the cluster manager prefix only; local execution ignores them.
type Job struct {
	// MemoryMB is the requested memory per job in megabytes
	MemoryMB int
	// Threads is the requested slot count
	Threads int
	// Queue overrides the default submission queue
	Queue string
}

// DefaultJob is used when a task declares no hints
var DefaultJob = Job{MemoryMB: 4000, Threads: 1}

// Runner decides how a shell statement reaches the operating system:
// directly, or wrapped in a cluster submission prefix.
type Runner struct {
	// Manager is "lsf" or "none"
	Manager string
	// Queue is the default submission queue
	Queue string
}

// NewRunner builds a Runner from configuration (cluster_queue_manager,
// cluster_queue). The --local CLI flag forces Manager to "none".
func NewRunner(params *Params, local bool) Runner {
	r := Runner{
		Manager: params.String("cluster_queue_manager"),
		Queue:   params.String("cluster_queue"),
	}
	if local || r.Manager == "" {
		r.Manager = "none"
	}
	return r
}

// Wrap converts a statement into its submitted form. With the lsf manager
// the statement runs under an interactive bsub carrying the job's memory
// and thread hints; otherwise it is returned unchanged.
func (r Runner) Wrap(statement string, job Job) string {
	if job.MemoryMB == 0 {
		job.MemoryMB = DefaultJob.MemoryMB
	}
	if job.Threads == 0 {
		job.Threads = DefaultJob.Threads
	}
	switch r.Manager {
	case "lsf":
		queue := job.Queue
		if queue == "" {
			queue = r.Queue
		}
		prefix := fmt.Sprintf("bsub -I -R'select[mem>%d] rusage[mem=%d]' -M%d -n %d",
			job.MemoryMB, job.MemoryMB, job.MemoryMB, job.Threads)
		if queue != "" {
			prefix += " -q " + queue
		}
		// hand bsub a single argument; an unquoted compound statement
		// splits at the first && and runs its tail on the submit host
		return prefix + " sh -c " + shellQuote(oneline(statement))
	default:
		return statement
	}
}

// oneline collapses a multi-line statement so it survives submission as a
// single bsub argument list
func oneline(statement string) string {
	fields := strings.Fields(strings.ReplaceAll(statement, "\\\n", " "))
	return strings.Join(fields, " ")
}

// shellQuote wraps a statement in single quotes for use as one shell word
func shellQuote(statement string) string {
	return "'" + strings.ReplaceAll(statement, "'", `'\''`) + "'"
}
