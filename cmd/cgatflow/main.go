/*
 *  main.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package main

import (
	"context"
	"os"
	"strings"
	"time"

	cgatflow "github.com/kevinrue/cgat-flow"
	logging "github.com/op/go-logging"
	"github.com/urfave/cli"
)

var log = logging.MustGetLogger("main")

// init customizes how cli lays out the command interface
// Logo banner (Varsity style):
// http://patorjk.com/software/taag/#p=testall&f=3D-ASCII&t=CGATFLOW
func init() {
	cli.AppHelpTemplate = `
   ______   ______       _     _________  ________  _____      ____    _____  _____
 .' ___  |.' ___  |     / \   |  _   _  ||_   __  ||_   _|    .'    '. |_   _||_   _|
/ .'   \_|/ .'   \_|   / _ \  |_/ | | \_|  | |_ \_|  | |     /  .--.  \  | | /\ | |
| |       | |   ____  / ___ \     | |      |  _|     | |   _ | |    | |  | |/  \| |
\ ` + "`" + `.___.'\\ ` + "`" + `.___]  |_/ /   \ \_  _| |_    _| |_     | |__/ |\  ` + "`" + `--'  /  |   /\   |
 ` + "`" + `.____ .' ` + "`" + `._____.'|____| |____||_____|  |_____|   |________| ` + "`" + `.____.'   |__/  \__|

` + cli.AppHelpTemplate
}

// banner prints the separate steps
func banner(message string) {
	message = "* " + message + " *"
	log.Noticef(strings.Repeat("*", len(message)))
	log.Noticef(message)
	log.Noticef(strings.Repeat("*", len(message)))
}

// globalFlags apply to every pipeline subcommand
var globalFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "maxtasks",
		Usage: "Maximum number of concurrently running tasks",
		Value: cgatflow.DefaultMaxTasks,
	},
	cli.StringFlag{
		Name:  "config",
		Usage: "Extra configuration file merged over the defaults",
	},
	cli.BoolFlag{
		Name:  "local",
		Usage: "Run every statement locally, ignoring the cluster queue manager",
	},
	cli.BoolFlag{
		Name:  "verbose",
		Usage: "Emit debug-level logging",
	},
}

// loadParams reads the layered configuration for a pipeline and applies
// the command line overrides
func loadParams(c *cli.Context, pipeline string) (*cgatflow.Params, error) {
	if c.GlobalBool("verbose") || c.Bool("verbose") {
		logging.SetLevel(logging.DEBUG, "cgatflow")
	}
	params, err := cgatflow.LoadParams(pipeline)
	if err != nil {
		return nil, err
	}
	if extra := c.String("config"); extra != "" {
		if err := params.Merge(extra); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func newRunner(c *cli.Context, params *cgatflow.Params) cgatflow.Runner {
	return cgatflow.NewRunner(params, c.Bool("local"))
}

// pipelineBuilder assembles a task graph from configuration
type pipelineBuilder func(params *cgatflow.Params, runner cgatflow.Runner, maxTasks int) (*cgatflow.Pipeline, error)

// pipelineCommand builds the run/plot/config subcommand set every
// pipeline shares
func pipelineCommand(name, usage string, build pipelineBuilder) cli.Command {
	return cli.Command{
		Name:  name,
		Usage: usage,
		Subcommands: []cli.Command{
			{
				Name:  "run",
				Usage: "Run the pipeline, optionally restricted to the named tasks",
				Flags: append([]cli.Flag{
					cli.StringFlag{
						Name:  "to-regex",
						Usage: "Run only tasks whose name matches the pattern",
					},
				}, globalFlags...),
				Action: func(c *cli.Context) error {
					params, err := loadParams(c, name)
					if err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					p, err := build(params, newRunner(c, params), c.Int("maxtasks"))
					if err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					banner("Pipeline " + name + " started")
					if pattern := c.String("to-regex"); pattern != "" {
						p.RunToRegex(pattern)
						return nil
					}
					if err := p.RunTasks(c.Args()...); err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					return nil
				},
			},
			{
				Name:  "plot",
				Usage: "Write the task graph as a dot file",
				Flags: globalFlags,
				Action: func(c *cli.Context) error {
					params, err := loadParams(c, name)
					if err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					p, err := build(params, newRunner(c, params), c.Int("maxtasks"))
					if err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					dotfile := name + ".dot"
					if c.NArg() > 0 {
						dotfile = c.Args().Get(0)
					}
					if err := p.PlotGraph(dotfile); err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					return nil
				},
			},
			{
				Name:  "config",
				Usage: "Write the default pipeline.yml for editing",
				Action: func(c *cli.Context) error {
					if err := cgatflow.WriteDefaultConfig(name); err != nil {
						return cli.NewExitError(err.Error(), 1)
					}
					return nil
				},
			},
		},
	}
}

// main is the entrypoint for the entire program, routes to commands
func main() {
	logging.SetBackend(cgatflow.BackendFormatter)

	app := cli.NewApp()
	app.Compiled = time.Now()
	app.Copyright = "(c) the cgat-flow authors 2026"
	app.Name = "cgatflow"
	app.Usage = "Sequencing QC and gene annotation pipelines"
	app.Version = cgatflow.Version

	app.Commands = []cli.Command{
		pipelineCommand("chipqc", "ChIP-seq quality control with homer and deeptools",
			func(params *cgatflow.Params, runner cgatflow.Runner, maxTasks int) (*cgatflow.Pipeline, error) {
				p, err := cgatflow.NewChipQC(params, runner, maxTasks)
				if err != nil {
					return nil, err
				}
				return p.Pipeline, nil
			}),
		pipelineCommand("rnaseqqc", "RNA-seq quantification QC with sailfish and featureCounts",
			func(params *cgatflow.Params, runner cgatflow.Runner, maxTasks int) (*cgatflow.Pipeline, error) {
				p, err := cgatflow.NewRNASeqQC(params, runner, maxTasks)
				if err != nil {
					return nil, err
				}
				return p.Pipeline, nil
			}),
		pipelineCommand("geneinfo", "Gene annotation database from Entrez, mygene.info and intermine",
			func(params *cgatflow.Params, runner cgatflow.Runner, maxTasks int) (*cgatflow.Pipeline, error) {
				p, err := cgatflow.NewGeneInfo(params, runner, maxTasks)
				if err != nil {
					return nil, err
				}
				if err := p.Probe(context.Background()); err != nil {
					return nil, err
				}
				return p.Pipeline, nil
			}),
		{
			Name:  "report",
			Usage: "Render tracker output into an HTML report",
			Subcommands: []cli.Command{
				{
					Name:  "build",
					Usage: "Build report.html and the TSV exports",
					Flags: globalFlags,
					Action: func(c *cli.Context) error {
						params, err := loadParams(c, "report")
						if err != nil {
							return cli.NewExitError(err.Error(), 1)
						}
						banner("Report build started")
						if err := cgatflow.NewReport(params).Build(); err != nil {
							return cli.NewExitError(err.Error(), 1)
						}
						return nil
					},
				},
				{
					Name:  "publish",
					Usage: "Copy the built report to the export directory",
					Flags: globalFlags,
					Action: func(c *cli.Context) error {
						params, err := loadParams(c, "report")
						if err != nil {
							return cli.NewExitError(err.Error(), 1)
						}
						if err := cgatflow.NewReport(params).Publish(); err != nil {
							return cli.NewExitError(err.Error(), 1)
						}
						return nil
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
