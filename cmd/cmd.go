// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json, yaml, csv, markdown",
		Value:   "text",
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// timerCommand drives the persisted study timer.
func timerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "timer",
		Aliases: []string{"t"},
		Usage:   "Control the study timer",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Show the timer and today's totals",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.TimerStatus,
			},
			{
				Name:  "start",
				Usage: "Start (or resume) the timer",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "subject",
						Aliases: []string{"s"},
						Usage:   "Subject to credit the time to",
					},
					&cli.StringFlag{
						Name:    "mode",
						Aliases: []string{"m"},
						Usage:   "Timer mode: stopwatch or pomodoro",
					},
				},
				Action: r.TimerStart,
			},
			{
				Name:   "stop",
				Usage:  "Stop the timer and sync",
				Action: r.TimerStop,
			},
			{
				Name:   "reset",
				Usage:  "Reset the current mode's progress",
				Action: r.TimerReset,
			},
			{
				Name:  "mode",
				Usage: "Switch mode (stopwatch, pomodoro, manual)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "mode"},
				},
				Action: r.TimerMode,
			},
			{
				Name:  "subject",
				Usage: "Select the subject",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "subject"},
				},
				Action: r.TimerSubject,
			},
			{
				Name:  "manual",
				Usage: "Enter a manual duration",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "hours",
						Usage: "Whole hours",
					},
					&cli.IntFlag{
						Name:  "minutes",
						Usage: "Minutes",
					},
				},
				Action: r.TimerManual,
			},
			{
				Name:  "pomodoro",
				Usage: "Configure pomodoro focus, break and sets",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "focus",
						Usage: "Focus minutes",
					},
					&cli.IntFlag{
						Name:  "break",
						Usage: "Break minutes",
					},
					&cli.IntFlag{
						Name:  "sets",
						Usage: "Number of sets",
					},
				},
				Action: r.TimerPomodoro,
			},
			{
				Name:   "record",
				Usage:  "Save the session as a progress record and reset",
				Action: r.TimerRecord,
			},
			{
				Name:   "sync",
				Usage:  "Send unsynced time now",
				Action: r.TimerSync,
			},
		},
	}
}

// summaryCommand prints server day and week totals.
func summaryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Show study time for a day and its week",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "date",
				Usage: "Day as YYYY-MM-DD (default: today)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Summary,
	}
}

// progressCommand handles progress record operations
func progressCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "progress",
		Aliases: []string{"p"},
		Usage:   "Study progress records",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List progress records",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "subject",
						Aliases: []string{"s"},
						Usage:   "Only records for this subject",
					},
					&cli.IntFlag{
						Name:  "skip",
						Usage: "Records to skip",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of records",
						Value: 100,
					},
					formatFlag(),
				},
				Action: r.ProgressList,
			},
			{
				Name:  "summary",
				Usage: "Per-subject totals",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.ProgressSummary,
			},
			{
				Name:  "rename",
				Usage: "Rename a subject across all of its records",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "old"},
					&cli.StringArg{Name: "new"},
				},
				Action: r.ProgressRename,
			},
			{
				Name:  "export",
				Usage: "Export one file per subject",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "subject",
						Aliases: []string{"s"},
						Usage:   "Subjects to export (default: every subject with records)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, yaml, csv, markdown, text",
						Value:   "json",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent workers",
						Value: 3,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Requests per second",
						Value: 5,
					},
				},
				Action: r.ProgressExport,
			},
		},
	}
}

// serveCommand runs the reference study API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the study API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the study API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:   "health",
				Usage:  "Check the API is reachable (calls /health)",
				Action: r.APIHealth,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive timer.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive timer",
		Action:  r.TUI,
	}
}
