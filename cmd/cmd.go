// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/alchemy/internal/models"
)

// setupCommand handles setup operations for the configuration file and the manager store.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example configuration file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the manager store and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the last applied migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// engineCommand handles the engines container and the registered engines.
func engineCommand(r *Runner) *cli.Command {
	engineArg := []cli.Argument{&cli.StringArg{Name: "engine"}}

	return &cli.Command{
		Name:    "engine",
		Aliases: []string{"engines", "e"},
		Usage:   "Manage SQL engines",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List registered SQL engines",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.EngineList,
			},
			{
				Name:      "show",
				Usage:     "Show the properties of an engine",
				ArgsUsage: "<engine id or name>",
				Arguments: engineArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EngineShow,
			},
			{
				Name:      "add",
				Usage:     "Add a new SQL engine",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     propertyFlags(),
				Action:    r.EngineAdd,
			},
			{
				Name:      "clone",
				Usage:     "Clone an SQL engine under a new name",
				ArgsUsage: "<engine id or name>",
				Arguments: engineArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Name of the new engine",
						Required: true,
					},
				},
				Action: r.EngineClone,
			},
			{
				Name:      "edit",
				Usage:     "Change the properties of an SQL engine",
				ArgsUsage: "<engine id or name>",
				Arguments: engineArg,
				Flags:     propertyFlags(),
				Action:    r.EngineEdit,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     "Delete an SQL engine",
				ArgsUsage: "<engine id or name>",
				Arguments: engineArg,
				Action:    r.EngineRemove,
			},
			{
				Name:      "test",
				Aliases:   []string{"check"},
				Usage:     "Check connectivity of one engine, or of every engine",
				ArgsUsage: "[engine id or name]",
				Arguments: engineArg,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent checks",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Probes per second",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "attempts",
						Usage: "Attempts per engine",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "delay",
						Usage: "Delay between attempts",
						Value: 500 * time.Millisecond,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EngineTest,
			},
			{
				Name:  "export",
				Usage: "Export engine configurations (csv, md, txt, json)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format, inferred from --output when omitted",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				},
				Action: r.EngineExport,
			},
			{
				Name:      "history",
				Usage:     "Show recorded add, edit and remove events",
				ArgsUsage: "[engine id or name]",
				Arguments: engineArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.EngineHistory,
			},
			{
				Name:      "exec",
				Usage:     "Run one SQL statement in a session on an engine",
				ArgsUsage: "<engine id or name> <statement>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "engine"},
					&cli.StringArg{Name: "statement"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output rows as JSON",
					},
				},
				Action: r.EngineExec,
			},
			schemaCommand(r),
		},
	}
}

func schemaCommand(r *Runner) *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "TOML file declaring [[tables]]",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "sql",
				Usage: "Print the DDL instead of running it",
			},
		}
	}

	return &cli.Command{
		Name:  "schema",
		Usage: "Create or drop declared tables on an engine",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create every declared table that does not exist",
				ArgsUsage: "<engine id or name>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "engine"}},
				Flags:     flags(),
				Action:    r.SchemaCreate,
			},
			{
				Name:      "drop",
				Usage:     "Drop every declared table",
				ArgsUsage: "<engine id or name>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "engine"}},
				Flags:     flags(),
				Action:    r.SchemaDrop,
			},
		},
	}
}

// serveCommand runs the admin server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the admin JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the engines table in the default browser",
			},
		},
		Action: r.Serve,
	}
}

// apiCommand handles direct calls to a running admin server.
func apiCommand(r *Runner) *cli.Command {
	clientFlags := func(extra ...cli.Flag) []cli.Flag {
		return append([]cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Admin server base URL (default: http://<server.host>:<server.port>)",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token",
				Sources: cli.EnvVars("ALCHEMY_TOKEN"),
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "Retries on transport failures",
			},
		}, extra...)
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to a running admin server",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: clientFlags(&cli.BoolFlag{
					Name:  "json",
					Usage: "Output compact JSON",
				}),
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: clientFlags(&cli.StringFlag{
					Name:    "data",
					Aliases: []string{"d"},
					Usage:   "JSON body to send",
				}),
				Action: r.APIPost,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     clientFlags(),
				Action:    r.APIDelete,
			},
			{
				Name:   "engines",
				Usage:  "Print the engines table served by the admin server",
				Flags:  clientFlags(),
				Action: r.APIEngines,
			},
			{
				Name:      "test",
				Usage:     "Run a connectivity check through the admin server",
				Arguments: []cli.Argument{&cli.StringArg{Name: "engine"}},
				Flags:     clientFlags(),
				Action:    r.APITest,
			},
			{
				Name:      "token",
				Usage:     "Issue a bearer token signed with auth.jwt_secret",
				Arguments: []cli.Argument{&cli.StringArg{Name: "subject"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "permission",
						Usage: "Granted permission, repeatable",
						Value: []string{models.ManageSQLEnginesPermission},
					},
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime",
						Value: 24 * time.Hour,
					},
				},
				Action: r.APIToken,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for browsing and checking engines.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for browsing and checking engines",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File receiving logs while the TUI runs",
				Value: "./tmp/alchemy-tui.log",
			},
		},
		Action: r.TUI,
	}
}
