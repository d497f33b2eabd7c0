// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func deviceFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Usage:   "Device ID to target (defaults to the active device)",
	}
}

func formatFlag(formats string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: " + formats,
		Value:   "text",
	}
}

// setupCommand creates the config file and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the credential database",
		Action: r.Setup,
	}
}

// authCommand handles sign-in and the stored credentials
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage signed-in identities",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser and store the credential",
				Action: r.AuthLogin,
			},
			{
				Name:  "import",
				Usage: "Store a credential record from a JSON file",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Action: r.AuthImport,
			},
			{
				Name:  "status",
				Usage: "Show stored identities and when their credentials expire",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// sessionCommand starts the live view
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"live", "ui"},
		Usage:   "Show what is playing and control playback from the keyboard",
		Flags: []cli.Flag{
			deviceFlag(),
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Write plain lines instead of the full-screen view",
			},
		},
		Action: r.Session,
	}
}

func nowCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "now",
		Usage:  "Print the active track and the upcoming queue",
		Flags:  []cli.Flag{formatFlag("text, markdown, csv, json")},
		Action: r.Now,
	}
}

func devicesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "devices",
		Usage:  "List available devices, including ones seen before",
		Flags:  []cli.Flag{formatFlag("text, csv, json")},
		Action: r.Devices,
		Commands: []*cli.Command{
			{
				Name:  "forget",
				Usage: "Remove a device from the cache",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.DevicesForget,
			},
		},
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List playlists to use with play --context",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to list",
				Value: 50,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Playlists,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Resume playback or start a context",
		Flags: []cli.Flag{
			deviceFlag(),
			&cli.StringFlag{
				Name:    "context",
				Aliases: []string{"c"},
				Usage:   "Album, artist or playlist URI to start",
			},
			&cli.BoolFlag{
				Name:  "shuffle",
				Usage: "Turn shuffle on before starting",
			},
		},
		Action: r.Play,
	}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pause",
		Usage:  "Pause playback",
		Flags:  []cli.Flag{deviceFlag()},
		Action: r.Pause,
	}
}

func nextCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "next",
		Aliases: []string{"skip"},
		Usage:   "Skip to the next track",
		Flags:   []cli.Flag{deviceFlag()},
		Action:  r.Next,
	}
}

func prevCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "prev",
		Aliases: []string{"previous"},
		Usage:   "Go back to the previous track",
		Flags:   []cli.Flag{deviceFlag()},
		Action:  r.Previous,
	}
}
