// Package cmd implements the tunsel command-line interface and the
// daemon bootstrap shared by the tunsel and tunseld binaries.
package cmd

import (
	"fmt"

	"github.com/urfave/cli"
)

// Execute runs the CLI with the given arguments.
func Execute(args []string) error {
	app := cli.App{
		Name:      "Tunsel",
		HelpName:  "tunsel",
		Usage:     "A tunnel session scheduler.",
		Version:   fmt.Sprintf("%s-%s", version, commit),
		UsageText: "tunsel <command> [arguments...]",
		Commands: []cli.Command{
			{
				Name:   "daemon",
				Usage:  "run the scheduler daemon in the foreground",
				Action: daemon,
				Flags:  daemonFlags,
			},
			{
				Name:   "stop",
				Usage:  "stop a running daemon",
				Action: stopDaemon,
				Flags:  daemonFlags,
			},
			{
				Name:                   "schedule",
				Aliases:                []string{"s"},
				Usage:                  "schedule a tunnel session",
				Action:                 scheduleSession,
				Flags:                  append(scheduleFlags, clientFlags...),
				UseShortOptionHandling: true,
			},
			{
				Name:   "start",
				Usage:  "start a tunnel session immediately",
				Action: startSession,
				Flags:  append(scheduleFlags, clientFlags...),
			},
			{
				Name:      "cancel",
				Usage:     "cancel a scheduled session",
				UsageText: "tunsel cancel <schedule-id>",
				Action:    cancelSession,
				Flags:     clientFlags,
			},
			{
				Name:   "cancel-all",
				Usage:  "cancel every scheduled session",
				Action: cancelAllSessions,
				Flags:  clientFlags,
			},
			{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "list scheduled sessions",
				Action:  listSessions,
				Flags:   clientFlags,
			},
			{
				Name:   "status",
				Usage:  "show daemon session status",
				Action: showStatus,
				Flags:  clientFlags,
			},
			{
				Name:   "disconnect",
				Usage:  "stop the running session and clear all schedules",
				Action: disconnectSession,
				Flags:  clientFlags,
			},
			{
				Name:   "watch",
				Usage:  "follow session events",
				Action: watchEvents,
				Flags:  clientFlags,
			},
		},
	}
	return app.Run(args)
}
