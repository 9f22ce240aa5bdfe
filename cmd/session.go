package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli"

	"github.com/tunsel/tunsel/pkg/schedule"
)

func cancelSession(ctx *cli.Context) error {
	id := ctx.Args().First()
	if id == "" {
		return printErr(fmt.Errorf("missing schedule id"))
	}
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	if err := c.Cancel(id); err != nil {
		return printErr(err)
	}
	fmt.Println("Cancelled", id)
	return nil
}

func cancelAllSessions(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	if err := c.CancelAll(); err != nil {
		return printErr(err)
	}
	fmt.Println("Cancelled all schedules")
	return nil
}

func listSessions(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	res, err := c.List()
	if err != nil {
		return printErr(err)
	}
	if len(res.Schedules) == 0 {
		fmt.Println("No scheduled sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROFILE\tCONNECT\tDISCONNECT\tREPEAT")
	for _, s := range res.Schedules {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Profile,
			formatInstant(s.ConnectAt),
			formatInstant(s.DisconnectAt),
			formatRepeat(s))
	}
	return w.Flush()
}

func formatInstant(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format(atLayout)
}

func formatRepeat(s *schedule.Schedule) string {
	if !s.Recurring {
		return "-"
	}
	if s.CronExpr != "" {
		return s.CronExpr
	}
	short := []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}
	var days []byte
	for i, name := range short {
		if s.Days.Has(time.Weekday(i)) {
			if len(days) > 0 {
				days = append(days, ',')
			}
			days = append(days, name...)
		}
	}
	return string(days)
}

func showStatus(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	st, err := c.Status()
	if err != nil {
		return printErr(err)
	}
	if st.Connected {
		since := time.UnixMilli(st.Since).Local().Format(atLayout)
		fmt.Printf("Connected (%s) since %s\n", st.Profile, since)
	} else {
		fmt.Println("Disconnected")
	}
	if st.Suppressed {
		fmt.Println("Last disconnect was scheduler-driven")
	}
	fmt.Printf("Pending schedules: %d\n", st.Pending)
	return nil
}

func disconnectSession(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	if err := c.Disconnect(); err != nil {
		return printErr(err)
	}
	fmt.Println("Disconnected")
	return nil
}
