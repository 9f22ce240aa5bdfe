package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/urfave/cli"

	"github.com/tunsel/tunsel/common"
	"github.com/tunsel/tunsel/pkg/schedule"
)

const atLayout = "2006-01-02 15:04"

var scheduleFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config, c",
		Usage: "path to the tunnel config file (required)",
	},
	cli.StringFlag{
		Name:  "profile, p",
		Usage: "display name for the session",
	},
	cli.StringFlag{
		Name:  "username, u",
		Usage: "tunnel username",
	},
	cli.StringFlag{
		Name:  "password",
		Usage: "tunnel password",
	},
	cli.StringFlag{
		Name:  "bypass",
		Usage: "comma-separated packages excluded from the tunnel",
	},
	cli.StringFlag{
		Name:  "at",
		Usage: "connect time, YYYY-MM-DD HH:MM local",
	},
	cli.StringFlag{
		Name:  "at-clock",
		Usage: "connect at today's HH:MM UTC",
	},
	cli.StringFlag{
		Name:  "in",
		Usage: "connect after a duration, e.g. 2h or 30m",
	},
	cli.StringFlag{
		Name:  "disconnect-at",
		Usage: "disconnect time, YYYY-MM-DD HH:MM local",
	},
	cli.StringFlag{
		Name:  "disconnect-in",
		Usage: "disconnect after a duration measured from the connect time",
	},
	cli.StringFlag{
		Name:  "disconnect-clock",
		Usage: "disconnect at HH:MM UTC; at or before the connect clock means the next day",
	},
	cli.StringFlag{
		Name:  "days",
		Usage: "repeat weekly on these days, e.g. mon,wed,fri",
	},
	cli.StringFlag{
		Name:  "cron",
		Usage: "repeat on a 5-field cron expression instead of weekdays",
	},
}

// parseAt parses a --at / --disconnect-at value in the local zone.
func parseAt(value string) (time.Time, error) {
	t, err := time.ParseInLocation(atLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected YYYY-MM-DD HH:MM", value)
	}
	return t, nil
}

// parseIn resolves a --in / --disconnect-in duration against base.
func parseIn(value string, base time.Time) (time.Time, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q, expected format like 2h, 30m, or 1h30m", value)
	}
	if d < 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q, must not be negative", value)
	}
	return base.Add(d), nil
}

// parseClock parses a --at-clock / --disconnect-clock value.
func parseClock(value string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", value)
	if perr != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q, expected HH:MM", value)
	}
	return t.Hour(), t.Minute(), nil
}

// resolveClockInstants turns the (--at-clock, --disconnect-clock) pair
// into absolute instants anchored on today's UTC date. The disconnect
// rollover semantics live in schedule.NewAtClock.
func resolveClockInstants(atClock, disconnectClock string, now time.Time) (connectAt, disconnectAt int64, err error) {
	connectHour, connectMinute, err := parseClock(atClock)
	if err != nil {
		return 0, 0, err
	}
	disconnectHour, disconnectMinute := -1, 0
	if disconnectClock != "" {
		if disconnectHour, disconnectMinute, err = parseClock(disconnectClock); err != nil {
			return 0, 0, err
		}
	}
	s := schedule.NewAtClock("", "", "", "", nil,
		connectHour, connectMinute, disconnectHour, disconnectMinute, now)
	return s.ConnectAt, s.DisconnectAt, nil
}

// resolveInstant turns the (--at, --in) pair into an absolute time.
// Exactly one may be set; both empty returns the zero time.
func resolveInstant(at, in string, base time.Time) (time.Time, error) {
	switch {
	case at != "" && in != "":
		return time.Time{}, fmt.Errorf("absolute and relative time flags are mutually exclusive")
	case at != "":
		return parseAt(at)
	case in != "":
		return parseIn(in, base)
	default:
		return time.Time{}, nil
	}
}

// validateCron checks a --cron value. Exactly 5 fields are required;
// gronx alone would also accept 6-field expressions with seconds.
func validateCron(expr string) error {
	if len(strings.Fields(expr)) != 5 {
		return fmt.Errorf("invalid cron expression %q, expected 5-field format (minute hour day-of-month month day-of-week)", expr)
	}
	if !gronx.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q, expected 5-field format (minute hour day-of-month month day-of-week)", expr)
	}
	return nil
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// parseDays turns a --days value like "mon,wed,fri" into a weekday mask.
func parseDays(value string) (schedule.DayMask, error) {
	var mask schedule.DayMask
	for _, part := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		day, ok := dayNames[name]
		if !ok {
			return 0, fmt.Errorf("unknown day %q, expected mon..sun", part)
		}
		mask |= schedule.DayBit(day)
	}
	if mask == 0 {
		return 0, fmt.Errorf("no days given, expected e.g. mon,wed,fri")
	}
	return mask, nil
}

// buildParams assembles the RPC params shared by schedule and start.
func buildParams(ctx *cli.Context) (*common.ScheduleParams, error) {
	configPath := ctx.String("config")
	if configPath == "" {
		return nil, fmt.Errorf("missing required flag --config")
	}
	config, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	params := &common.ScheduleParams{
		Config:   string(config),
		Profile:  ctx.String("profile"),
		Username: ctx.String("username"),
		Password: ctx.String("password"),
	}
	if bypass := ctx.String("bypass"); bypass != "" {
		for _, pkg := range strings.Split(bypass, ",") {
			if pkg = strings.TrimSpace(pkg); pkg != "" {
				params.Bypass = append(params.Bypass, pkg)
			}
		}
	}
	return params, nil
}

func scheduleSession(ctx *cli.Context) error {
	params, err := buildParams(ctx)
	if err != nil {
		return printErr(err)
	}

	now := time.Now()
	var connect time.Time
	if atClock := ctx.String("at-clock"); atClock != "" {
		if ctx.String("at") != "" || ctx.String("in") != "" ||
			ctx.String("disconnect-at") != "" || ctx.String("disconnect-in") != "" {
			return printErr(fmt.Errorf("--at-clock is mutually exclusive with the other time flags"))
		}
		connectAt, disconnectAt, err := resolveClockInstants(atClock, ctx.String("disconnect-clock"), now)
		if err != nil {
			return printErr(err)
		}
		params.ConnectAt = connectAt
		params.DisconnectAt = disconnectAt
		connect = time.UnixMilli(connectAt)
	} else {
		if ctx.String("disconnect-clock") != "" {
			return printErr(fmt.Errorf("--disconnect-clock requires --at-clock"))
		}
		connect, err = resolveInstant(ctx.String("at"), ctx.String("in"), now)
		if err != nil {
			return printErr(err)
		}
		if connect.IsZero() {
			return printErr(fmt.Errorf("missing connect time, set --at or --in"))
		}
		params.ConnectAt = connect.UnixMilli()

		disconnect, err := resolveInstant(ctx.String("disconnect-at"), ctx.String("disconnect-in"), connect)
		if err != nil {
			return printErr(err)
		}
		if !disconnect.IsZero() {
			if !disconnect.After(connect) {
				return printErr(fmt.Errorf("disconnect time must be after the connect time"))
			}
			params.DisconnectAt = disconnect.UnixMilli()
		}
	}

	if cronExpr := ctx.String("cron"); cronExpr != "" {
		if err := validateCron(cronExpr); err != nil {
			return printErr(err)
		}
		params.Recurring = true
		params.CronExpr = cronExpr
	} else if days := ctx.String("days"); days != "" {
		mask, err := parseDays(days)
		if err != nil {
			return printErr(err)
		}
		params.Recurring = true
		params.Days = uint8(mask)
	}

	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	res, err := c.Schedule(params)
	if err != nil {
		return printErr(err)
	}
	fmt.Printf("Scheduled session %s for %s\n", res.ID, connect.Format(atLayout))
	return nil
}

func startSession(ctx *cli.Context) error {
	params, err := buildParams(ctx)
	if err != nil {
		return printErr(err)
	}
	c, err := newClient(ctx)
	if err != nil {
		return printErr(err)
	}
	if err := c.StartNow(params); err != nil {
		return printErr(err)
	}
	fmt.Println("Session started")
	return nil
}
