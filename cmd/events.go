package main

import (
	"fmt"
	"strings"

	"eventcal/internal/events"
	"eventcal/internal/models"
	"eventcal/internal/notify"

	"github.com/urfave/cli/v2"
)

// fieldFlags maps command-line flags to event fields.
var fieldFlags = []struct {
	flag  string
	field string
	usage string
}{
	{"title", models.FieldTitle, "Event title."},
	{"description", models.FieldDescription, "Event description."},
	{"start", models.FieldStartTime, "Start time, ISO-8601."},
	{"end", models.FieldEndTime, "End time, ISO-8601."},
	{"recurrence", models.FieldRecurrence, "Recurrence rule, e.g. FREQ=WEEKLY."},
	{"email", models.FieldEmail, "Address notified when the event changes."},
}

func eventFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(fieldFlags))
	for _, f := range fieldFlags {
		flags = append(flags, &cli.StringFlag{Name: f.flag, Usage: f.usage})
	}
	return flags
}

// fieldsFromFlags collects only the flags given on the command line, so
// unset flags stay absent instead of becoming empty strings.
func fieldsFromFlags(c *cli.Context) models.Fields {
	data := models.Fields{}
	for _, f := range fieldFlags {
		if c.IsSet(f.flag) {
			data[f.field] = models.String(c.String(f.flag))
		}
	}
	return data
}

func requireArg(c *cli.Context, name string) (string, error) {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return arg, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all events ordered by start time.",
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.service.List(c.Context)
			if err != nil {
				return err
			}
			return printResult(c.App.Writer, c.String("output"), list)
		},
	}
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a single event.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return err
			}
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			event, err := rt.service.Get(c.Context, id)
			if err != nil {
				return err
			}
			return printResult(c.App.Writer, c.String("output"), event)
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create an event. Title, description, start and end are required.",
		Flags: eventFlags(),
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			event, err := rt.service.Create(c.Context, fieldsFromFlags(c))
			if err != nil {
				return err
			}
			rt.notifier.EventChanged(notify.ActionCreated, event)
			return printResult(c.App.Writer, c.String("output"), event)
		},
	}
}

func updateCommand() *cli.Command {
	flags := append(eventFlags(),
		&cli.StringFlag{Name: "mode", Value: events.UpdatePartial.String(), Usage: "Update mode: partial or full."},
		&cli.BoolFlag{Name: "clear-recurrence", Usage: "Remove the recurrence rule."},
		&cli.BoolFlag{Name: "clear-email", Usage: "Remove the notification address."},
	)
	return &cli.Command{
		Name:      "update",
		Usage:     "Change fields of an existing event.",
		ArgsUsage: "<id>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return err
			}
			mode, err := events.ParseUpdateMode(c.String("mode"))
			if err != nil {
				return err
			}

			data := fieldsFromFlags(c)
			if c.Bool("clear-recurrence") {
				data[models.FieldRecurrence] = nil
			}
			if c.Bool("clear-email") {
				data[models.FieldEmail] = nil
			}

			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			event, err := rt.service.Update(c.Context, id, data, mode)
			if err != nil {
				return err
			}
			rt.notifier.EventChanged(notify.ActionUpdated, event)
			return printResult(c.App.Writer, c.String("output"), event)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an event.",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return err
			}
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.service.Delete(c.Context, id); err != nil {
				return err
			}
			return printResult(c.App.Writer, c.String("output"), map[string]bool{"success": true})
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Find events whose title or description contains the query.",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			found, err := rt.service.Search(c.Context, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return err
			}
			return printResult(c.App.Writer, c.String("output"), found)
		},
	}
}
