package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/99minutos/user-directory/internal/client"
	"github.com/99minutos/user-directory/internal/controller"
	"github.com/99minutos/user-directory/internal/core/domain"
	"github.com/99minutos/user-directory/internal/presentation"
	"github.com/99minutos/user-directory/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		// Exit errors were already reported by the cli package.
		var exitErr cli.ExitCoder
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "directoryctl",
		Usage:     "manage users in the directory",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "directory API base URL",
				Value:   "http://localhost:8000",
				EnvVars: []string{"DIRECTORY_URL"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "per-request timeout",
				Value: 10 * time.Second,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "trace, debug, info, warn or error",
				Value:   "warn",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			listCommand(),
			addCommand(),
			editCommand(),
			deleteCommand(),
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "show every user",
		Action: func(c *cli.Context) error {
			ctrl := newController(c)
			err := ctrl.Refresh(c.Context)
			return finish(c, ctrl, err)
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "create a user",
		Flags: userFlags(true),
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return cli.Exit(fmt.Sprintf("add: unexpected arguments %v", c.Args().Slice()), 2)
			}
			ctrl := newController(c)
			if err := ctrl.BeginAdd(); err != nil {
				return finish(c, ctrl, err)
			}
			err := ctrl.SetDraft(controller.Draft{
				UserName: c.String("user-name"),
				FullName: c.String("full-name"),
				Email:    c.String("email"),
				Role:     c.String("role"),
			})
			if err != nil {
				return finish(c, ctrl, err)
			}
			err = ctrl.Submit(c.Context)
			return finish(c, ctrl, err)
		},
	}
}

// editFields are the flags edit may change. At least one must be set.
var editFields = []string{"user-name", "full-name", "email", "role"}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "change fields of an existing user",
		ArgsUsage: "[flags] <id>",
		Flags:     userFlags(false),
		Action: func(c *cli.Context) error {
			id, err := singleID(c)
			if err != nil {
				return err
			}
			if !anySet(c, editFields...) {
				return cli.Exit("edit: nothing to change; set at least one of --user-name, --full-name, --email, --role", 2)
			}

			ctrl := newController(c)
			if err := ctrl.Refresh(c.Context); err != nil {
				return finish(c, ctrl, err)
			}
			user, ok := findUser(ctrl.State().Users, id)
			if !ok {
				return cli.Exit("No user exists with that ID", 1)
			}

			if err := ctrl.BeginEdit(user); err != nil {
				return finish(c, ctrl, err)
			}
			draft := ctrl.State().Draft
			if c.IsSet("user-name") {
				draft.UserName = c.String("user-name")
			}
			if c.IsSet("full-name") {
				draft.FullName = c.String("full-name")
			}
			if c.IsSet("email") {
				draft.Email = c.String("email")
			}
			if c.IsSet("role") {
				draft.Role = c.String("role")
			}
			if err := ctrl.SetDraft(draft); err != nil {
				return finish(c, ctrl, err)
			}

			err = ctrl.Submit(c.Context)
			return finish(c, ctrl, err)
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "remove a user",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := singleID(c)
			if err != nil {
				return err
			}
			ctrl := newController(c)
			err = ctrl.Delete(c.Context, id)
			return finish(c, ctrl, err)
		},
	}
}

func userFlags(create bool) []cli.Flag {
	role := &cli.StringFlag{Name: "role", Usage: fmt.Sprintf("one of %v", domain.Roles)}
	if create {
		role.Value = string(domain.RoleUser)
	}
	return []cli.Flag{
		&cli.StringFlag{Name: "user-name", Aliases: []string{"u"}, Required: create},
		&cli.StringFlag{Name: "full-name", Aliases: []string{"n"}},
		&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: create},
		role,
	}
}

func newController(c *cli.Context) *controller.Controller {
	errOut := c.App.ErrWriter
	log := logger.New(logger.Options{
		Level:   c.String("log-level"),
		Pretty:  true,
		Output:  errOut,
		Service: "directoryctl",
	})
	api := client.New(c.String("server"), client.WithTimeout(c.Duration("timeout")))
	return controller.New(api,
		controller.WithLogger(log),
		controller.WithNotifier(func(n controller.Notice) { _ = presentation.Notice(errOut, n) }),
	)
}

// finish renders the controller state and turns a failed call into a
// non-zero exit. The banner already carries the message.
func finish(c *cli.Context, ctrl *controller.Controller, err error) error {
	if rerr := presentation.Render(c.App.Writer, ctrl.State()); rerr != nil {
		return rerr
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, controller.ErrSubmitPending) || errors.Is(err, controller.ErrFormClosed) {
		return cli.Exit(err.Error(), 1)
	}
	return cli.Exit("", 1)
}

// singleID returns the one positional id. Flags parse only before the first
// positional argument, so anything after the id is rejected rather than
// silently ignored.
func singleID(c *cli.Context) (string, error) {
	switch {
	case c.NArg() == 0:
		return "", cli.Exit(c.Command.Name+": missing user id", 2)
	case c.NArg() > 1:
		return "", cli.Exit(fmt.Sprintf("%s: unexpected arguments %v after the id; put flags before the id", c.Command.Name, c.Args().Tail()), 2)
	}
	return c.Args().First(), nil
}

func anySet(c *cli.Context, names ...string) bool {
	for _, name := range names {
		if c.IsSet(name) {
			return true
		}
	}
	return false
}

func findUser(users []domain.User, id string) (domain.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return domain.User{}, false
}
