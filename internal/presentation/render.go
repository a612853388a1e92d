// Package presentation renders controller state as plain text for a terminal.
// Output is a pure function of the state it is given.
package presentation

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/99minutos/user-directory/internal/controller"
	"github.com/99minutos/user-directory/internal/core/domain"
)

const emptyDirectory = "No users exist. Try adding one."

// Render writes the error banner, the user table and, when open, the form.
func Render(w io.Writer, s controller.State) error {
	if err := Banner(w, s); err != nil {
		return err
	}
	if s.Loading {
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	}
	if err := Table(w, s.Users, s.LastError == ""); err != nil {
		return err
	}
	if s.FormOpen {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		return Form(w, s)
	}
	return nil
}

// Banner writes the last error, if any.
func Banner(w io.Writer, s controller.State) error {
	if s.LastError == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "! %s\n", s.LastError)
	return err
}

// Table writes users as aligned columns. With no users it writes the empty
// state message when showEmpty is set and nothing otherwise.
func Table(w io.Writer, users []domain.User, showEmpty bool) error {
	if len(users) == 0 {
		if !showEmpty {
			return nil
		}
		_, err := fmt.Fprintln(w, emptyDirectory)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tFULL NAME\tEMAIL\tROLE")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.UserName, orDash(u.FullName), u.Email, u.Role)
	}
	return tw.Flush()
}

// Form writes the open add or edit form.
func Form(w io.Writer, s controller.State) error {
	title := "Add user"
	action := "Create"
	if s.Editing() {
		title = "Edit user " + s.EditingID
		action = "Update"
	}
	if s.Pending {
		action += " (submitting...)"
	}

	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', 0)
	fmt.Fprintf(tw, "%s\n%s\n", title, strings.Repeat("-", len(title)))
	fmt.Fprintf(tw, "User name:\t%s\n", s.Draft.UserName)
	fmt.Fprintf(tw, "Full name:\t%s\n", s.Draft.FullName)
	fmt.Fprintf(tw, "Email:\t%s\n", s.Draft.Email)
	fmt.Fprintf(tw, "Role:\t%s\n", roleChoice(s.Draft.Role))
	fmt.Fprintf(tw, "[%s]\n", action)
	return tw.Flush()
}

// Notice formats a transient controller notice.
func Notice(w io.Writer, n controller.Notice) error {
	prefix := "ok"
	if n.Level == controller.LevelError {
		prefix = "error"
	}
	_, err := fmt.Fprintf(w, "%s: %s\n", prefix, n.Msg)
	return err
}

func roleChoice(selected string) string {
	parts := make([]string, 0, len(domain.Roles))
	for _, r := range domain.Roles {
		if string(r) == selected {
			parts = append(parts, "("+string(r)+")")
			continue
		}
		parts = append(parts, string(r))
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
