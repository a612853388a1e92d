package presentation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/99minutos/user-directory/internal/controller"
	"github.com/99minutos/user-directory/internal/core/domain"
)

func render(t *testing.T, s controller.State) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Render(&buf, s); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestRender_Table(t *testing.T) {
	out := render(t, controller.State{Users: []domain.User{
		{ID: "u1", UserName: "bob", Email: "b@x.com", Role: domain.RoleUser},
		{ID: "u2", UserName: "alice", FullName: "Alice A", Email: "a@x.com", Role: domain.RoleAdmin},
	}})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus two rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "USERNAME") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "bob") || !strings.Contains(lines[1], " - ") {
		t.Errorf("missing fullName should render as dash: %q", lines[1])
	}
	if strings.Index(lines[1], "b@x.com") != strings.Index(lines[2], "a@x.com") {
		t.Errorf("columns not aligned:\n%s", out)
	}
}

func TestRender_EmptyState(t *testing.T) {
	if out := render(t, controller.State{}); strings.TrimSpace(out) != emptyDirectory {
		t.Errorf("expected empty-state message, got %q", out)
	}
}

func TestRender_ErrorBannerReplacesEmptyState(t *testing.T) {
	out := render(t, controller.State{LastError: "Internal Server Error"})
	if out != "! Internal Server Error\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRender_Loading(t *testing.T) {
	out := render(t, controller.State{Loading: true, Users: []domain.User{{ID: "u1"}}})
	if out != "Loading...\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRender_EditForm(t *testing.T) {
	out := render(t, controller.State{
		Users:     []domain.User{{ID: "u1", UserName: "bob", Email: "b@x.com", Role: domain.RoleUser}},
		FormOpen:  true,
		EditingID: "u1",
		Pending:   true,
		Draft:     controller.Draft{UserName: "bob", Email: "b@x.com", Role: "Manager"},
	})

	for _, want := range []string{"Edit user u1", "(Manager)", "[Update (submitting...)]"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRender_AddForm(t *testing.T) {
	out := render(t, controller.State{FormOpen: true})
	if !strings.Contains(out, "Add user") || !strings.Contains(out, "[Create]") {
		t.Errorf("unexpected form:\n%s", out)
	}
}

func TestNotice(t *testing.T) {
	var buf bytes.Buffer
	_ = Notice(&buf, controller.Notice{Level: controller.LevelError, Msg: "boom"})
	_ = Notice(&buf, controller.Notice{Level: controller.LevelSuccess, Msg: "User deleted"})
	if buf.String() != "error: boom\nok: User deleted\n" {
		t.Errorf("unexpected notices %q", buf.String())
	}
}
