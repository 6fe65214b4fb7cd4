package registry

import (
	"testing"

	"github.com/fxsml/busroute"
	"github.com/fxsml/busroute/hierarchy"
)

type Auditable interface{ AuditLog() string }

type CreateUser struct{}

func (CreateUser) IsCommand()       {}
func (CreateUser) AuditLog() string { return "users" }

type DeleteUser struct{}

func (DeleteUser) IsCommand()       {}
func (DeleteUser) AuditLog() string { return "users" }

type UserCreated struct{}

func (UserCreated) IsEvent() {}

func newTestRegistry() *Registry {
	return New(hierarchy.NewRegistry(hierarchy.Interface[Auditable]()),
		Descriptor{busroute.CategoryEvent, hierarchy.KeyFor[UserCreated](), "SendWelcome", "mailer", "event.bus"},
		Descriptor{busroute.CategoryCommand, hierarchy.KeyFor[CreateUser](), "CreateUserHandler", "users", "command.bus"},
		Descriptor{busroute.CategoryEvent, hierarchy.KeyFor[UserCreated](), "Project", "projector", "event.bus"},
		Descriptor{busroute.CategoryCommand, hierarchy.KeyFor[Auditable](), "AuditHandler", "audit", "command.bus"},
	)
}

func TestRegistry_All(t *testing.T) {
	r := newTestRegistry()
	all := r.All()
	if len(all) != 4 {
		t.Fatalf("All() returned %d descriptors, want 4", len(all))
	}
	all[0].Handler = "changed"
	if r.All()[0].Handler != "SendWelcome" {
		t.Error("All() must return a copy")
	}
}

func TestRegistry_ForBus(t *testing.T) {
	r := newTestRegistry()
	if got := len(r.ForBus("event.bus")); got != 2 {
		t.Errorf("ForBus(event.bus) = %d descriptors, want 2", got)
	}
	if got := len(r.ForBus("query.bus")); got != 0 {
		t.Errorf("ForBus(query.bus) = %d descriptors, want 0", got)
	}
}

func TestRegistry_ForMessage(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name     string
		msg      any
		expected []string
	}{
		{"exact class", CreateUser{}, []string{"CreateUserHandler"}},
		{"interface", DeleteUser{}, []string{"AuditHandler"}},
		{"multiple handlers", UserCreated{}, []string{"SendWelcome", "Project"}},
		{"unknown", "text", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs := r.ForMessage(tt.msg)
			if len(descs) != len(tt.expected) {
				t.Fatalf("ForMessage(%T) = %d descriptors, want %d", tt.msg, len(descs), len(tt.expected))
			}
			for i, d := range descs {
				if d.Handler != tt.expected[i] {
					t.Errorf("ForMessage(%T)[%d].Handler = %q, want %q", tt.msg, i, d.Handler, tt.expected[i])
				}
			}
		})
	}
}

func TestRegistry_Rows(t *testing.T) {
	rows := newTestRegistry().Rows(KebabNaming)
	expected := []Row{
		{"command", "auditable", "AuditHandler", "audit", "command.bus"},
		{"command", "create-user", "CreateUserHandler", "users", "command.bus"},
		{"event", "user-created", "SendWelcome", "mailer", "event.bus"},
		{"event", "user-created", "Project", "projector", "event.bus"},
	}
	if len(rows) != len(expected) {
		t.Fatalf("Rows() = %d rows, want %d", len(rows), len(expected))
	}
	for i := range rows {
		if rows[i] != expected[i] {
			t.Errorf("Rows()[%d] = %+v, want %+v", i, rows[i], expected[i])
		}
	}
}
