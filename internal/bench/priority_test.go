package bench

import (
	"errors"
	"os/user"
	"strings"
	"testing"
)

// fakeIdentity sets the effective uid and clears the login environment.
func fakeIdentity(t *testing.T, euid int, username string) {
	t.Helper()
	origEuid, origUser := geteuid, currentUser
	t.Cleanup(func() { geteuid, currentUser = origEuid, origUser })

	geteuid = func() int { return euid }
	currentUser = func() (*user.User, error) {
		if username == "" {
			return nil, errors.New("unknown user")
		}
		return &user.User{Username: username}, nil
	}
	for _, key := range []string{"SUDO_USER", "LOGNAME", "USER"} {
		t.Setenv(key, "")
	}
}

func TestPriorityWrap(t *testing.T) {
	argv := []string{"/usr/bin/go", "test", "-bench", "."}

	tests := []struct {
		name     string
		priority Priority
		euid     int
		env      map[string]string
		want     string
	}{
		{
			name:     "niceness zero",
			priority: Priority{Niceness: 0, Sudo: true},
			euid:     1000,
			want:     "/usr/bin/go test -bench .",
		},
		{
			name:     "lower priority needs no sudo",
			priority: Priority{Niceness: 10, Sudo: true},
			euid:     1000,
			want:     "nice -n 10 /usr/bin/go test -bench .",
		},
		{
			name:     "sudo disabled",
			priority: Priority{Niceness: -20},
			euid:     1000,
			want:     "nice -n -20 /usr/bin/go test -bench .",
		},
		{
			name:     "raise and drop to logon user",
			priority: Priority{Niceness: -20, Sudo: true},
			euid:     1000,
			env:      map[string]string{"USER": "alice"},
			want:     "sudo -n nice -n -20 sudo -n -E -u alice /usr/bin/go test -bench .",
		},
		{
			name:     "configured user wins",
			priority: Priority{Niceness: -5, Sudo: true, User: "bench"},
			euid:     1000,
			env:      map[string]string{"USER": "alice"},
			want:     "sudo -n nice -n -5 sudo -n -E -u bench /usr/bin/go test -bench .",
		},
		{
			name:     "root drops to sudo user",
			priority: Priority{Niceness: -20, Sudo: true},
			euid:     0,
			env:      map[string]string{"SUDO_USER": "alice", "USER": "root"},
			want:     "nice -n -20 sudo -n -E -u alice /usr/bin/go test -bench .",
		},
		{
			name:     "plain root stays root",
			priority: Priority{Niceness: -20, Sudo: true},
			euid:     0,
			env:      map[string]string{"USER": "root"},
			want:     "nice -n -20 /usr/bin/go test -bench .",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeIdentity(t, tt.euid, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := tt.priority.Wrap(argv)
			if err != nil {
				t.Fatalf("Wrap() error = %v", err)
			}
			if s := strings.Join(got, " "); s != tt.want {
				t.Errorf("Wrap() =\n  %s\nwant\n  %s", s, tt.want)
			}
		})
	}
}

func TestPriorityWrap_CurrentUserFallback(t *testing.T) {
	fakeIdentity(t, 1000, "carol")
	got, err := Priority{Niceness: -1, Sudo: true}.Wrap([]string{"go"})
	if err != nil {
		t.Fatal(err)
	}
	if s := strings.Join(got, " "); s != "sudo -n nice -n -1 sudo -n -E -u carol go" {
		t.Errorf("unexpected command %q", s)
	}
}

func TestPriorityWrap_NoLogonUser(t *testing.T) {
	for _, euid := range []int{1000, 0} {
		fakeIdentity(t, euid, "")
		got, err := Priority{Niceness: -20, Sudo: true}.Wrap([]string{"go"})
		if !errors.Is(err, ErrNoLogonUser) {
			t.Errorf("euid %d: expected ErrNoLogonUser, got %v (%v)", euid, err, got)
		}
	}
}

func TestPriorityWrap_NeverPrompts(t *testing.T) {
	fakeIdentity(t, 1000, "alice")
	got, err := Priority{Niceness: -20, Sudo: true}.Wrap([]string{"go"})
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range got {
		if a == "sudo" && (i+1 >= len(got) || got[i+1] != "-n") {
			t.Errorf("sudo without -n at %d in %v", i, got)
		}
	}
}

func TestPriorityWrap_Empty(t *testing.T) {
	if _, err := (Priority{}).Wrap(nil); err == nil {
		t.Error("expected error for empty command")
	}
}
