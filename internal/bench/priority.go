package bench

import (
	"errors"
	"os"
	"os/user"
	"strconv"
)

// ErrNoLogonUser is returned when a negative niceness needs sudo but there is
// no unprivileged user to drop back to for the benchmark itself.
var ErrNoLogonUser = errors.New("cannot determine logon user to run benchmarks as")

// Hooks for tests.
var (
	geteuid     = os.Geteuid
	currentUser = user.Current
)

// Priority describes the scheduling priority for the benchmark process.
type Priority struct {
	Niceness int
	Sudo     bool   // raise priority through sudo when not root
	User     string // user to run the benchmark as after raising priority
}

// Wrap prefixes argv so it runs at the requested niceness.
//
// Raising priority (negative niceness) needs root, but the benchmark itself
// should not run as root: it would write root-owned files into the build
// cache. So the command becomes
//
//	sudo -n nice -n N sudo -n -E -u <user> argv...
//
// The -n flags make sudo fail instead of prompting.
func (p Priority) Wrap(argv []string) ([]string, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	if p.Niceness == 0 {
		return argv, nil
	}

	nice := []string{"nice", "-n", strconv.Itoa(p.Niceness)}
	if p.Niceness > 0 || !p.Sudo {
		return concat(nice, argv), nil
	}

	logon := p.logonUser()
	if logon == "" {
		return nil, ErrNoLogonUser
	}
	if geteuid() == 0 {
		if logon == "root" {
			return concat(nice, argv), nil
		}
		return concat(nice, dropTo(logon), argv), nil
	}
	return concat([]string{"sudo", "-n"}, nice, dropTo(logon), argv), nil
}

// logonUser picks the user to de-escalate to: explicit config first, then
// the invoking user as seen by sudo and the login environment.
func (p Priority) logonUser() string {
	if p.User != "" {
		return p.User
	}
	for _, key := range []string{"SUDO_USER", "LOGNAME", "USER"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	if u, err := currentUser(); err == nil {
		return u.Username
	}
	return ""
}

func dropTo(name string) []string {
	return []string{"sudo", "-n", "-E", "-u", name}
}

func concat(parts ...[]string) []string {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]string, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
