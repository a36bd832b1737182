package portid

import (
	"fmt"
	"regexp"
	"strings"
)

var identRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// Ref points at one port of one actor. Port is empty for a bare actor reference.
type Ref struct {
	Actor string
	Port  string
}

// New returns a reference to port of actor.
func New(actor, port string) Ref {
	return Ref{Actor: actor, Port: port}
}

// String serializes the reference into its canonical form.
func (r Ref) String() string {
	if r.Port == "" {
		return r.Actor
	}
	return r.Actor + "." + r.Port
}

// HasPort reports whether the reference names a port.
func (r Ref) HasPort() bool {
	return r.Port != ""
}

// ValidName reports whether s can be used as an actor or port name.
func ValidName(s string) bool {
	return identRegex.MatchString(s)
}

// Parse reads `actor.port` or a bare `actor`.
func Parse(raw string) (Ref, error) {
	if raw == "" {
		return Ref{}, fmt.Errorf("port reference cannot be empty")
	}
	actor, port, hasPort := strings.Cut(raw, ".")
	if !ValidName(actor) {
		return Ref{}, fmt.Errorf("invalid actor name %q in reference %q", actor, raw)
	}
	if hasPort && !ValidName(port) {
		return Ref{}, fmt.Errorf("invalid port name %q in reference %q", port, raw)
	}
	return Ref{Actor: actor, Port: port}, nil
}

// MustParse is like Parse but panics on error. It is meant for literals.
func MustParse(raw string) Ref {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}
