// AngelaMos | 2026
// role.go

package role

import (
	"errors"
	"fmt"
	"strings"
)

// Role is the closed set of back-office roles.
type Role int

const (
	Unknown Role = iota
	User
	OrgAdmin
	SuperAdmin
)

var ErrUnknownRole = errors.New("unknown role")

var names = map[Role]string{
	User:       "USER",
	OrgAdmin:   "ORG_ADMIN",
	SuperAdmin: "SUPER_ADMIN",
}

// rank orders roles for authorization only: SUPER_ADMIN ⊇ ORG_ADMIN ⊇ USER.
var rank = map[Role]int{
	User:       1,
	OrgAdmin:   2,
	SuperAdmin: 3,
}

func All() []Role {
	return []Role{SuperAdmin, OrgAdmin, User}
}

func Parse(s string) (Role, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for r, name := range names {
		if name == normalized {
			return r, nil
		}
	}
	return Unknown, fmt.Errorf("parse role %q: %w", s, ErrUnknownRole)
}

func (r Role) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return "UNKNOWN"
}

func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// AtLeast reports whether candidate carries every capability of required.
// Unknown roles satisfy nothing and are satisfied by nothing.
func AtLeast(candidate, required Role) bool {
	have, ok := rank[candidate]
	if !ok {
		return false
	}
	need, ok := rank[required]
	if !ok {
		return false
	}
	return have >= need
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("marshal role %d: %w", int(r), ErrUnknownRole)
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
