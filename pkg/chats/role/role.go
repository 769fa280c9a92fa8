// Package role defines the sender roles used in model conversations.
package role

import "fmt"

// Role identifies who authored a message in a conversation.
type Role string

// The four conversation roles. Providers translate these into their own wire
// vocabulary; the string values match what the supported APIs use natively.
const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
	Tool      Role = "tool"
)

var known = map[Role]bool{
	System:    true,
	User:      true,
	Assistant: true,
	Tool:      true,
}

// Valid reports whether r names one of the conversation roles.
func (r Role) Valid() bool {
	return known[r]
}

// String returns the role's wire value.
func (r Role) String() string {
	return string(r)
}

// Parse converts s into a Role, rejecting anything outside the known set.
// Used when decoding persisted conversations.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("role: unknown role %q", s)
	}
	return r, nil
}
