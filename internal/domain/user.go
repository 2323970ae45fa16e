package domain

import "time"

// Role enumerates the support tiers an agent can belong to.
type Role string

const (
	RoleL1Agent   Role = "L1_AGENT"
	RoleL2Support Role = "L2_SUPPORT"
	RoleL3Support Role = "L3_SUPPORT"
)

// ParseRole converts a wire literal into a Role.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleL1Agent, RoleL2Support, RoleL3Support:
		return Role(value), nil
	}
	return "", &InvalidEnumError{Field: "role", Value: value}
}

// User is the domain model for support agents at any tier.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
