package models

import "fmt"

// ProfileRole is the marketplace side a profile belongs to
type ProfileRole string

// Profile roles
const (
	RoleClient     ProfileRole = "client"
	RoleFreelancer ProfileRole = "freelancer"
)

// Valid reports whether r is a known role
func (r ProfileRole) Valid() bool {
	return r == RoleClient || r == RoleFreelancer
}

// ParseProfileRole converts a string to a ProfileRole
func ParseProfileRole(str string) (ProfileRole, error) {
	role := ProfileRole(str)
	if !role.Valid() {
		return "", fmt.Errorf("invalid profile role: %s", str)
	}
	return role, nil
}

// Profile is the public identity of an authenticated user
type Profile struct {
	Base
	Role      ProfileRole `json:"role" gorm:"type:varchar(16);not null;index"`
	FullName  string      `json:"full_name" gorm:"not null"`
	AvatarURL *string     `json:"avatar_url,omitempty"`
}

// FreelancerProfile holds the provider-specific details of a freelancer
type FreelancerProfile struct {
	Base
	ProfileID       string `json:"profile_id" gorm:"type:uuid;not null;uniqueIndex"`
	HourlyRateCents int    `json:"hourly_rate_cents"`
	IsAvailable     bool   `json:"is_available" gorm:"not null;index"`
	Bio             string `json:"bio" gorm:"type:text"`
}
