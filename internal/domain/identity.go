package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Role enumerates staff roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamMember Role = "team_member"
)

var (
	ErrInvalidEmail     = errors.New("please provide a valid email")
	ErrNameTooShort     = errors.New("name must be at least 2 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// Identity models a staff account.
type Identity struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        string
	FirstName    string
	LastName     string
	Designation  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// IsTeamMember reports whether the identity holds the team_member role.
func (i *Identity) IsTeamMember() bool {
	return i != nil && i.Role == RoleTeamMember
}

// RoleForNewIdentity returns admin for the very first identity and
// team_member for every later one.
func RoleForNewIdentity(existing int64) Role {
	if existing == 0 {
		return RoleAdmin
	}
	return RoleTeamMember
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// ValidateName checks the display name length.
func ValidateName(name string) error {
	if len([]rune(strings.TrimSpace(name))) < 2 {
		return ErrNameTooShort
	}
	return nil
}

// ValidatePassword checks the password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// ProfilePatch lists the self-editable identity fields. Nil means untouched.
type ProfilePatch struct {
	Name        *string
	Phone       *string
	FirstName   *string
	LastName    *string
	Designation *string
}

// Apply merges the patch. With rebuildName set, giving either name part
// rebuilds the display name from first and last name.
func (i *Identity) Apply(p ProfilePatch, rebuildName bool, now time.Time) error {
	if p.Name != nil && strings.TrimSpace(*p.Name) != "" {
		if err := ValidateName(*p.Name); err != nil {
			return err
		}
		i.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		i.Phone = *p.Phone
	}
	if p.FirstName != nil {
		i.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		i.LastName = *p.LastName
	}
	if p.Designation != nil {
		i.Designation = *p.Designation
	}
	if rebuildName && (p.FirstName != nil || p.LastName != nil) {
		if full := strings.TrimSpace(i.FirstName + " " + i.LastName); full != "" {
			i.Name = full
		}
	}
	i.UpdatedAt = now
	return nil
}
