package member

import (
	"errors"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of member roles understood by the platform.
// The zero value means "unauthenticated".
type Role string

const (
	RoleAnonymous  Role = ""
	RoleUser       Role = "USER"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
)

var Roles = []Role{RoleUser, RoleInstructor, RoleAdmin}

// ParseRole maps a raw role claim to a Role.
// Tolerates the legacy "ROLE_" prefix carried by older tokens.
func ParseRole(raw string) (Role, error) {
	s := core.CleanString(raw, true /* lower */)
	switch s {
	case "":
		return RoleAnonymous, nil
	case "user", "role_user":
		return RoleUser, nil
	case "instructor", "role_instructor":
		return RoleInstructor, nil
	case "admin", "role_admin":
		return RoleAdmin, nil
	}
	return RoleAnonymous, ErrUnknownRole
}

func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) IsAnonymous() bool  { return r == RoleAnonymous }
func (r Role) IsUser() bool       { return r == RoleUser }
func (r Role) IsInstructor() bool { return r == RoleInstructor }
func (r Role) IsAdmin() bool      { return r == RoleAdmin }

// Identity is the decoded result of the external token-decode collaborator.
type Identity struct {
	ID       string `json:"mid"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     Role   `json:"role"`
}

func (i Identity) IsAuthenticated() bool { return i.ID != "" && !i.Role.IsAnonymous() }

var roleTag = "role"

// InitValidators registers member-specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, "invalid role")
}

func roleValidation(fl validator.FieldLevel) bool {
	role, err := ParseRole(fl.Field().String())
	return err == nil && role.Valid()
}
