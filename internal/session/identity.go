// AngelaMos | 2026
// identity.go

package session

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

var errTenantRequired = errors.New("tenantId is required unless role is SUPER_ADMIN")

// Identity is the authenticated principal as returned by the login endpoint.
type Identity struct {
	ID       string    `json:"id"       validate:"required"`
	Email    string    `json:"email"    validate:"required,email"`
	Role     role.Role `json:"role"     validate:"required"`
	TenantID *string   `json:"tenantId"`
}

// Session is all or nothing: an Identity plus both tokens.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

type Credentials struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (i Identity) Validate() error {
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("invalid identity: %s", core.FormatValidationError(err))
	}

	if i.Role != role.SuperAdmin && (i.TenantID == nil || *i.TenantID == "") {
		return errTenantRequired
	}

	return nil
}

func (i Identity) Tenant() string {
	if i.TenantID == nil {
		return ""
	}
	return *i.TenantID
}

func (s Session) complete() bool {
	return s.AccessToken != "" && s.RefreshToken != "" && s.Identity.Validate() == nil
}
