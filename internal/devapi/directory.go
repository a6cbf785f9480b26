// AngelaMos | 2026
// directory.go

package devapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/role"
)

const (
	TenantNorth = "tenant-north"
	TenantSouth = "tenant-south"

	// DevPassword is the password of every default seed user.
	DevPassword = "farm-dev-password"
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         role.Role
	TenantID     string
}

// Directory is the read-only user table behind the stand-in login endpoint.
type Directory struct {
	byEmail map[string]*User
}

// DefaultSeedUsers covers one account per role so every navigation shape can
// be exercised locally.
func DefaultSeedUsers() []config.SeedUser {
	return []config.SeedUser{
		{Email: "root@farm.test", Password: DevPassword, Role: "SUPER_ADMIN"},
		{
			Email:    "admin@north.farm.test",
			Password: DevPassword,
			Role:     "ORG_ADMIN",
			TenantID: TenantNorth,
		},
		{
			Email:    "worker@north.farm.test",
			Password: DevPassword,
			Role:     "USER",
			TenantID: TenantNorth,
		},
		{
			Email:    "worker@south.farm.test",
			Password: DevPassword,
			Role:     "USER",
			TenantID: TenantSouth,
		},
	}
}

func NewDirectory(seeds []config.SeedUser) (*Directory, error) {
	d := &Directory{byEmail: make(map[string]*User, len(seeds))}

	for _, seed := range seeds {
		r, err := role.Parse(seed.Role)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", seed.Email, err)
		}
		if r != role.SuperAdmin && seed.TenantID == "" {
			return nil, fmt.Errorf("seed user %s: tenant_id is required for %s", seed.Email, r)
		}

		hash, err := core.HashPassword(seed.Password)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", seed.Email, err)
		}

		id := seed.ID
		if id == "" {
			id = uuid.New().String()
		}

		email := strings.ToLower(strings.TrimSpace(seed.Email))
		if _, dup := d.byEmail[email]; dup {
			return nil, fmt.Errorf("seed user %s: duplicate email", seed.Email)
		}

		d.byEmail[email] = &User{
			ID:           id,
			Email:        email,
			PasswordHash: hash,
			Role:         r,
			TenantID:     seed.TenantID,
		}
	}

	return d, nil
}

func (d *Directory) GetByEmail(_ context.Context, email string) (*User, error) {
	u, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return u, nil
}

// List returns the users visible from tenant, every user for an empty tenant.
func (d *Directory) List(tenant string) []*User {
	out := make([]*User, 0, len(d.byEmail))
	for _, u := range d.byEmail {
		if tenant == "" || u.TenantID == tenant {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out
}
