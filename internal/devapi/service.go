// AngelaMos | 2026
// service.go

package devapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	users *Directory
	jwt   *JWTManager
}

func NewService(users *Directory, jwt *JWTManager) *Service {
	return &Service{users: users, jwt: jwt}
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(req.Password, &user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	access, err := s.jwt.CreateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	refresh, err := core.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	return &LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         ToUserResponse(user),
	}, nil
}
