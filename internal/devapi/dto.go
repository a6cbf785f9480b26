// AngelaMos | 2026
// dto.go

package devapi

import "github.com/carterperez-dev/templates/farm-backoffice/internal/role"

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

type UserResponse struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Role     role.Role `json:"role"`
	TenantID *string   `json:"tenantId"`
}

// LoginResponse is written bare, not in the success envelope, because the
// console decodes accessToken/refreshToken/user at the top level.
type LoginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         UserResponse `json:"user"`
}

func ToUserResponse(u *User) UserResponse {
	resp := UserResponse{
		ID:    u.ID,
		Email: u.Email,
		Role:  u.Role,
	}
	if u.TenantID != "" {
		tenant := u.TenantID
		resp.TenantID = &tenant
	}
	return resp
}

func ToUserResponseList(users []*User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, ToUserResponse(u))
	}
	return responses
}
