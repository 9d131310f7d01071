package auth

import (
	"context"

	response "github.com/mimochat/mimo-server/internal/lib"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

// Identity is what an external identity provider resolves a credential to.
// The provider itself (Google, dev stub) is a black box behind Provider.
type Identity struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

type Provider interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

type SignInRequest struct {
	Credential string `json:"credential"`
}

type SignInResponse struct {
	response.Response
	Token   string                 `json:"token"`
	Profile profilesdomain.Profile `json:"profile"`
}
