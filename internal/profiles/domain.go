package profiles

import (
	"context"
	"time"

	response "github.com/mimochat/mimo-server/internal/lib"
)

type Profile struct {
	ID          string    `json:"id" db:"id"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Email       string    `json:"email" db:"email"`
	AvatarURL   string    `json:"avatar_url" db:"avatar_url"`
	IsOnline    bool      `json:"is_online" db:"is_online"`
	LastSeen    time.Time `json:"last_seen" db:"last_seen"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

type HeartbeatRequest struct {
	IsOnline bool `json:"is_online"`
}

type GetProfileResponse struct {
	response.Response
	Profile Profile `json:"profile"`
}

type SearchProfilesResponse struct {
	response.Response
	Profiles []Profile `json:"profiles"`
}

type Repo interface {
	GetProfile(ctx context.Context, id string) (Profile, error)
	GetProfiles(ctx context.Context, ids []string) ([]Profile, error)
	UpsertProfile(ctx context.Context, p Profile) (Profile, error)
	UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (Profile, error)
	SearchProfiles(ctx context.Context, viewerID, query string, limit int) ([]Profile, error)
	SetOnline(ctx context.Context, id string, online bool) error
}
