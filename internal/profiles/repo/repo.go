package profilesrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Repo struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) GetProfile(ctx context.Context, id string) (profilesdomain.Profile, error) {
	const op = "profiles.repo.GetProfile"

	var p profilesdomain.Profile
	err := r.db.GetContext(
		ctx,
		&p,
		r.db.Rebind(`
		SELECT id, display_name, email, avatar_url, is_online, last_seen, created_at, updated_at
		FROM profiles
		WHERE id = ?
		`),
		id,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return profilesdomain.Profile{}, profilesdomain.ErrProfileNotFound
	}
	if err != nil {
		return profilesdomain.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (r *Repo) GetProfiles(ctx context.Context, ids []string) ([]profilesdomain.Profile, error) {
	const op = "profiles.repo.GetProfiles"

	if len(ids) == 0 {
		return []profilesdomain.Profile{}, nil
	}

	q, args, err := sqlx.In(`
		SELECT id, display_name, email, avatar_url, is_online, last_seen, created_at, updated_at
		FROM profiles
		WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: sqlx.In: %w", op, err)
	}
	q = r.db.Rebind(q)

	var rows []profilesdomain.Profile
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("%s: select: %w", op, err)
	}

	byID := make(map[string]profilesdomain.Profile, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	result := make([]profilesdomain.Profile, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", op, profilesdomain.ErrProfileNotFound, id)
		}
		result = append(result, p)
	}

	return result, nil
}

// UpsertProfile creates the profile row on first sign-in and refreshes the
// identity fields on every subsequent one.
func (r *Repo) UpsertProfile(ctx context.Context, p profilesdomain.Profile) (profilesdomain.Profile, error) {
	const op = "profiles.repo.UpsertProfile"

	if p.ID == "" {
		return profilesdomain.Profile{}, profilesdomain.ErrEmptyProfileID
	}

	now := time.Now().UTC()

	_, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(`
		INSERT INTO profiles (id, display_name, email, avatar_url, is_online, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			email        = excluded.email,
			avatar_url   = excluded.avatar_url,
			updated_at   = excluded.updated_at
		`),
		p.ID, p.DisplayName, p.Email, p.AvatarURL, true, now, now, now,
	)
	if err != nil {
		return profilesdomain.Profile{}, fmt.Errorf("%s: upsert: %w", op, err)
	}

	return r.GetProfile(ctx, p.ID)
}

func (r *Repo) UpdateProfile(ctx context.Context, id string, req profilesdomain.UpdateProfileRequest) (profilesdomain.Profile, error) {
	const op = "profiles.repo.UpdateProfile"

	now := time.Now().UTC()

	if req.DisplayName != nil {
		_, err := r.db.ExecContext(
			ctx,
			r.db.Rebind(`UPDATE profiles SET display_name = ?, updated_at = ? WHERE id = ?`),
			*req.DisplayName, now, id,
		)
		if err != nil {
			return profilesdomain.Profile{}, fmt.Errorf("%s: display_name: %w", op, err)
		}
	}

	if req.AvatarURL != nil {
		_, err := r.db.ExecContext(
			ctx,
			r.db.Rebind(`UPDATE profiles SET avatar_url = ?, updated_at = ? WHERE id = ?`),
			*req.AvatarURL, now, id,
		)
		if err != nil {
			return profilesdomain.Profile{}, fmt.Errorf("%s: avatar_url: %w", op, err)
		}
	}

	return r.GetProfile(ctx, id)
}

func (r *Repo) SearchProfiles(ctx context.Context, viewerID, query string, limit int) ([]profilesdomain.Profile, error) {
	const op = "profiles.repo.SearchProfiles"

	if limit <= 0 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var rows []profilesdomain.Profile
	err := r.db.SelectContext(
		ctx,
		&rows,
		r.db.Rebind(`
		SELECT id, display_name, email, avatar_url, is_online, last_seen, created_at, updated_at
		FROM profiles
		WHERE id <> ?
		  AND (LOWER(display_name) LIKE ? OR LOWER(email) LIKE ?)
		ORDER BY display_name, id
		LIMIT ?
		`),
		viewerID, pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: select: %w", op, err)
	}

	if rows == nil {
		rows = []profilesdomain.Profile{}
	}

	return rows, nil
}

func (r *Repo) SetOnline(ctx context.Context, id string, online bool) error {
	const op = "profiles.repo.SetOnline"

	now := time.Now().UTC()

	res, err := r.db.ExecContext(
		ctx,
		r.db.Rebind(`UPDATE profiles SET is_online = ?, last_seen = ?, updated_at = ? WHERE id = ?`),
		online, now, now, id,
	)
	if err != nil {
		return fmt.Errorf("%s: update: %w", op, err)
	}

	if rows, _ := res.RowsAffected(); rows == 0 {
		return profilesdomain.ErrProfileNotFound
	}

	return nil
}
