package auth

import (
	"context"
	"encoding/json"
	"strings"
)

// DevProvider accepts a JSON-encoded identity as the credential. It stands in
// for a real provider (Google ID-token verification) during local development;
// the rest of the system only ever sees the resolved Identity.
type DevProvider struct{}

func (DevProvider) Verify(_ context.Context, credential string) (Identity, error) {
	var id Identity
	if err := json.Unmarshal([]byte(credential), &id); err != nil {
		return Identity{}, ErrInvalidCredential
	}

	id.UserID = strings.TrimSpace(id.UserID)
	if id.UserID == "" {
		return Identity{}, ErrInvalidCredential
	}

	if id.DisplayName == "" && id.Email != "" {
		id.DisplayName = strings.SplitN(id.Email, "@", 2)[0]
	}

	return id, nil
}
