package authhandler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mimochat/mimo-server/internal/auth"
	response "github.com/mimochat/mimo-server/internal/lib"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Handler struct {
	provider auth.Provider
	profiles profilesdomain.Repo
	secret   string
	tokenTTL time.Duration
	log      *slog.Logger
}

func New(
	provider auth.Provider,
	profiles profilesdomain.Repo,
	secret string,
	tokenTTL time.Duration,
	log *slog.Logger,
) *Handler {
	return &Handler{
		provider: provider,
		profiles: profiles,
		secret:   secret,
		tokenTTL: tokenTTL,
		log:      log,
	}
}

// SignIn exchanges an identity-provider credential for a session token,
// creating or refreshing the profile row on the way.
func (h *Handler) SignIn() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.auth.signin"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req auth.SignInRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid body"))
			return
		}

		identity, err := h.provider.Verify(r.Context(), req.Credential)
		if err != nil {
			log.Warn("sign-in rejected", sl.Err(err))
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid credential"))
			return
		}

		profile, err := h.profiles.UpsertProfile(r.Context(), profilesdomain.Profile{
			ID:          identity.UserID,
			DisplayName: identity.DisplayName,
			Email:       identity.Email,
			AvatarURL:   identity.AvatarURL,
		})
		if err != nil {
			log.Error("failed to upsert profile", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to sign in"))
			return
		}

		token, err := auth.MintToken(h.secret, h.tokenTTL, profile.ID)
		if err != nil {
			log.Error("failed to mint token", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to sign in"))
			return
		}

		log.Info("user signed in", slog.String("user_id", profile.ID))

		render.JSON(w, r, auth.SignInResponse{
			Response: response.OK(),
			Token:    token,
			Profile:  profile,
		})
	}
}
