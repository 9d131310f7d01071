package profileshandler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mimochat/mimo-server/internal/auth"
	response "github.com/mimochat/mimo-server/internal/lib"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Handler struct {
	repo profilesdomain.Repo
	log  *slog.Logger
}

func New(repo profilesdomain.Repo, log *slog.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

func (h *Handler) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profiles.me"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		uid := auth.UserID(r)

		profile, err := h.repo.GetProfile(r.Context(), uid)
		if err != nil {
			log.Error("failed to get profile", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("profile not found"))
			return
		}

		render.JSON(w, r, profilesdomain.GetProfileResponse{
			Response: response.OK(),
			Profile:  profile,
		})
	}
}

func (h *Handler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profiles.update"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req profilesdomain.UpdateProfileRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid body"))
			return
		}

		profile, err := h.repo.UpdateProfile(r.Context(), auth.UserID(r), req)
		if err != nil {
			log.Error("failed to update profile", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to update profile"))
			return
		}

		render.JSON(w, r, profilesdomain.GetProfileResponse{
			Response: response.OK(),
			Profile:  profile,
		})
	}
}

func (h *Handler) Search() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profiles.search"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		query := r.URL.Query().Get("q")

		found, err := h.repo.SearchProfiles(r.Context(), auth.UserID(r), query, 20)
		if err != nil {
			log.Error("failed to search profiles", sl.Err(err))
			render.JSON(w, r, profilesdomain.SearchProfilesResponse{
				Response: response.OK(),
				Profiles: []profilesdomain.Profile{},
			})
			return
		}

		render.JSON(w, r, profilesdomain.SearchProfilesResponse{
			Response: response.OK(),
			Profiles: found,
		})
	}
}

func (h *Handler) Heartbeat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.profiles.heartbeat"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req profilesdomain.HeartbeatRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid body"))
			return
		}

		if err := h.repo.SetOnline(r.Context(), auth.UserID(r), req.IsOnline); err != nil {
			log.Warn("failed to update online status", sl.Err(err))
		}

		render.JSON(w, r, response.OK())
	}
}
