package chatshandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mimochat/mimo-server/internal/auth"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	response "github.com/mimochat/mimo-server/internal/lib"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	profilesdomain "github.com/mimochat/mimo-server/internal/profiles"
)

type Handler struct {
	service chatsdomain.Service
	log     *slog.Logger
}

func New(service chatsdomain.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// GetChats serves the chat list. Optional query params: q (free-text search)
// and filter (all|unread|groups|favourites).
func (h *Handler) GetChats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.chats.list"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		query := r.URL.Query().Get("q")
		category := chatsdomain.Category(r.URL.Query().Get("filter"))
		if category == "" {
			category = chatsdomain.FilterAll
		}

		chats, err := h.service.ListChats(r.Context(), auth.UserID(r), query, category)
		if err != nil {
			log.Error("failed to list chats", sl.Err(err))
			render.JSON(w, r, chatsdomain.GetChatsResponse{
				Response: response.OK(),
				Chats:    []chatsdomain.ChatSummary{},
			})
			return
		}

		render.JSON(w, r, chatsdomain.GetChatsResponse{
			Response: response.OK(),
			Chats:    chats,
		})
	}
}

func (h *Handler) ResolvePrivate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.chats.resolve_private"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req chatsdomain.ResolvePrivateChatRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid body"))
			return
		}

		chatID, isNew, err := h.service.ResolvePrivateChat(r.Context(), auth.UserID(r), req.OtherUserID)
		if err != nil {
			switch {
			case errors.Is(err, chatsdomain.ErrSameUser):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error(err.Error()))
			case errors.Is(err, profilesdomain.ErrProfileNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("user not found"))
			default:
				log.Error("failed to resolve private chat", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to resolve chat"))
			}
			return
		}

		render.JSON(w, r, chatsdomain.ResolveChatResponse{
			Response: response.OK(),
			ChatID:   chatID,
			IsNew:    isNew,
		})
	}
}

func (h *Handler) CreateGroup() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.chats.create_group"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req chatsdomain.CreateGroupChatRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid body"))
			return
		}

		info, err := h.service.CreateGroupChat(r.Context(), auth.UserID(r), req)
		if err != nil {
			switch {
			case errors.Is(err, chatsdomain.ErrEmptyGroupName),
				errors.Is(err, chatsdomain.ErrEmptyParticipants):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error(err.Error()))
			default:
				log.Error("failed to create group chat", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to create chat"))
			}
			return
		}

		render.JSON(w, r, chatsdomain.GetChatResponse{
			Response: response.OK(),
			Chat:     info,
		})
	}
}

func (h *Handler) GetChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.chats.get"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		chatID := chi.URLParam(r, "chatId")

		info, err := h.service.GetChat(r.Context(), chatID, auth.UserID(r))
		if err != nil {
			switch {
			case errors.Is(err, chatsdomain.ErrChatNotFound),
				errors.Is(err, chatsdomain.ErrNotParticipant):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("chat not found"))
			default:
				log.Error("failed to get chat", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to get chat"))
			}
			return
		}

		render.JSON(w, r, chatsdomain.GetChatResponse{
			Response: response.OK(),
			Chat:     info,
		})
	}
}
