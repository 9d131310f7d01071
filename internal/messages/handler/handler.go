package messageshandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/mimochat/mimo-server/internal/auth"
	response "github.com/mimochat/mimo-server/internal/lib"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	messagesdomain "github.com/mimochat/mimo-server/internal/messages"
)

type Handler struct {
	service messagesdomain.Service
	log     *slog.Logger
}

func New(service messagesdomain.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) SendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.messages.send"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		chatID := chi.URLParam(r, "chatId")
		if chatID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid chatId"))
			return
		}

		var req messagesdomain.SendMessageRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid body"))
			return
		}

		msg, err := h.service.Send(r.Context(), chatID, auth.UserID(r), req)
		if err != nil {
			switch {
			case errors.Is(err, messagesdomain.ErrEmptyContent),
				errors.Is(err, messagesdomain.ErrInvalidMessageType):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.Error(err.Error()))
			case errors.Is(err, messagesdomain.ErrNotParticipant),
				errors.Is(err, messagesdomain.ErrChatNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("chat not found"))
			default:
				log.Error("failed to send message", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("failed to send message"))
			}
			return
		}

		render.JSON(w, r, messagesdomain.SendMessageResponse{
			Response: response.OK(),
			Message:  msg,
		})
	}
}

func (h *Handler) GetMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.messages.get"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		chatID := chi.URLParam(r, "chatId")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		msgs, err := h.service.Messages(r.Context(), chatID, auth.UserID(r), limit, offset)
		if err != nil {
			if errors.Is(err, messagesdomain.ErrNotParticipant) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("chat not found"))
				return
			}
			log.Error("failed to get messages", sl.Err(err))
			render.JSON(w, r, messagesdomain.GetMessagesResponse{
				Response: response.OK(),
				Messages: []messagesdomain.Message{},
			})
			return
		}

		render.JSON(w, r, messagesdomain.GetMessagesResponse{
			Response: response.OK(),
			Messages: msgs,
		})
	}
}

func (h *Handler) MarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.messages.mark_read"

		log := h.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		chatID := chi.URLParam(r, "chatId")

		updated, err := h.service.MarkRead(r.Context(), chatID, auth.UserID(r))
		if err != nil {
			if errors.Is(err, messagesdomain.ErrNotParticipant) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.Error("chat not found"))
				return
			}
			log.Error("failed to mark messages read", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to mark messages read"))
			return
		}

		render.JSON(w, r, messagesdomain.MarkReadResponse{
			Response: response.OK(),
			Updated:  updated,
		})
	}
}
