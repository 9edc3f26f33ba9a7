package api

import (
	"errors"
	"net/http"

	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/service"
)

type sendMessageRequest struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Content  string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch err := s.messages.Send(r.Context(), req.Sender, req.Receiver, req.Content); {
	case err == nil:
		respondText(w, http.StatusOK, "Message sent successfully")
	case errors.Is(err, service.ErrSenderNotFound):
		respondText(w, http.StatusNotFound, "Sender not found")
	case errors.Is(err, service.ErrReceiverNotFound):
		respondText(w, http.StatusNotFound, "Receiver not found")
	case errors.Is(err, service.ErrMessagingRefused):
		respondText(w, http.StatusForbidden, "User does not accept messages")
	default:
		logUnexpected(r, err)
		respondText(w, http.StatusInternalServerError, "Failed to send message")
	}
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	msgs, err := s.messages.Inbox(r.Context(), username)
	switch {
	case err == nil:
		if msgs == nil {
			msgs = []models.InboxMessage{}
		}
		respondJSON(w, http.StatusOK, msgs)
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to retrieve messages")
	}
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	count, err := s.messages.UnreadCount(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]int{"unreadMessages": count})
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to retrieve notifications")
	}
}
