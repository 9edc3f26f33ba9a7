package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/parting-gifts/internal/service"
)

// maxUploadSize caps gift uploads at 10MB.
const maxUploadSize = 10 << 20

func (s *Server) handleUploadGift(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondText(w, http.StatusBadRequest, "Error parsing form")
		return
	}

	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondText(w, http.StatusBadRequest, "Error retrieving file")
		return
	}
	defer file.Close()

	fileData, err := io.ReadAll(file)
	if err != nil {
		respondText(w, http.StatusInternalServerError, "Error reading file")
		return
	}

	customMessage := r.FormValue("emailMessage")

	giftID, err := s.gifts.Upload(r.Context(), username, header.Filename, fileData, customMessage)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "File uploaded successfully",
			"giftId":  giftID,
		})
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrGiftsRefused):
		respondText(w, http.StatusForbidden, "User has disabled gift receiving")
	default:
		logUnexpected(r, err)
		respondText(w, http.StatusInternalServerError, "Failed to store gift")
	}
}

func (s *Server) handleGetGifts(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondError(w, http.StatusBadRequest, "Username is required")
		return
	}

	gifts, err := s.gifts.List(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, gifts)
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	default:
		logUnexpected(r, err)
		respondError(w, http.StatusInternalServerError, "Error retrieving gifts")
	}
}

func (s *Server) handleGiftCount(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	count, err := s.gifts.Count(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]int{"count": count})
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Error retrieving gift count")
	}
}

func (s *Server) handlePendingGifts(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	count, err := s.gifts.PendingCount(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]int{"pending_messages": count})
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Error retrieving pending messages count")
	}
}

// contentTypeFor picks the MIME type served for a gift file by extension.
func contentTypeFor(fileName string) string {
	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".jpg"), strings.HasSuffix(lowerName, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lowerName, ".png"):
		return "image/png"
	case strings.HasSuffix(lowerName, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lowerName, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(lowerName, ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

func (s *Server) handleDownloadGift(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondText(w, http.StatusBadRequest, "Gift id is required")
		return
	}
	giftID, err := strconv.Atoi(id)
	if err != nil {
		respondText(w, http.StatusBadRequest, "Invalid gift ID format")
		return
	}

	gift, err := s.gifts.Download(r.Context(), giftID)
	if err != nil {
		respondText(w, http.StatusNotFound, "Gift not found")
		return
	}
	if len(gift.FileData) == 0 {
		respondText(w, http.StatusInternalServerError, "No file data available")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(gift.FileName))
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", gift.FileName))
	w.WriteHeader(http.StatusOK)
	w.Write(gift.FileData)
}

func (s *Server) handleStopPendingGift(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		respondText(w, http.StatusBadRequest, "Invalid gift ID")
		return
	}
	giftID, err := strconv.Atoi(id)
	if err != nil {
		respondText(w, http.StatusBadRequest, "Invalid gift ID format")
		return
	}

	switch err := s.gifts.StopPending(r.Context(), giftID); {
	case err == nil:
		respondText(w, http.StatusOK, "Gift stopped successfully")
	case errors.Is(err, service.ErrGiftNotFound):
		respondText(w, http.StatusNotFound, "Gift not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to delete gift")
	}
}

// parseScheduledTime accepts the two timestamp formats clients send.
func parseScheduledTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04", value)
	}
	return t, err
}

func (s *Server) handleSetupReceivers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GiftID        int    `json:"giftId"`
		Receivers     string `json:"receivers"`
		CustomMessage string `json:"customMessage"`
		ScheduledTime string `json:"scheduledTime"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// An unparseable schedule falls back to the default delay rather than
	// failing the request.
	var releaseAt *time.Time
	if req.ScheduledTime != "" {
		if t, err := parseScheduledTime(req.ScheduledTime); err == nil {
			releaseAt = &t
		}
	}

	err := s.gifts.SetupReceivers(r.Context(), req.GiftID, req.Receivers, releaseAt)
	switch {
	case err == nil:
		respondText(w, http.StatusOK, "Receivers set up successfully. Gift scheduled.")
	case errors.Is(err, service.ErrGiftNotFound):
		respondText(w, http.StatusNotFound, "Gift not found")
	case errors.Is(err, service.ErrNoReceivers):
		respondText(w, http.StatusBadRequest, "At least one receiver is required")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to update gift")
	}
}

func (s *Server) handleGetReceivers(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondError(w, http.StatusBadRequest, "Username is required")
		return
	}

	receivers, err := s.gifts.Receivers(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, receivers)
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	default:
		respondError(w, http.StatusInternalServerError, "Error retrieving receivers")
	}
}

func (s *Server) handleGiftCalendar(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	events, err := s.gifts.Calendar(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, events)
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Error retrieving gift calendar")
	}
}

func (s *Server) handleScheduleCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username      string `json:"username"`
		CustomMessage string `json:"customMessage"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.gifts.ScheduleInactivityCheck(r.Context(), req.Username)
	switch {
	case err == nil:
		respondText(w, http.StatusOK, "Inactivity check scheduled.")
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to schedule inactivity check")
	}
}
