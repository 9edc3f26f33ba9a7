package api

import (
	"errors"
	"net/http"

	"github.com/parting-gifts/internal/service"
)

// respondUserList sends a username list, never null.
func respondUserList(w http.ResponseWriter, users []string, err error) {
	switch {
	case err == nil:
		if users == nil {
			users = []string{}
		}
		respondJSON(w, http.StatusOK, users)
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Error retrieving users")
	}
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	users, err := s.social.Followers(r.Context(), username)
	respondUserList(w, users, err)
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	users, err := s.social.Following(r.Context(), username)
	respondUserList(w, users, err)
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	users, err := s.social.Discover(r.Context(), username)
	respondUserList(w, users, err)
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	users, err := s.social.Search(r.Context(), username, r.URL.Query().Get("query"))
	respondUserList(w, users, err)
}

func (s *Server) handleEligibleMessaging(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}
	users, err := s.social.EligibleForMessaging(r.Context(), username)
	respondUserList(w, users, err)
}

type followRequest struct {
	Username       string `json:"username"`
	FriendUsername string `json:"friendUsername"`
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch err := s.social.Follow(r.Context(), req.Username, req.FriendUsername); {
	case err == nil:
		respondText(w, http.StatusOK, "Followed successfully")
	case errors.Is(err, service.ErrSelfFollow):
		respondText(w, http.StatusBadRequest, "Cannot follow yourself")
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to follow user")
	}
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	var req followRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch err := s.social.Unfollow(r.Context(), req.Username, req.FriendUsername); {
	case err == nil:
		respondText(w, http.StatusOK, "Unfollowed successfully")
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to unfollow user")
	}
}
