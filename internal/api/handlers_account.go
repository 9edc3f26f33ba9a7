package api

import (
	"errors"
	"net/http"

	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/service"
)

// accountPayload mirrors the account JSON body shared by registration and
// the details update endpoint.
type accountPayload struct {
	Username               string `json:"username"`
	Password               string `json:"password"`
	PrimaryContactEmail    string `json:"primary_contact_email,omitempty"`
	SecondaryContactEmails string `json:"secondary_contact_emails,omitempty"`
	SecurityQuestion       string `json:"security_question,omitempty"`
	SecurityAnswer         string `json:"security_answer,omitempty"`
}

const weakPasswordMessage = "Invalid Password. Must be at least 8 characters with a mix of letters, numbers and special characters."

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload accountPayload
	if err := parseJSONBody(r, &payload); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.Register(r.Context(), service.RegisterRequest{
		Username:               payload.Username,
		Password:               payload.Password,
		PrimaryContactEmail:    payload.PrimaryContactEmail,
		SecondaryContactEmails: payload.SecondaryContactEmails,
		SecurityQuestion:       payload.SecurityQuestion,
		SecurityAnswer:         payload.SecurityAnswer,
	})
	switch {
	case err == nil:
		respondText(w, http.StatusCreated, "Account created successfully")
	case errors.Is(err, service.ErrWeakPassword):
		respondText(w, http.StatusBadRequest, weakPasswordMessage)
	case errors.Is(err, service.ErrInvalidUsername):
		respondText(w, http.StatusBadRequest, "Invalid username. Use 4-20 letters, numbers or underscores.")
	case errors.Is(err, service.ErrUsernameTaken):
		respondText(w, http.StatusConflict, "Username is taken. Please choose another.")
	default:
		logUnexpected(r, err)
		respondText(w, http.StatusInternalServerError, "Registration failed")
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseJSONBody(r, &credentials); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.accounts.Login(r.Context(), credentials.Username, credentials.Password)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message":     "Login successful",
			"forceChange": result.ForceChange,
			"token":       result.Token,
		})
	case errors.Is(err, service.ErrUserNotFound):
		respondError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid username or password")
	default:
		logUnexpected(r, err)
		respondError(w, http.StatusInternalServerError, "Login error")
	}
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.ResetPassword(r.Context(), req.Email)
	switch {
	case err == nil:
		respondText(w, http.StatusOK, "Password reset instructions have been sent to your email.")
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Error updating password")
	}
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		NewPassword string `json:"newPassword"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.ChangePassword(r.Context(), req.Username, req.NewPassword)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
	case errors.Is(err, service.ErrWeakPassword):
		respondText(w, http.StatusBadRequest, weakPasswordMessage)
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to update password")
	}
}

func (s *Server) handleGetSecurityInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	username, question, err := s.accounts.SecurityInfo(r.Context(), req.Email)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{
			"username":         username,
			"securityQuestion": question,
		})
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Database error")
	}
}

func (s *Server) handleVerifySecurityAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username       string `json:"username"`
		SecurityAnswer string `json:"securityAnswer"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.VerifySecurityAnswer(r.Context(), req.Username, req.SecurityAnswer)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{
			"message":     "Security answer verified successfully",
			"username":    req.Username,
			"forceChange": "true",
		})
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrSecurityNotSetup):
		respondText(w, http.StatusBadRequest, "Security question not set up for this user")
	case errors.Is(err, service.ErrWrongSecurityAnswer):
		respondError(w, http.StatusUnauthorized, "Incorrect security answer")
	default:
		respondText(w, http.StatusInternalServerError, "Database error")
	}
}

func (s *Server) handleUpdateEmails(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		username, ok := requireUsername(w, r)
		if !ok {
			return
		}
		user, err := s.accounts.Details(r.Context(), username)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, map[string]interface{}{
				"username":                 user.Username,
				"primary_contact_email":    user.PrimaryContactEmail,
				"secondary_contact_emails": user.SecondaryContactEmails,
				"security_question":        user.SecurityQuestion,
				"security_answer":          user.SecurityAnswer,
			})
		case errors.Is(err, service.ErrUserNotFound):
			respondText(w, http.StatusNotFound, "User not found")
		default:
			respondText(w, http.StatusInternalServerError, "Database error")
		}

	case http.MethodPost:
		var payload accountPayload
		if err := parseJSONBody(r, &payload); err != nil {
			respondText(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		err := s.accounts.UpdateDetails(r.Context(), payload.Username,
			payload.PrimaryContactEmail, payload.SecondaryContactEmails,
			payload.SecurityQuestion, payload.SecurityAnswer)
		switch {
		case err == nil:
			respondText(w, http.StatusOK, "Personal details updated successfully")
		case errors.Is(err, service.ErrUserNotFound):
			respondText(w, http.StatusNotFound, "No user found with that username")
		default:
			respondText(w, http.StatusInternalServerError, "Update failed")
		}
	}
}

func (s *Server) handleGetPrivacy(w http.ResponseWriter, r *http.Request) {
	username, ok := requireUsername(w, r)
	if !ok {
		return
	}

	settings, err := s.accounts.Privacy(r.Context(), username)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, settings)
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to retrieve privacy settings")
	}
}

func (s *Server) handleUpdatePrivacy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		models.PrivacySettings
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondText(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := s.accounts.UpdatePrivacy(r.Context(), req.Username, req.PrivacySettings)
	switch {
	case err == nil:
		respondText(w, http.StatusOK, "Privacy settings updated successfully")
	case errors.Is(err, service.ErrUserNotFound):
		respondText(w, http.StatusNotFound, "User not found")
	default:
		respondText(w, http.StatusInternalServerError, "Failed to update privacy settings")
	}
}
