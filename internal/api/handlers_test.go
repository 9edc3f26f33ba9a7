package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/parting-gifts/internal/models"
	"github.com/parting-gifts/internal/service"
)

func postJSON(t *testing.T, server *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)
	return w
}

// TestCreateAccount_Success tests successful registration
func TestCreateAccount_Success(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/create-account", map[string]string{
		"username": "alice",
		"password": "S3cure!pass",
	})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", w.Code)
	}
	if w.Body.String() != "Account created successfully" {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestCreateAccount_DuplicateUsername tests the conflict response
func TestCreateAccount_DuplicateUsername(t *testing.T) {
	server := createTestServer()
	server.accounts = &mockAccountService{
		registerFunc: func(ctx context.Context, req service.RegisterRequest) error {
			return service.ErrUsernameTaken
		},
	}

	w := postJSON(t, server, "/create-account", map[string]string{
		"username": "alice",
		"password": "S3cure!pass",
	})

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
	if w.Body.String() != "Username is taken. Please choose another." {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestCreateAccount_WeakPassword tests the validation response
func TestCreateAccount_WeakPassword(t *testing.T) {
	server := createTestServer()
	server.accounts = &mockAccountService{
		registerFunc: func(ctx context.Context, req service.RegisterRequest) error {
			return service.ErrWeakPassword
		},
	}

	w := postJSON(t, server, "/create-account", map[string]string{
		"username": "alice",
		"password": "short",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid Password") {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestLogin_Success tests a successful login response shape
func TestLogin_Success(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/login", map[string]string{
		"username": "alice",
		"password": "S3cure!pass",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["message"] != "Login successful" {
		t.Errorf("Unexpected message: %v", response["message"])
	}
	if response["token"] != "test-token" {
		t.Errorf("Unexpected token: %v", response["token"])
	}
	if response["forceChange"] != false {
		t.Errorf("Expected forceChange false, got %v", response["forceChange"])
	}
}

// TestLogin_Errors tests the user-not-found and bad-credential responses
func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"unknown user", service.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"wrong password", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer()
			server.accounts = &mockAccountService{
				loginFunc: func(ctx context.Context, username, password string) (*service.LoginResult, error) {
					return nil, tt.err
				},
			}

			w := postJSON(t, server, "/login", map[string]string{
				"username": "alice",
				"password": "whatever",
			})

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			var response map[string]string
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response["error"] != tt.expectedError {
				t.Errorf("Expected error %q, got %q", tt.expectedError, response["error"])
			}
		})
	}
}

// TestResetPassword tests the reset acknowledgement
func TestResetPassword(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/reset-password", map[string]string{
		"email": "alice@example.com",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "Password reset instructions have been sent to your email." {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestVerifySecurityAnswer tests the verification responses
func TestVerifySecurityAnswer(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/verify-security-answer", map[string]string{
		"username":       "alice",
		"securityAnswer": "rex",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["username"] != "alice" {
		t.Errorf("Unexpected username: %q", response["username"])
	}
	if response["forceChange"] != "true" {
		t.Errorf("Expected forceChange \"true\", got %q", response["forceChange"])
	}
}

// TestVerifySecurityAnswer_Incorrect tests the rejection response
func TestVerifySecurityAnswer_Incorrect(t *testing.T) {
	server := createTestServer()
	server.accounts = &mockAccountService{
		verifyAnswerFunc: func(ctx context.Context, username, answer string) error {
			return service.ErrWrongSecurityAnswer
		},
	}

	w := postJSON(t, server, "/verify-security-answer", map[string]string{
		"username":       "alice",
		"securityAnswer": "wrong",
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["error"] != "Incorrect security answer" {
		t.Errorf("Unexpected error: %q", response["error"])
	}
}

// TestChangePassword tests the success and weak-password responses
func TestChangePassword(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/change-password", map[string]string{
		"username":    "alice",
		"newPassword": "N3w!secure",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["message"] != "Password changed successfully" {
		t.Errorf("Unexpected message: %q", response["message"])
	}
}

// TestUploadGift tests a multipart upload round trip
func TestUploadGift(t *testing.T) {
	server := createTestServer()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write([]byte("jpeg-bytes"))
	mw.WriteField("emailMessage", "see you")
	mw.Close()

	req := httptest.NewRequest("POST", "/upload-gift?username=alice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["message"] != "File uploaded successfully" {
		t.Errorf("Unexpected message: %v", response["message"])
	}
	if response["giftId"] != float64(1) {
		t.Errorf("Unexpected giftId: %v", response["giftId"])
	}
}

// TestUploadGift_Refused tests the privacy rejection
func TestUploadGift_Refused(t *testing.T) {
	server := createTestServer()
	server.gifts = &mockGiftService{
		uploadFunc: func(ctx context.Context, username, fileName string, fileData []byte, customMessage string) (int, error) {
			return 0, service.ErrGiftsRefused
		},
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "photo.jpg")
	part.Write([]byte("jpeg-bytes"))
	mw.Close()

	req := httptest.NewRequest("POST", "/upload-gift?username=alice", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
	if w.Body.String() != "User has disabled gift receiving" {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestGetGifts_MissingUsername tests the JSON error envelope
func TestGetGifts_MissingUsername(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/gifts", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["error"] != "Username is required" {
		t.Errorf("Unexpected error: %q", response["error"])
	}
}

// TestDownloadGift tests content type and disposition headers
func TestDownloadGift(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/download-gift?id=1", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Expected Content-Type image/jpeg, got %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "photo.jpg") {
		t.Errorf("Unexpected Content-Disposition: %q", cd)
	}
	if w.Body.String() != "jpeg-bytes" {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestDownloadGift_NotFound tests the missing-gift response
func TestDownloadGift_NotFound(t *testing.T) {
	server := createTestServer()
	server.gifts = &mockGiftService{
		downloadFunc: func(ctx context.Context, giftID int) (*models.Gift, error) {
			return nil, service.ErrGiftNotFound
		},
	}

	req := httptest.NewRequest("GET", "/download-gift?id=99", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w.Body.String() != "Gift not found" {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestStopPendingGift tests the delete endpoint
func TestStopPendingGift(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("DELETE", "/stop-pending-gift?id=1", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "Gift stopped successfully" {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestStopPendingGift_InvalidID tests id validation
func TestStopPendingGift_InvalidID(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{"missing id", "", "Invalid gift ID"},
		{"non-numeric id", "?id=abc", "Invalid gift ID format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer()

			req := httptest.NewRequest("DELETE", "/stop-pending-gift"+tt.query, nil)
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
			if w.Body.String() != tt.expected {
				t.Errorf("Expected body %q, got %q", tt.expected, w.Body.String())
			}
		})
	}
}

// TestSetupReceivers tests scheduling with an explicit time
func TestSetupReceivers(t *testing.T) {
	server := createTestServer()

	var gotSchedule bool
	server.gifts = &mockGiftService{
		setupReceiversFunc: func(ctx context.Context, giftID int, receivers string, releaseAt *time.Time) error {
			gotSchedule = releaseAt != nil
			return nil
		},
	}

	w := postJSON(t, server, "/setup-receivers", map[string]interface{}{
		"giftId":        1,
		"receivers":     "mom@example.com",
		"scheduledTime": "2026-03-14T15:00",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "Receivers set up successfully. Gift scheduled." {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
	if !gotSchedule {
		t.Error("Expected parsed scheduled time to be passed through")
	}
}

// TestSetupReceivers_UnparseableTime tests fallback to the default delay
func TestSetupReceivers_UnparseableTime(t *testing.T) {
	server := createTestServer()

	var gotSchedule *time.Time
	sentinel := time.Now()
	gotSchedule = &sentinel
	server.gifts = &mockGiftService{
		setupReceiversFunc: func(ctx context.Context, giftID int, receivers string, releaseAt *time.Time) error {
			gotSchedule = releaseAt
			return nil
		},
	}

	w := postJSON(t, server, "/setup-receivers", map[string]interface{}{
		"giftId":        1,
		"receivers":     "mom@example.com",
		"scheduledTime": "not-a-time",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if gotSchedule != nil {
		t.Error("Expected nil release time for unparseable schedule")
	}
}

// TestScheduleCheck tests the inactivity check endpoint
func TestScheduleCheck(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/schedule-check", map[string]string{
		"username": "alice",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "Inactivity check scheduled." {
		t.Errorf("Unexpected body: %q", w.Body.String())
	}
}

// TestSocialLists tests the list endpoints return JSON arrays
func TestSocialLists(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/friends/followers?username=alice", "bob"},
		{"/friends/following?username=alice", "carol"},
		{"/users/discover?username=alice", "dave"},
		{"/users/search?username=alice&query=bo", "bob"},
		{"/users/eligible-messaging?username=alice", "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			server := createTestServer()

			req := httptest.NewRequest("GET", tt.path, nil)
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			var users []string
			if err := json.NewDecoder(w.Body).Decode(&users); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if len(users) != 1 || users[0] != tt.expected {
				t.Errorf("Expected [%s], got %v", tt.expected, users)
			}
		})
	}
}

// TestSocialLists_NeverNull tests a nil service result encodes as []
func TestSocialLists_NeverNull(t *testing.T) {
	server := createTestServer()
	server.social = &mockSocialService{
		discoverFunc: func(ctx context.Context, username string) ([]string, error) {
			return nil, nil
		},
	}

	req := httptest.NewRequest("GET", "/users/discover?username=alice", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty array, got %q", w.Body.String())
	}
}

// TestFollow tests follow mutation responses
func TestFollow(t *testing.T) {
	server := createTestServer()

	w := postJSON(t, server, "/users/follow", map[string]string{
		"username":       "alice",
		"friendUsername": "bob",
	})

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

// TestFollow_Self tests the self-follow rejection
func TestFollow_Self(t *testing.T) {
	server := createTestServer()
	server.social = &mockSocialService{
		followFunc: func(ctx context.Context, username, friendUsername string) error {
			return service.ErrSelfFollow
		},
	}

	w := postJSON(t, server, "/users/follow", map[string]string{
		"username":       "alice",
		"friendUsername": "alice",
	})

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

// TestSendMessage tests the messaging responses
func TestSendMessage(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"success", nil, http.StatusOK, "Message sent successfully"},
		{"unknown sender", service.ErrSenderNotFound, http.StatusNotFound, "Sender not found"},
		{"unknown receiver", service.ErrReceiverNotFound, http.StatusNotFound, "Receiver not found"},
		{"messaging disabled", service.ErrMessagingRefused, http.StatusForbidden, "User does not accept messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := createTestServer()
			server.messages = &mockMessageService{
				sendFunc: func(ctx context.Context, fromUsername, toUsername, content string) error {
					return tt.err
				},
			}

			w := postJSON(t, server, "/send-message", map[string]string{
				"sender":   "alice",
				"receiver": "bob",
				"content":  "hi",
			})

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if w.Body.String() != tt.expectedBody {
				t.Errorf("Expected body %q, got %q", tt.expectedBody, w.Body.String())
			}
		})
	}
}

// TestGetMessages tests the inbox endpoint
func TestGetMessages(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/get-messages?username=alice", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var msgs []models.InboxMessage
	if err := json.NewDecoder(w.Body).Decode(&msgs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(msgs) != 1 || msgs[0].From != "bob" || msgs[0].Content != "hi" {
		t.Errorf("Unexpected messages: %+v", msgs)
	}
}

// TestNotifications tests the unread count endpoint
func TestNotifications(t *testing.T) {
	server := createTestServer()

	req := httptest.NewRequest("GET", "/notifications?username=alice", nil)
	w := httptest.NewRecorder()
	server.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response map[string]int
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["unreadMessages"] != 2 {
		t.Errorf("Expected 2 unread messages, got %d", response["unreadMessages"])
	}
}

// TestMissingUsername tests the plain-text validation shared by query endpoints
func TestMissingUsername(t *testing.T) {
	paths := []string{
		"/gift-count",
		"/gift-calendar",
		"/notifications",
		"/friends/followers",
	}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			server := createTestServer()

			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()
			server.router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
			if w.Body.String() != "Username is required" {
				t.Errorf("Unexpected body: %q", w.Body.String())
			}
		})
	}
}
