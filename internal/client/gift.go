package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Gift is a stored gift as returned by /gifts. The backend contract moved
// from CamelCase to snake_case field names mid-life; both are accepted,
// snake_case winning when a payload carries both.
type Gift struct {
	ID            int
	FileName      string
	CustomMessage string
	Pending       bool
	UploadTime    string
	ReleaseDate   string
}

func (g *Gift) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID               int     `json:"id"`
		FileName         *string `json:"file_name"`
		LegacyFileName   *string `json:"FileName"`
		CustomMessage    *string `json:"custom_message"`
		LegacyCustomMsg  *string `json:"CustomMessage"`
		Pending          *bool   `json:"pending"`
		LegacyPending    *bool   `json:"Pending"`
		UploadTime       *string `json:"upload_time"`
		LegacyUploadTime *string `json:"UploadTime"`
		ScheduledRelease *string `json:"scheduled_release"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.ID = raw.ID
	g.FileName = firstString(raw.FileName, raw.LegacyFileName)
	g.CustomMessage = firstString(raw.CustomMessage, raw.LegacyCustomMsg)
	g.UploadTime = firstString(raw.UploadTime, raw.LegacyUploadTime)
	if raw.ScheduledRelease != nil {
		g.ReleaseDate = *raw.ScheduledRelease
	}
	switch {
	case raw.Pending != nil:
		g.Pending = *raw.Pending
	case raw.LegacyPending != nil:
		g.Pending = *raw.LegacyPending
	}
	return nil
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return ""
}

// CalendarEvent is one entry of /gift-calendar.
type CalendarEvent struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate"`
	Message     string `json:"message"`
	IsPending   bool   `json:"isPending"`
	Receivers   string `json:"receivers"`
}

// GiftFile is a downloaded gift payload.
type GiftFile struct {
	Data        []byte
	ContentType string
}

// Gifts lists a user's gifts. Null or malformed responses decode to an
// empty list.
func (c *Client) Gifts(ctx context.Context, username string) ([]Gift, error) {
	body, err := c.get(ctx, "/gifts?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	var gifts []Gift
	if err := json.Unmarshal(body, &gifts); err != nil || gifts == nil {
		return []Gift{}, nil
	}
	return gifts, nil
}

// GiftCount fetches the total number of a user's gifts.
func (c *Client) GiftCount(ctx context.Context, username string) (int, error) {
	body, err := c.get(ctx, "/gift-count?username="+url.QueryEscape(username))
	if err != nil {
		return 0, err
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, nil
	}
	return resp.Count, nil
}

// PendingCount fetches the pending-message count for the dashboard badge.
func (c *Client) PendingCount(ctx context.Context, username string) (int, error) {
	body, err := c.get(ctx, "/dashboard/pending-gifts?username="+url.QueryEscape(username))
	if err != nil {
		return 0, err
	}
	var resp struct {
		Pending int `json:"pending_messages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, nil
	}
	return resp.Pending, nil
}

// UploadGift uploads a file (or message-only gift) and returns the new
// gift id.
func (c *Client) UploadGift(ctx context.Context, username, fileName string, fileData []byte, emailMessage string) (int, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return 0, err
	}
	if _, err := part.Write(fileData); err != nil {
		return 0, err
	}
	if emailMessage != "" {
		if err := mw.WriteField("emailMessage", emailMessage); err != nil {
			return 0, err
		}
	}
	if err := mw.Close(); err != nil {
		return 0, err
	}

	body, err := c.do(ctx, http.MethodPost,
		"/upload-gift?username="+url.QueryEscape(username),
		mw.FormDataContentType(), &buf)
	if err != nil {
		return 0, err
	}
	var resp struct {
		GiftID int `json:"giftId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, err
	}
	return resp.GiftID, nil
}

// DownloadGift retrieves a gift's file bytes.
func (c *Client) DownloadGift(ctx context.Context, giftID int) (*GiftFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/download-gift?id="+strconv.Itoa(giftID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: extractErrorText(data, resp.StatusCode)}
	}
	return &GiftFile{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

// StopPendingGift cancels a pending gift.
func (c *Client) StopPendingGift(ctx context.Context, giftID int) error {
	_, err := c.do(ctx, http.MethodDelete, "/stop-pending-gift?id="+strconv.Itoa(giftID), "", nil)
	return err
}

// SetupReceivers assigns recipients and an optional schedule to a gift.
// scheduledTime may be empty for the server's default delay.
func (c *Client) SetupReceivers(ctx context.Context, giftID int, receivers, customMessage, scheduledTime string) (string, error) {
	body, err := c.postJSON(ctx, "/setup-receivers", map[string]interface{}{
		"giftId":        giftID,
		"receivers":     receivers,
		"customMessage": customMessage,
		"scheduledTime": scheduledTime,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// Receivers lists the distinct receiver emails across a user's gifts.
func (c *Client) Receivers(ctx context.Context, username string) ([]string, error) {
	body, err := c.get(ctx, "/get-receivers?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	return decodeStringList(body), nil
}

// Calendar fetches the gift release events for the calendar view.
func (c *Client) Calendar(ctx context.Context, username string) ([]CalendarEvent, error) {
	body, err := c.get(ctx, "/gift-calendar?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	var events []CalendarEvent
	if err := json.Unmarshal(body, &events); err != nil || events == nil {
		return []CalendarEvent{}, nil
	}
	return events, nil
}

// ScheduleCheck arms the inactivity check for a user and returns the
// server's acknowledgement.
func (c *Client) ScheduleCheck(ctx context.Context, username string) (string, error) {
	body, err := c.postJSON(ctx, "/schedule-check", map[string]string{"username": username})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
