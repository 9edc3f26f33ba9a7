package client

import (
	"context"
	"encoding/json"
	"net/url"
)

// InboxMessage is one received message from /get-messages.
type InboxMessage struct {
	From      string `json:"from"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Followers lists the users following username.
func (c *Client) Followers(ctx context.Context, username string) ([]string, error) {
	body, err := c.get(ctx, "/friends/followers?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	return decodeStringList(body), nil
}

// Following lists the users username follows.
func (c *Client) Following(ctx context.Context, username string) ([]string, error) {
	body, err := c.get(ctx, "/friends/following?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	return decodeStringList(body), nil
}

// Discover lists suggested users, excluding existing relations.
func (c *Client) Discover(ctx context.Context, username string) ([]string, error) {
	body, err := c.get(ctx, "/users/discover?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	return decodeStringList(body), nil
}

// SearchUsers searches usernames matching query.
func (c *Client) SearchUsers(ctx context.Context, username, query string) ([]string, error) {
	body, err := c.get(ctx, "/users/search?username="+url.QueryEscape(username)+
		"&query="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	return decodeStringList(body), nil
}

// Follow creates a follow edge from username to friendUsername.
func (c *Client) Follow(ctx context.Context, username, friendUsername string) error {
	_, err := c.postJSON(ctx, "/users/follow", map[string]string{
		"username":       username,
		"friendUsername": friendUsername,
	})
	return err
}

// Unfollow removes a follow edge. Unfollowing someone not followed is a
// server-side no-op.
func (c *Client) Unfollow(ctx context.Context, username, friendUsername string) error {
	_, err := c.postJSON(ctx, "/users/unfollow", map[string]string{
		"username":       username,
		"friendUsername": friendUsername,
	})
	return err
}

// EligibleContacts lists the mutual follows username may message.
func (c *Client) EligibleContacts(ctx context.Context, username string) ([]string, error) {
	body, err := c.get(ctx, "/users/eligible-messaging?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	return decodeStringList(body), nil
}

// SendMessage sends a direct message.
func (c *Client) SendMessage(ctx context.Context, sender, receiver, content string) error {
	_, err := c.postJSON(ctx, "/send-message", map[string]string{
		"sender":   sender,
		"receiver": receiver,
		"content":  content,
	})
	return err
}

// Messages fetches the inbox for a username, newest first.
func (c *Client) Messages(ctx context.Context, username string) ([]InboxMessage, error) {
	body, err := c.get(ctx, "/get-messages?username="+url.QueryEscape(username))
	if err != nil {
		return nil, err
	}
	var msgs []InboxMessage
	if err := json.Unmarshal(body, &msgs); err != nil || msgs == nil {
		return []InboxMessage{}, nil
	}
	return msgs, nil
}

// UnreadCount fetches the unread message count.
func (c *Client) UnreadCount(ctx context.Context, username string) (int, error) {
	body, err := c.get(ctx, "/notifications?username="+url.QueryEscape(username))
	if err != nil {
		return 0, err
	}
	var resp struct {
		Unread int `json:"unreadMessages"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, nil
	}
	return resp.Unread, nil
}
