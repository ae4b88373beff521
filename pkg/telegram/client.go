package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin HTTP client for the Bot API methods this backend needs.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(apiURL, token string) *Client {
	return &Client{
		baseURL: apiURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var env apiResponse
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("%s: status %d: %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		return fmt.Errorf("%s: api error: %s", method, env.Description)
	}
	if out != nil {
		return json.Unmarshal(env.Result, out)
	}
	return nil
}

// SendMessage sends plain text with an optional keyboard markup.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, markup interface{}) error {
	payload := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return c.call(ctx, "sendMessage", payload, nil)
}

// SendDocument re-sends a platform-held file by its opaque id.
func (c *Client) SendDocument(ctx context.Context, chatID int64, fileID, caption string) error {
	payload := map[string]interface{}{
		"chat_id":  chatID,
		"document": fileID,
	}
	if caption != "" {
		payload["caption"] = caption
	}
	return c.call(ctx, "sendDocument", payload, nil)
}

// IsChatMember reports whether the user is currently in the chat. Any transport or
// API failure surfaces as an error; callers are expected to fail closed.
func (c *Client) IsChatMember(ctx context.Context, chatID string, userID int64) (bool, error) {
	var member ChatMember
	err := c.call(ctx, "getChatMember", map[string]interface{}{
		"chat_id": chatID,
		"user_id": userID,
	}, &member)
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]interface{}{
		"callback_query_id": callbackID,
	}, nil)
}

// SetWebhook points the platform at this backend's update endpoint.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.call(ctx, "setWebhook", map[string]interface{}{"url": url}, nil)
}
