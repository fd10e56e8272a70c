package webex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const apiBaseURL = "https://webexapis.com/v1"

// Message is the subset of the Webex message resource the bot needs.
type Message struct {
	Id          string `json:"id"`
	RoomId      string `json:"roomId"`
	PersonId    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
	Text        string `json:"text"`
	Created     string `json:"created"`
}

// Client talks to the Webex REST API with a bot token. Webhook payloads
// carry only the message id, so the text is always fetched back.
type Client interface {
	GetMessage(ctx context.Context, messageId string) (*Message, error)
	SendMessage(ctx context.Context, roomId, markdown string) error
}

type HTTPClient struct {
	Token   string
	BaseURL string
	Client  *http.Client
}

var _ Client = &HTTPClient{}

func NewClient(token string) *HTTPClient {
	return &HTTPClient{
		Token:   token,
		BaseURL: apiBaseURL,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *HTTPClient) GetMessage(ctx context.Context, messageId string) (*Message, error) {
	url := fmt.Sprintf("%s/messages/%s", c.BaseURL, messageId)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webex request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webex error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var msg Message
	if err := json.Unmarshal(bodyBytes, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	return &msg, nil
}

type sendMessageRequest struct {
	RoomId   string `json:"roomId"`
	Markdown string `json:"markdown"`
}

func (c *HTTPClient) SendMessage(ctx context.Context, roomId, markdown string) error {
	payloadBytes, err := json.Marshal(sendMessageRequest{
		RoomId:   roomId,
		Markdown: markdown,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.BaseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("webex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webex error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return nil
}
