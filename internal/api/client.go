// Package api implements the HTTP client for the backend mail service.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Mez0/TempBox/internal/logging"
	"github.com/Mez0/TempBox/internal/models"
)

// Client talks to the backend mail API. All message operations take
// the bearer token of the owning account.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logging.Component("api"),
	}
}

// Wire types. The backend exposes a JSON-LD collection format, so
// listings arrive under "hydra:member".

type wireAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type wireMessage struct {
	ID        string      `json:"id"`
	AccountID string      `json:"accountId"`
	From      wireAddress `json:"from"`
	Subject   string      `json:"subject"`
	Intro     string      `json:"intro"`
	Text      string      `json:"text"`
	HTML      []string    `json:"html"`
	Seen      bool        `json:"seen"`
	CreatedAt time.Time   `json:"createdAt"`
}

type messageList struct {
	Members []wireMessage `json:"hydra:member"`
}

type wireAccount struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

type wireDomain struct {
	Domain string `json:"domain"`
}

type domainList struct {
	Members []wireDomain `json:"hydra:member"`
}

type tokenResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type problemResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (m wireMessage) toModel(complete bool) models.Message {
	return models.Message{
		ID:         m.ID,
		AccountID:  m.AccountID,
		From:       models.Address{Name: m.From.Name, Address: m.From.Address},
		Subject:    m.Subject,
		Intro:      m.Intro,
		Text:       m.Text,
		HTML:       m.HTML,
		Seen:       m.Seen,
		IsComplete: complete,
		CreatedAt:  m.CreatedAt,
	}
}

// GetAllMessages lists message summaries for the account owning token.
func (c *Client) GetAllMessages(ctx context.Context, token string) ([]models.Message, error) {
	var list messageList
	if err := c.do(ctx, http.MethodGet, "/messages", token, nil, &list); err != nil {
		return nil, err
	}
	messages := make([]models.Message, 0, len(list.Members))
	for _, m := range list.Members {
		messages = append(messages, m.toModel(false))
	}
	return messages, nil
}

// GetMessage fetches one message in full.
func (c *Client) GetMessage(ctx context.Context, id, token string) (models.Message, error) {
	var m wireMessage
	if err := c.do(ctx, http.MethodGet, "/messages/"+id, token, nil, &m); err != nil {
		return models.Message{}, err
	}
	return m.toModel(true), nil
}

// MarkMessageSeen flips the seen flag and returns the updated message.
func (c *Client) MarkMessageSeen(ctx context.Context, id string, seen bool, token string) (models.Message, error) {
	body := map[string]bool{"seen": seen}
	var m wireMessage
	if err := c.patch(ctx, "/messages/"+id, token, body, &m); err != nil {
		return models.Message{}, err
	}
	return m.toModel(false), nil
}

// DeleteMessage removes a message at the backend.
func (c *Client) DeleteMessage(ctx context.Context, id, token string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+id, token, nil, nil)
}

// CreateAccount provisions a new mailbox at the backend.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (models.Account, error) {
	body := map[string]string{"address": address, "password": password}
	var acc wireAccount
	if err := c.do(ctx, http.MethodPost, "/accounts", "", body, &acc); err != nil {
		return models.Account{}, err
	}
	return models.Account{
		ID:        acc.ID,
		Address:   acc.Address,
		Password:  password,
		CreatedAt: acc.CreatedAt,
	}, nil
}

// DeleteAccount removes the mailbox at the backend.
func (c *Client) DeleteAccount(ctx context.Context, id, token string) error {
	return c.do(ctx, http.MethodDelete, "/accounts/"+id, token, nil, nil)
}

// Token authenticates with address/password and returns a bearer token.
func (c *Client) Token(ctx context.Context, address, password string) (string, error) {
	body := map[string]string{"address": address, "password": password}
	var resp tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token", "", body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Domains lists the domains available for new addresses.
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	var list domainList
	if err := c.do(ctx, http.MethodGet, "/domains", "", nil, &list); err != nil {
		return nil, err
	}
	domains := make([]string, 0, len(list.Members))
	for _, d := range list.Members {
		domains = append(domains, d.Domain)
	}
	return domains, nil
}

// do issues a request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	return c.request(ctx, method, path, token, "application/json", body, out)
}

// patch issues a merge-patch request, which the backend requires for
// partial message updates.
func (c *Client) patch(ctx context.Context, path, token string, body, out any) error {
	return c.request(ctx, http.MethodPatch, path, token, "application/merge-patch+json", body, out)
}

func (c *Client) request(ctx context.Context, method, path, token, contentType string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an *APIError. The body is
// best effort; a missing or malformed problem document still yields a
// status-only APIError.
func (c *Client) decodeError(resp *http.Response) error {
	var problem problemResponse
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err == nil && len(data) > 0 {
		_ = json.Unmarshal(data, &problem)
	}

	message := problem.Detail
	if message == "" {
		message = problem.Title
	}

	c.logger.Debug().
		Int("status", resp.StatusCode).
		Str("detail", logging.Redact(message)).
		Msg("api request failed")

	return &APIError{Status: resp.StatusCode, Message: message}
}
