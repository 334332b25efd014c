// Package api implements the HTTP client for the remote ledger API.
// It attaches the session credential to every authenticated request,
// decodes the server's error envelope into typed errors, and reports
// rejected credentials so the session manager can force a sign-out.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "financas/internal/errors"
	"financas/internal/logger"
	"financas/internal/models"
)

// TokenSource supplies the current session token. An empty string means
// no session; the request is then sent without a credential and the
// server decides.
type TokenSource interface {
	Token() string
}

// Client talks to the remote ledger API. It is safe for concurrent use
// by multiple goroutines once configured.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	onUnauthorized func()
	log            *zap.SugaredLogger
}

// New creates a Client for the given base URL.
func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		log:        logger.Named("api"),
	}
}

// OnUnauthorized registers a callback fired when an authenticated
// request is rejected with 401, i.e. the locally restored session
// turned out to be stale. Must be set before the client is used.
func (c *Client) OnUnauthorized(fn func()) {
	c.onUnauthorized = fn
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns a token and user.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTransactions fetches the full transaction collection in the
// server-defined order.
func (c *Client) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction fetches a single transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.do(ctx, http.MethodGet, "/transactions/"+id, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTransaction creates a transaction.
func (c *Client) CreateTransaction(ctx context.Context, req models.TransactionRequest) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.do(ctx, http.MethodPost, "/transactions", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTransaction fully replaces the mutable fields of a transaction.
func (c *Client) UpdateTransaction(ctx context.Context, id string, req models.TransactionRequest) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.do(ctx, http.MethodPut, "/transactions/"+id, req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTransaction removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/transactions/"+id, nil, nil, true)
}

// ListCategories fetches the category collection.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out, true); err != nil {
		return nil, err
	}
	return out, nil
}

// do executes a single request. authed requests carry the Bearer token
// from the token source; a 401 on one of them signals a stale session.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnw("request failed", "method", method, "path", path, "error", err)
		return apperrors.Wrap(apperrors.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnreachable, err)
	}

	if resp.StatusCode >= 400 {
		return c.decodeError(method, path, resp.StatusCode, data, authed)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return apperrors.Wrap(apperrors.ErrRemote, err)
		}
	}
	return nil
}

// errorEnvelope is the narrow error-response contract. The server sends
// either a nested {"error":{"code","message"}} object or a flat
// {"message"} body; absence of both falls back to a generic message.
type errorEnvelope struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

func (e errorEnvelope) message() string {
	if e.Error != nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return e.Message
}

func (c *Client) decodeError(method, path string, status int, data []byte, authed bool) error {
	var envelope errorEnvelope
	_ = json.Unmarshal(data, &envelope)
	msg := envelope.message()

	c.log.Warnw("server rejected request",
		"method", method,
		"path", path,
		"status", status,
		"message", msg,
	)

	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		if authed {
			// The locally held token is no longer accepted.
			if c.onUnauthorized != nil {
				c.onUnauthorized()
			}
			return apperrors.ErrSessionExpired
		}
		if msg == "" {
			return apperrors.ErrInvalidCredentials
		}
		return apperrors.WithMessage(apperrors.ErrInvalidCredentials, msg)
	}

	var sentinel *apperrors.AppError
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		sentinel = apperrors.ErrInvalidInput
	case http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	default:
		sentinel = apperrors.ErrRemote
	}
	if msg == "" {
		return sentinel
	}
	return apperrors.WithMessage(sentinel, msg)
}
