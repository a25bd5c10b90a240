// Package client talks to the property backend that hosts the natural
// language interpreter, the filter endpoint, the catalog and user profiles.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"propertychat/internal/model"
)

// UserHeader carries the caller's identity on profile writes
const UserHeader = "X-User-ID"

// Backend is an HTTP client for the property backend. It implements
// service.Interpreter, service.Filterer, service.CatalogSource and
// service.ProfileStore.
type Backend struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBackend creates a client for baseURL
func NewBackend(baseURL string, timeout time.Duration, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type inputRequest struct {
	Message        string `json:"message"`
	CurrentDetails string `json:"currentDetails"` // criteria JSON, sent as a string
}

type customDataRequest struct {
	MergedResult model.Criteria `json:"mergedResult"`
}

// Interpret sends the utterance and the current criteria to POST /api/input
func (b *Backend) Interpret(ctx context.Context, utterance string, current model.Criteria) (*model.Interpretation, error) {
	details, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("encode current criteria: %w", err)
	}

	var out model.Interpretation
	if err := b.do(ctx, http.MethodPost, "/api/input", "", inputRequest{
		Message:        utterance,
		CurrentDetails: string(details),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Filter posts criteria to POST /api/customData
func (b *Backend) Filter(ctx context.Context, criteria model.Criteria) ([]model.Property, error) {
	var out []model.Property
	if err := b.do(ctx, http.MethodPost, "/api/customData", "", customDataRequest{MergedResult: criteria}, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Property{}
	}
	return out, nil
}

// Catalog fetches the full catalog from GET /api/data
func (b *Backend) Catalog(ctx context.Context) ([]model.Property, error) {
	var out []model.Property
	if err := b.do(ctx, http.MethodGet, "/api/data", "", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Property{}
	}
	return out, nil
}

// GetUser fetches GET /api/users/:id; an unknown user is (nil, nil)
func (b *Backend) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var out model.User
	err := b.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID), userID, nil, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if out.ID == "" {
		out.ID = userID
	}
	return &out, nil
}

// PatchPreferences replaces the saved criteria via PATCH /api/users/preferences
func (b *Backend) PatchPreferences(ctx context.Context, userID string, criteria model.Criteria) error {
	return b.do(ctx, http.MethodPatch, "/api/users/preferences", userID, criteria, nil)
}

// PatchMessages replaces the saved transcript via PATCH /api/users/messages
func (b *Backend) PatchMessages(ctx context.Context, userID string, transcript model.Transcript) error {
	if transcript == nil {
		transcript = model.Transcript{}
	}
	return b.do(ctx, http.MethodPatch, "/api/users/messages", userID, transcript, nil)
}

// StatusError is a non-2xx response
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

func (b *Backend) do(ctx context.Context, method, path, userID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}

	start := time.Now()
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	b.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
	}
	return nil
}
