package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// CorrelationKey is the client_payload field carrying the dispatch id, so the
// resulting run can be matched back to the request.
const CorrelationKey = "actlog_id"

// PublicKey returns the key repository secrets must be sealed with.
func (c *Client) PublicKey(ctx context.Context, owner, repo string) (*PublicKey, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var key PublicKey
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "actions/secrets/public-key"), nil, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ListSecrets returns the names and timestamps of the repository secrets.
func (c *Client) ListSecrets(ctx context.Context, owner, repo string) ([]Secret, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload secretsResponse
	if err := c.do(ctx, http.MethodGet, repoPath(owner, repo, "actions/secrets"), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Secrets, nil
}

// PutSecret creates or updates a secret. sealed must already be encrypted
// with the key identified by keyID and base64 encoded.
func (c *Client) PutSecret(ctx context.Context, owner, repo, name, sealed, keyID string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("secret name required")
	}
	body := struct {
		EncryptedValue string `json:"encrypted_value"`
		KeyID          string `json:"key_id"`
	}{EncryptedValue: sealed, KeyID: keyID}
	return c.do(ctx, http.MethodPut, repoPath(owner, repo, "actions/secrets", name), body, nil)
}

// DeleteSecret removes a secret.
func (c *Client) DeleteSecret(ctx context.Context, owner, repo, name string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("secret name required")
	}
	return c.do(ctx, http.MethodDelete, repoPath(owner, repo, "actions/secrets", name), nil, nil)
}

// DispatchRepository sends a repository_dispatch event. A fresh correlation
// id is added to the payload under CorrelationKey and returned.
func (c *Client) DispatchRepository(ctx context.Context, owner, repo, eventType string, payload map[string]any) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(eventType) == "" {
		return "", fmt.Errorf("event type required")
	}
	id := uuid.NewString()
	clientPayload := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		clientPayload[k] = v
	}
	clientPayload[CorrelationKey] = id
	body := struct {
		EventType     string         `json:"event_type"`
		ClientPayload map[string]any `json:"client_payload"`
	}{EventType: eventType, ClientPayload: clientPayload}
	if err := c.do(ctx, http.MethodPost, repoPath(owner, repo, "dispatches"), body, nil); err != nil {
		return "", err
	}
	return id, nil
}
