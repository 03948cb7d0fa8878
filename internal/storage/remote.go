package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteStore talks to an HTTP object-store gateway: PUT /objects/<name>
// stores a blob and returns {"url": ..., "key": ...}; DELETE
// /objects/<key> removes it. Which vendor sits behind the gateway is a
// deployment concern, not a code path.
type RemoteStore struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRemoteStore builds a store client with a bounded request timeout.
func NewRemoteStore(baseURL, apiKey string) *RemoteStore {
	return &RemoteStore{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type remoteUploadResp struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Upload PUTs the blob and decodes the returned reference.
func (s *RemoteStore) Upload(ctx context.Context, data []byte, nameHint string) (Object, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		s.BaseURL+"/objects/"+nameHint, bytes.NewReader(data))
	if err != nil {
		return Object{}, ErrStoreUnavailable
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.Client.Do(req)
	if err != nil {
		return Object{}, ErrStoreUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Object{}, fmt.Errorf("%w: upload status %d", ErrStoreUnavailable, resp.StatusCode)
	}
	var out remoteUploadResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil || out.URL == "" {
		return Object{}, ErrStoreUnavailable
	}
	return Object{URL: out.URL, DeletionKey: out.Key}, nil
}

// Delete removes the blob by deletion key. 404 counts as success.
func (s *RemoteStore) Delete(ctx context.Context, deletionKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		s.BaseURL+"/objects/"+deletionKey, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("delete status %d", resp.StatusCode)
}
