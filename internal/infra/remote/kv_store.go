// Package remote adapts a hosted JSON bin service to the storage
// capability, used as an optional secondary shared store. Endpoint and
// API key come from configuration; nothing is hardcoded.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// KVStore talks to a simple key/value HTTP service: GET <base>/<key>
// returns the payload, PUT <base>/<key> stores it. The API key, when set,
// travels in the X-Master-Key header.
type KVStore struct {
	base   string
	apiKey string
	client *http.Client
}

func NewKVStore(base, apiKey string, timeout time.Duration) *KVStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KVStore{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.keyURL(key), nil)
	if err != nil {
		return "", false, fmt.Errorf("remote get %s: %w", key, err)
	}
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("remote get %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("remote get %s: unexpected status %d", key, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("remote get %s: %w", key, err)
	}
	return string(body), true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.keyURL(key), strings.NewReader(value))
	if err != nil {
		return fmt.Errorf("remote set %s: %w", key, err)
	}
	req.Header.Set("Content-Type", "application/json")
	s.auth(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote set %s: %w", key, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("remote set %s: unexpected status %d", key, resp.StatusCode)
	}
	return nil
}

func (s *KVStore) keyURL(key string) string {
	return s.base + "/" + url.PathEscape(key)
}

func (s *KVStore) auth(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("X-Master-Key", s.apiKey)
	}
}
