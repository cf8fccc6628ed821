package credentials

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

	"github.com/codefionn/kael/internal/auth"
	"github.com/codefionn/kael/internal/consts"
)

// RemoteSource is a per-user key store reachable over the network.
type RemoteSource interface {
	// FetchAll returns every key stored for user, keyed by credential name.
	FetchAll(ctx context.Context, user *auth.User) (map[string]string, error)
	// Store writes one key for user.
	Store(ctx context.Context, user *auth.User, name, value string) error
}

// HTTPRemoteSource talks to a REST key store:
//
//	GET {BaseURL}/users/{uid}/api_keys         -> {"keys":[{"name":..,"value":..}]}
//	PUT {BaseURL}/users/{uid}/api_keys/{name}  <- {"value":..}
//
// Requests carry the user's ID token as a bearer token.
type HTTPRemoteSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRemoteSource creates a source for baseURL.
func NewHTTPRemoteSource(baseURL string) *HTTPRemoteSource {
	return &HTTPRemoteSource{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: consts.RemoteKeyTimeout},
	}
}

type remoteKeys struct {
	Keys []keyEntry `json:"keys"`
}

// FetchAll implements RemoteSource.
func (s *HTTPRemoteSource) FetchAll(ctx context.Context, user *auth.User) (map[string]string, error) {
	if err := checkUser(user); err != nil {
		return nil, err
	}
	endpoint := s.userURL(user) + "/api_keys"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(req, user)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload remoteKeys
	if err := json.NewDecoder(io.LimitReader(resp.Body, consts.BufferSize1MB)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode remote keys: %w", err)
	}

	keys := make(map[string]string, len(payload.Keys))
	for _, k := range payload.Keys {
		name, value := strings.TrimSpace(k.Name), strings.TrimSpace(k.Value)
		if name != "" && value != "" {
			keys[name] = value
		}
	}
	return keys, nil
}

// Store implements RemoteSource.
func (s *HTTPRemoteSource) Store(ctx context.Context, user *auth.User, name, value string) error {
	if err := checkUser(user); err != nil {
		return err
	}
	body, err := json.Marshal(map[string]string{"value": value})
	if err != nil {
		return err
	}

	endpoint := s.userURL(user) + "/api_keys/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(req, user)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func checkUser(user *auth.User) error {
	if user == nil || user.ID == "" {
		return errors.New("remote keys: no user")
	}
	return nil
}

func (s *HTTPRemoteSource) userURL(user *auth.User) string {
	return s.BaseURL + "/users/" + url.PathEscape(user.ID)
}

// do sends req and turns non-2xx statuses into errors. Response bodies are
// never echoed because they may contain key material.
func (s *HTTPRemoteSource) do(req *http.Request, user *auth.User) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+user.IDToken)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote keys: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, consts.BufferSize64KB))
		resp.Body.Close()
		return nil, fmt.Errorf("remote keys: %s %s returned status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return resp, nil
}
