package client

import (
	"bytes"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/api"
)

// StatusError is returned when the node answers with an unexpected status.
type StatusError struct {
	Method  string // Method is the HTTP method of the failed request
	Path    string // Path is the request path
	Status  int    // Status is the HTTP status code
	Message string // Message is the error text reported by the node
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// do sends a request and decodes a JSON response into result. A non-nil key
// signs the request. Any 2xx status is a success.
func (c *Client) do(method, path string, key ed25519.PrivateKey, body, result any) error {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal body:\n%w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build request:\n%w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if key != nil {
		api.SignRequest(req, key, raw, time.Now())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", method, path, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)

		return &StatusError{Method: method, Path: path, Status: resp.StatusCode, Message: e.Error}
	}

	if result == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// getRaw performs a GET request and returns the body and headers.
func (c *Client) getRaw(path string) ([]byte, http.Header, error) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return nil, nil, fmt.Errorf("GET %s:\n%w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, &StatusError{Method: http.MethodGet, Path: path, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s:\n%w", path, err)
	}

	return data, resp.Header, nil
}
