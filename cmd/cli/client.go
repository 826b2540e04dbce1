package main

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

	"github.com/smallwat3r/safes/internal/domain"
	"github.com/smallwat3r/safes/internal/utility"
)

const maxRetries = 5

var retryDelay = 1 * time.Second

var errSafeNotFound = errors.New("safe not found: it expired or was already opened")

// Secret is one entry of a safe, as the web client stores it.
type Secret struct {
	Secret      string `json:"secret"`
	Description string `json:"description"`
}

type lockResult struct {
	ShareURL  string
	ExpiresAt time.Time
}

type client struct {
	http    *http.Client
	baseURL string
	stderr  io.Writer
}

func newClient(baseURL string, stderr io.Writer) *client {
	return &client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		stderr:  stderr,
	}
}

// post handles retries for serverless instances that may need to wake up.
func (c *client) post(ctx context.Context, target string, body []byte) (*http.Response, error) {
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			fmt.Fprintf(c.stderr, "server returned 502, retrying in %v... (%d/%d)\n", retryDelay, i, maxRetries-1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusBadGateway {
			return resp, nil
		}
		resp.Body.Close()
	}

	return nil, fmt.Errorf("server unavailable after %d retries", maxRetries)
}

func (c *client) lock(ctx context.Context, secrets []Secret, window time.Duration, unlocks uint32) (lockResult, error) {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return lockResult{}, fmt.Errorf("encode secrets: %w", err)
	}
	env, err := utility.Seal(plaintext)
	if err != nil {
		return lockResult{}, fmt.Errorf("encrypt secrets: %w", err)
	}

	body, err := json.Marshal(domain.LockReq{
		OpenDuration: uint64(window / time.Second),
		UnlocksLeft:  utility.Uint32Ptr(unlocks),
		Nonce:        env.Nonce,
		Secrets:      env.Ciphertext,
	})
	if err != nil {
		return lockResult{}, fmt.Errorf("encode request: %w", err)
	}

	start := time.Now()
	resp, err := c.post(ctx, c.baseURL+"/safes", body)
	if err != nil {
		return lockResult{}, fmt.Errorf("lock safe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return lockResult{}, fmt.Errorf("lock safe: status %d, body: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var res domain.LockRes
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return lockResult{}, fmt.Errorf("decode response: %w", err)
	}

	return lockResult{
		ShareURL:  c.baseURL + res.Href + "#" + env.Key,
		ExpiresAt: start.Add(window),
	}, nil
}

func (c *client) unlock(ctx context.Context, shareURL string) ([]Secret, error) {
	u, err := url.Parse(shareURL)
	if err != nil {
		return nil, fmt.Errorf("parse share URL: %w", err)
	}
	key := u.Fragment
	if key == "" {
		return nil, errors.New("share URL has no key after '#'")
	}
	if !strings.Contains(u.Path, "/safes/") {
		return nil, errors.New("share URL does not point at a safe")
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.Path = strings.TrimRight(u.Path, "/")

	resp, err := c.post(ctx, u.String(), []byte("{}"))
	if err != nil {
		return nil, fmt.Errorf("unlock safe: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errSafeNotFound
	default:
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unlock safe: status %d, body: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var contents domain.Contents
	if err := json.NewDecoder(resp.Body).Decode(&contents); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	plaintext, err := utility.Open(utility.Envelope{
		Key:        key,
		Nonce:      contents.Nonce,
		Ciphertext: contents.Secrets,
	})
	if err != nil {
		return nil, fmt.Errorf("decrypt secrets: %w", err)
	}

	var secrets []Secret
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("decode secrets: %w", err)
	}
	return secrets, nil
}
