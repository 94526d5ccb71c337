package deploy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SmokeOptions configures the post-deploy smoke run.
type SmokeOptions struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type smokeCheck struct {
	name string
	run  func(client *http.Client, opts SmokeOptions) error
}

// Smoke waits for the service to come up, then exercises the read and write
// paths of the API. Any failed check makes the run fail.
func Smoke(opts SmokeOptions) error {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:8000"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	info("[smoke] waiting for %s/api/v1/health", opts.BaseURL)
	if err := waitHTTP(opts.BaseURL+"/api/v1/health", 200, opts.Timeout); err != nil {
		return err
	}

	client := &http.Client{Timeout: 30 * time.Second}
	checks := []smokeCheck{
		{"health", checkHealth},
		{"models", checkModels},
		{"chat", checkChat},
	}

	failed := 0
	for _, c := range checks {
		if err := c.run(client, opts); err != nil {
			errl("[smoke] FAIL %-8s %v", c.name, err)
			failed++
			continue
		}
		info("[smoke] PASS %-8s", c.name)
	}
	if failed > 0 {
		return fmt.Errorf("smoke: %d of %d checks failed", failed, len(checks))
	}
	info("[smoke] all %d checks passed", len(checks))
	return nil
}

func smokeGet(client *http.Client, opts SmokeOptions, path string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, opts.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if opts.APIKey != "" {
		req.Header.Set("X-API-Key", opts.APIKey)
	}
	return client.Do(req)
}

func checkHealth(client *http.Client, opts SmokeOptions) error {
	resp, err := smokeGet(client, opts, "/api/v1/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if body.Status != "healthy" {
		return fmt.Errorf("status %q", body.Status)
	}
	return nil
}

func checkModels(client *http.Client, opts SmokeOptions) error {
	resp, err := smokeGet(client, opts, "/api/v1/models")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		TotalModels int `json:"total_models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if body.TotalModels == 0 {
		return fmt.Errorf("no models configured")
	}
	return nil
}

func checkChat(client *http.Client, opts SmokeOptions) error {
	payload, _ := json.Marshal(map[string]any{"message": "smoke test"})
	req, err := http.NewRequest(http.MethodPost, opts.BaseURL+"/api/v1/chat", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.APIKey != "" {
		req.Header.Set("X-API-Key", opts.APIKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if body.Response == "" {
		return fmt.Errorf("empty response")
	}
	return nil
}
