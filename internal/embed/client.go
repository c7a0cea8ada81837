// Package embed provides the sentence-embedding backend used for semantic
// question matching. The backend is an external HTTP service; when it is down
// the matcher degrades to lexical-only scoring, so every method here is
// best-effort by contract.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client calls an embedding server exposing
//
//	POST /embed {"model": "...", "texts": [...]} -> {"embeddings": [[...], ...]}
//	GET  /health
//
// It holds no mutable state and is safe to share across requests.
type Client struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
	Log     *logrus.Logger
}

func NewClient(baseURL, model string, log *logrus.Logger) *Client {
	if model == "" {
		model = "all-MiniLM-L6-v2"
	}
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Log:     log,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per input text, in order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embedRequest{Model: c.Model, Texts: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding backend returned %s", resp.Status)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding backend returned %d vectors for %d texts",
			len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

// Available probes the backend's health endpoint. Called once per grading
// request, not per utterance.
func (c *Client) Available(ctx context.Context) bool {
	if c.BaseURL == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		if c.Log != nil {
			c.Log.WithError(err).Debug("embedding backend probe failed")
		}
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
