// Package describer provides the optional AI-generated description
// collaborator backing the `generate_description` command: an HTTP call
// to an Ollama-compatible chat endpoint (GET /api/tags probe, POST
// /api/chat), falling back to a terse heuristic description when no
// endpoint is reachable. OpenAI-style response shapes are not parsed; such
// an endpoint also ends in the fallback.
package describer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Describer generates a free-text description of an audio segment from
// its analyzed feature record and any human-authored description already
// on file.
type Describer struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

// New constructs a Describer. baseURL is the chat endpoint
// (Ollama-compatible: POST {baseURL}/api/chat); apiKey is the
// semantic.api_key config value, sent as a bearer token when non-empty.
// A zero-value Describer (empty baseURL) is valid and always falls back.
func New(baseURL, model, apiKey string) *Describer {
	return &Describer{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
		apiKey:  apiKey,
	}
}

// Describe produces a one-sentence description of an audio segment from
// the configured collaborator. summaryHints is a short human-readable
// digest of the segment's analysis (e.g. "bright, percussive, 4.0
// onsets/s, 1.5s") that the caller builds from the Feature record.
func (d *Describer) Describe(ctx context.Context, path, existingDescription, summaryHints string) (string, error) {
	if d.baseURL == "" {
		return d.fallback(path, summaryHints), nil
	}

	desc, err := d.describeViaChat(ctx, path, existingDescription, summaryHints)
	if err == nil && desc != "" {
		return desc, nil
	}
	log.Printf("[describer] chat endpoint unavailable, using fallback: %v", err)
	return d.fallback(path, summaryHints), nil
}

func (d *Describer) describeViaChat(ctx context.Context, path, existingDescription, summaryHints string) (string, error) {
	if _, err := d.client.Get(d.baseURL + "/api/tags"); err != nil {
		return "", fmt.Errorf("chat endpoint not reachable at %s: %w", d.baseURL, err)
	}

	systemPrompt := "You describe short audio segments for a semantic sound-retrieval library. " +
		"Given a file path and its acoustic analysis, respond with ONE concise descriptive sentence " +
		"(no preamble, no markdown)."
	userPrompt := fmt.Sprintf("path: %s\nexisting description: %s\nacoustic profile: %s", path, existingDescription, summaryHints)

	reqBody := map[string]any{
		"model": d.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"stream": false,
	}

	return d.callChat(ctx, reqBody)
}

func (d *Describer) callChat(ctx context.Context, reqBody any) (string, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("chat endpoint error: %s", result.Error)
	}
	return strings.TrimSpace(result.Message.Content), nil
}

// fallback synthesizes a terse description with no external dependency,
// so generate_description remains usable when no collaborator is
// configured or reachable.
func (d *Describer) fallback(path, summaryHints string) string {
	if summaryHints == "" {
		return fmt.Sprintf("audio segment from %s", path)
	}
	return fmt.Sprintf("audio segment from %s (%s)", path, summaryHints)
}
