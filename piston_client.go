package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// --------- Execution engine client ---------

const defaultPistonURL = "https://emkc.org/api/v2/piston/execute"

// pistonTimeout bounds a single execution round trip. Execution is
// expected at interactive latency, unlike assistant calls.
const pistonTimeout = 20 * time.Second

// PistonRequest is the wire format the execution engine accepts.
type PistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []PistonFile `json:"files"`
	Stdin    string       `json:"stdin"`
}

type PistonFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ExecutionResult holds the raw decoded engine response. The engine may
// answer with a nested {run:{stdout,stderr,code,output}} object or a flat
// {output} object; Raw preserves whichever shape came back for history.
type ExecutionResult struct {
	Raw map[string]interface{}
}

// Output extracts the single output string, trying the nested run.output
// field first and falling back to the flat output field.
func (r *ExecutionResult) Output() string {
	if r == nil || r.Raw == nil {
		return ""
	}
	if run, ok := r.Raw["run"].(map[string]interface{}); ok {
		if out, ok := run["output"].(string); ok {
			return out
		}
	}
	if out, ok := r.Raw["output"].(string); ok {
		return out
	}
	return ""
}

// EngineError carries the upstream diagnostic body separately from the
// error message so callers can log and record both.
type EngineError struct {
	Message  string
	Upstream map[string]interface{}
}

func (e *EngineError) Error() string {
	return e.Message
}

// PistonClient issues execution requests against a Piston-compatible
// engine. URL "mock" short-circuits to a canned result for offline runs.
type PistonClient struct {
	url        string
	httpClient *http.Client
}

func NewPistonClient(url string) *PistonClient {
	if url == "" {
		url = defaultPistonURL
	}
	return &PistonClient{
		url:        url,
		httpClient: &http.Client{Timeout: pistonTimeout},
	}
}

// Execute runs code under the given runtime and normalizes the response.
func (c *PistonClient) Execute(ctx context.Context, spec RuntimeSpec, code, stdin string) (*ExecutionResult, error) {
	if c.url == "mock" {
		return &ExecutionResult{Raw: map[string]interface{}{
			"run": map[string]interface{}{
				"stdout": "", "stderr": "", "code": float64(0), "output": "No runner configured",
			},
		}}, nil
	}

	payload := PistonRequest{
		Language: spec.Language,
		Version:  spec.Version,
		Files:    []PistonFile{{Name: spec.Filename, Content: code}},
		Stdin:    stdin,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &EngineError{Message: err.Error()}
	}

	log.Printf("🚀 [PISTON] Sending to %s | language=%s version=%s file=%s", c.url, spec.Language, spec.Version, spec.Filename)

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &EngineError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ [PISTON] HTTP request failed: %v", err)
		return nil, &EngineError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &EngineError{Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("❌ [PISTON] Engine error (status %d): %s", resp.StatusCode, string(body))
		engineErr := &EngineError{Message: fmt.Sprintf("Request failed with status code %d", resp.StatusCode)}
		var upstream map[string]interface{}
		if json.Unmarshal(body, &upstream) == nil {
			engineErr.Upstream = upstream
		}
		return nil, engineErr
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &EngineError{Message: fmt.Sprintf("failed to parse engine response: %v", err)}
	}

	log.Printf("✅ [PISTON] Engine responded with %d bytes", len(body))
	return &ExecutionResult{Raw: raw}, nil
}
