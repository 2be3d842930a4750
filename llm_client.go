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

// --------- LLM client ---------

// llmTimeout bounds a single assistant round trip. Assistant calls are
// allowed to be slower than execution calls.
const llmTimeout = 60 * time.Second

// LLMConfig selects the assistant provider. An empty APIKey switches the
// client into mock mode so the service stays usable offline.
type LLMConfig struct {
	APIKey     string
	Model      string
	APIVersion string
	BaseURL    string
}

// LLMClient is a thin wrapper around the Gemini generateContent endpoint.
type LLMClient struct {
	config     LLMConfig
	httpClient *http.Client
}

func NewLLMClient(config LLMConfig) *LLMClient {
	if config.Model == "" {
		config.Model = "gemini-pro"
	}
	if config.APIVersion == "" {
		config.APIVersion = "v1beta"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &LLMClient{
		config:     config,
		httpClient: &http.Client{Timeout: llmTimeout},
	}
}

// Gemini wire format.

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Ask sends a single free-text prompt and returns the model reply.
func (c *LLMClient) Ask(ctx context.Context, prompt string) (string, error) {
	if c.config.APIKey == "" {
		preview := prompt
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return fmt.Sprintf("Mock reply for prompt: %s...", preview), nil
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.config.BaseURL, c.config.APIVersion, c.config.Model, c.config.APIKey)

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	log.Printf("🌐 [LLM] Asking %s | prompt_bytes=%d | timeout=%v", c.config.Model, len(prompt), c.httpClient.Timeout)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("❌ [LLM] HTTP request failed: %v", err)
		return "", fmt.Errorf("Gemini API: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("Gemini API: %v", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("Gemini API %d: %s", resp.StatusCode, string(respBody))
		}
		return "", fmt.Errorf("Gemini API: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(respBody)
		if parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		log.Printf("❌ [LLM] API error (status %d): %s", resp.StatusCode, detail)
		return "", fmt.Errorf("Gemini API %d: %s", resp.StatusCode, detail)
	}

	if len(parsed.Candidates) > 0 && len(parsed.Candidates[0].Content.Parts) > 0 {
		log.Printf("✅ [LLM] Reply received")
		return parsed.Candidates[0].Content.Parts[0].Text, nil
	}

	// No candidate text; surface the raw body so the caller can see what
	// the model actually returned.
	return string(respBody), nil
}
