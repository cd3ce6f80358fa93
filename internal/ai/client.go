// Package ai talks to the Gemini API for the assistant chat, action
// execution, and the one-shot advisory prompts used by the dashboard.
package ai

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

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.5-flash"
)

// Client is a minimal Gemini generateContent client.
type Client struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gemini client. modelName and maxTokens fall back to
// defaults when zero-valued.
func NewClient(apiKey, modelName string, maxTokens int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ai: API key is required")
	}
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		baseURL:   defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Content is a single turn in a conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is one piece of a turn: text, a model-issued function call, or the
// result we hand back for one.
type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

// FunctionCall is the model asking us to run a declared function.
type FunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries a function's outcome back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Schema is the OpenAPI-subset type description the API accepts for
// function parameters and structured responses.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// FunctionDeclaration describes one callable function to the model.
type FunctionDeclaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// Tool groups function declarations for a request.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// ThinkingConfig bounds the model's reasoning tokens. Required alongside
// MaxOutputTokens on thinking-capable models or the cap starves the answer.
type ThinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

// GenerationConfig tunes a single request.
type GenerationConfig struct {
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxOutputTokens  int             `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema         `json:"responseSchema,omitempty"`
	ThinkingConfig   *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

type generateRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// GenerateResponse is the subset of the API response we consume.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return strings.TrimSpace(b.String())
}

// FunctionCall returns the first function call of the first candidate, or
// nil when the model answered with plain text.
func (r *GenerateResponse) FunctionCall() *FunctionCall {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	for _, part := range r.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			return part.FunctionCall
		}
	}
	return nil
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateContent performs one generateContent call.
func (c *Client) GenerateContent(ctx context.Context, req generateRequest) (*GenerateResponse, error) {
	if req.GenerationConfig == nil {
		req.GenerationConfig = &GenerationConfig{MaxOutputTokens: c.maxTokens}
	} else if req.GenerationConfig.MaxOutputTokens == 0 {
		req.GenerationConfig.MaxOutputTokens = c.maxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("API error %d (%s): %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var out GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &out, nil
}

// GenerateText is a convenience for one-shot prompts without tools.
func (c *Client) GenerateText(ctx context.Context, system, prompt string, cfg *GenerationConfig) (string, error) {
	req := generateRequest{
		Contents:         []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
		GenerationConfig: cfg,
	}
	if system != "" {
		req.SystemInstruction = &Content{Parts: []Part{{Text: system}}}
	}
	resp, err := c.GenerateContent(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// ModelSession is a stateful multi-turn exchange with the model.
type ModelSession interface {
	Send(ctx context.Context, parts ...Part) (*GenerateResponse, error)
}

// ChatSession keeps conversation history across Send calls so function
// results land in the same exchange that requested them.
type ChatSession struct {
	client  *Client
	system  *Content
	tools   []Tool
	history []Content
}

// NewChat starts a session with the given system instruction and tools.
func (c *Client) NewChat(systemInstruction string, tools []Tool) *ChatSession {
	cs := &ChatSession{client: c, tools: tools}
	if systemInstruction != "" {
		cs.system = &Content{Parts: []Part{{Text: systemInstruction}}}
	}
	return cs
}

// Send appends the parts as a user turn, calls the model, and records the
// model's reply in the history. History is not extended when the call fails.
func (s *ChatSession) Send(ctx context.Context, parts ...Part) (*GenerateResponse, error) {
	turn := Content{Role: "user", Parts: parts}
	req := generateRequest{
		SystemInstruction: s.system,
		Contents:          append(append([]Content{}, s.history...), turn),
		Tools:             s.tools,
	}
	resp, err := s.client.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}
	s.history = append(s.history, turn)
	if len(resp.Candidates) > 0 {
		reply := resp.Candidates[0].Content
		if reply.Role == "" {
			reply.Role = "model"
		}
		s.history = append(s.history, reply)
	}
	return resp, nil
}
