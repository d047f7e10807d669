package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// Message is one chat turn, OpenAI chat-completions shape.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a callable function to the model.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
// Calls go through a circuit breaker so a dead provider fails the run fast
// instead of burning every epoch on timeouts.
type Client struct {
	url    string
	apiKey string

	hc      *http.Client
	breaker *gobreaker.CircuitBreaker[*Message]
}

func NewClient(url, apiKey string) *Client {
	return &Client{
		url:    url,
		apiKey: apiKey,
		hc: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Minute,
		},
		breaker: gobreaker.NewCircuitBreaker[*Message](gobreaker.Settings{
			Name: "provider circuit breaker",
		}),
	}
}

// Chat requests the next assistant message for the given conversation.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, tools []Tool) (*Message, error) {
	msg, err := c.breaker.Execute(func() (*Message, error) {
		return c.chat(ctx, model, messages, tools)
	})
	if err != nil {
		return nil, &errs.ErrProvider{
			Model: model,
			Sub:   err,
		}
	}
	return msg, nil
}

func (c *Client) chat(ctx context.Context, model string, messages []Message, tools []Tool) (*Message, error) {
	payload, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(res.Body, 16<<20))
	if err != nil {
		return nil, err
	}

	cr := &chatResponse{}
	if err := json.Unmarshal(body, cr); err != nil {
		return nil, errors.Wrapf(err, "decoding provider response (status %d)", res.StatusCode)
	}
	if res.StatusCode != http.StatusOK {
		if cr.Error != nil {
			return nil, errors.Errorf("provider returned status %d: %s", res.StatusCode, cr.Error.Message)
		}
		return nil, errors.Errorf("provider returned status %d", res.StatusCode)
	}
	if len(cr.Choices) == 0 {
		return nil, errors.New("provider returned no choices")
	}
	return &cr.Choices[0].Message, nil
}
