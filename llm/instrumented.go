package llm

import (
	"context"
	"time"

	obs "github.com/suryapa1/adk-simple-mcp-demo-with-armour/observability"
)

// InstrumentedClient decorates a Client with spans and request/token metrics.
type InstrumentedClient struct {
	inner Client
}

// NewInstrumentedClient wraps c. Wrapping an already instrumented client returns it unchanged.
func NewInstrumentedClient(c Client) *InstrumentedClient {
	if ic, ok := c.(*InstrumentedClient); ok {
		return ic
	}
	return &InstrumentedClient{inner: c}
}

// Unwrap returns the decorated client.
func (c *InstrumentedClient) Unwrap() Client { return c.inner }

func (c *InstrumentedClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "llm.chat")
	defer span.End()
	span.SetAttribute(obs.AttrProvider, string(c.inner.Provider()))
	span.SetAttribute(obs.AttrModel, c.inner.Model())

	labels := map[string]string{"direction": "request", "model": c.inner.Model()}
	obs.MetricsImpl.IncrementRequests(labels)
	start := time.Now()

	resp, err := c.inner.Chat(ctx, req)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		errType := string(ErrorTypeUnknown)
		if llmErr, ok := IsLLMError(err); ok {
			errType = string(llmErr.Type)
		}
		obs.MetricsImpl.RecordError(errType, labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}
	if resp.FinishReason != "" {
		span.SetAttribute(obs.AttrFinishReason, resp.FinishReason)
	}
	if resp.Usage != nil {
		span.SetAttribute(obs.AttrTokensInput, resp.Usage.InputTokens)
		span.SetAttribute(obs.AttrTokensOutput, resp.Usage.OutputTokens)
		obs.MetricsImpl.IncrementTokensUsed(resp.Usage.InputTokens, map[string]string{"direction": "input", "model": c.inner.Model()})
		obs.MetricsImpl.IncrementTokensUsed(resp.Usage.OutputTokens, map[string]string{"direction": "output", "model": c.inner.Model()})
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return resp, nil
}

func (c *InstrumentedClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	return c.Chat(ctx, &ChatRequest{Messages: []Message{{Role: "user", Content: prompt}}})
}

func (c *InstrumentedClient) Stream(ctx context.Context, req *ChatRequest, output chan<- *Response) error {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "llm.stream")
	defer span.End()
	span.SetAttribute(obs.AttrModel, c.inner.Model())
	if err := c.inner.Stream(ctx, req, output); err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return nil
}

func (c *InstrumentedClient) Model() string      { return c.inner.Model() }
func (c *InstrumentedClient) Provider() Provider { return c.inner.Provider() }
func (c *InstrumentedClient) Validate() error    { return c.inner.Validate() }

var _ Client = (*InstrumentedClient)(nil)
