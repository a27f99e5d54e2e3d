// Package oracle wraps LLM backends behind the two calls the compliance engine
// needs: structured requirement evaluation and plain completion.
package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

// Request is a single-turn generation request.
type Request struct {
	System string
	User   string
	// JSON asks the backend to constrain output to a JSON document.
	JSON bool
}

// Provider is an LLM backend bound to one credential and model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
	ListModels(ctx context.Context) ([]string, error)
	Close() error
}

// Oracle is what the dispatcher and the QA path call.
type Oracle interface {
	// Evaluate classifies a batch of policy text against the requirement registry.
	Evaluate(ctx context.Context, text string) ([]engine.RawFinding, error)
	// Complete runs a free-form prompt.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Client implements Oracle on top of a Provider.
type Client struct {
	provider         Provider
	evaluationPrompt string
}

var _ Oracle = (*Client)(nil)

// NewClient binds a provider to the evaluation prompt rendered for registry.
func NewClient(p Provider, registry *engine.Registry) (*Client, error) {
	prompt, err := EvaluationPrompt(registry)
	if err != nil {
		return nil, err
	}
	return &Client{provider: p, evaluationPrompt: prompt}, nil
}

// Provider returns the underlying backend.
func (c *Client) Provider() Provider {
	return c.provider
}

// Evaluate sends one batch to the provider and decodes its findings.
// Undecodable output is returned as an error so the caller retries it.
func (c *Client) Evaluate(ctx context.Context, text string) ([]engine.RawFinding, error) {
	out, err := c.provider.Generate(ctx, Request{
		System: c.evaluationPrompt,
		User:   text,
		JSON:   true,
	})
	if err != nil {
		return nil, err
	}
	findings, err := ParseFindings(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	return findings, nil
}

// Complete sends a free-form prompt and returns the trimmed reply.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	out, err := c.provider.Generate(ctx, Request{System: system, User: user})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}
