package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

// Providers lists the backend names NewProvider accepts.
var Providers = []string{"gemini", "openai", "anthropic"}

// ProviderConfig selects and configures one backend instance.
type ProviderConfig struct {
	Name        string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
}

type temperatureSetter interface {
	SetTemperature(float32)
}

// NewProvider builds the backend named in cfg.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider %s", cfg.Name)
	}

	var p Provider
	switch cfg.Name {
	case "gemini":
		g, err := NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		p = g
	case "openai":
		p = NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic":
		p = NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Name)
	}
	if ts, ok := p.(temperatureSetter); ok {
		ts.SetTemperature(cfg.Temperature)
	}
	return p, nil
}

// Pool rotates calls across oracles bound to different credentials.
type Pool struct {
	oracles []Oracle
	cursor  atomic.Uint64
}

// NewPool wraps a fixed set of oracles.
func NewPool(oracles ...Oracle) (*Pool, error) {
	if len(oracles) == 0 {
		return nil, errors.New("oracle pool needs at least one oracle")
	}
	return &Pool{oracles: oracles}, nil
}

// NewPoolFromKeys builds one Client per API key for the named provider.
func NewPoolFromKeys(ctx context.Context, base ProviderConfig, keys []string, registry *engine.Registry) (*Pool, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no API keys configured for %s", base.Name)
	}
	oracles := make([]Oracle, 0, len(keys))
	for i, key := range keys {
		cfg := base
		cfg.APIKey = key
		p, err := NewProvider(ctx, cfg)
		if err != nil {
			closeOracles(oracles)
			return nil, fmt.Errorf("credential %d: %w", i, err)
		}
		c, err := NewClient(p, registry)
		if err != nil {
			p.Close()
			closeOracles(oracles)
			return nil, err
		}
		oracles = append(oracles, c)
	}
	return NewPool(oracles...)
}

// Next returns the oracle at the cursor and advances it.
func (p *Pool) Next() Oracle {
	n := p.cursor.Add(1) - 1
	return p.oracles[n%uint64(len(p.oracles))]
}

// Len returns the number of credentials in rotation.
func (p *Pool) Len() int {
	return len(p.oracles)
}

// Close closes every oracle that holds resources.
func (p *Pool) Close() error {
	return closeOracles(p.oracles)
}

func closeOracles(oracles []Oracle) error {
	var errs []error
	for _, o := range oracles {
		if c, ok := o.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
