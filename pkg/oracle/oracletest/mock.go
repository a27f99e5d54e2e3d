// Package oracletest provides oracle doubles for tests.
package oracletest

import (
	"context"
	"sync"

	"github.com/0x-stone/clauseguard/pkg/engine"
	"github.com/0x-stone/clauseguard/pkg/oracle"
)

// MockOracle is a thread-safe oracle double.
//
// EvaluateFunc and CompleteFunc take precedence. Otherwise Evaluate returns
// Findings (or Err) and Complete returns Completions in sequence (or Err).
type MockOracle struct {
	mu sync.Mutex

	EvaluateFunc func(ctx context.Context, text string) ([]engine.RawFinding, error)
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	Findings    []engine.RawFinding
	Completions []string
	Err         error

	evaluateCalls int
	completeCalls int
	inputs        []string
	next          int
}

var _ oracle.Oracle = (*MockOracle)(nil)

// Evaluate implements oracle.Oracle.
func (m *MockOracle) Evaluate(ctx context.Context, text string) ([]engine.RawFinding, error) {
	m.mu.Lock()
	m.evaluateCalls++
	m.inputs = append(m.inputs, text)
	fn, findings, err := m.EvaluateFunc, m.Findings, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// Complete implements oracle.Oracle.
func (m *MockOracle) Complete(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.completeCalls++
	m.inputs = append(m.inputs, user)
	fn := m.CompleteFunc
	if fn == nil && m.Err != nil {
		m.mu.Unlock()
		return "", m.Err
	}
	var out string
	if fn == nil && m.next < len(m.Completions) {
		out = m.Completions[m.next]
		m.next++
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, user)
	}
	return out, nil
}

// EvaluateCalls returns how many times Evaluate was called.
func (m *MockOracle) EvaluateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluateCalls
}

// CompleteCalls returns how many times Complete was called.
func (m *MockOracle) CompleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completeCalls
}

// Inputs returns every text or user prompt received, in call order.
func (m *MockOracle) Inputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.inputs))
	copy(out, m.inputs)
	return out
}
