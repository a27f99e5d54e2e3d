package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.PublishVerdict(context.Background(), VerdictEvent{}))
	assert.NoError(t, p.Close())
}

func TestNATSPublisherUnreachable(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "", nil)
	assert.Error(t, err)
}

func TestNATSPublisher(t *testing.T) {
	url := os.Getenv("NATS_TEST_URL")
	if url == "" {
		t.Skip("NATS_TEST_URL not set")
	}

	p, err := NewNATSPublisher(url, "clauseguard.test", nil)
	require.NoError(t, err)
	defer p.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()
	sub, err := nc.SubscribeSync("clauseguard.test")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	ev := VerdictEvent{
		RunID:      "run-1",
		URL:        "https://example.com/privacy",
		AnalyzedAt: time.Now().UTC(),
		Verdict:    &engine.Verdict{ComplianceScore: 87, ComplianceLevel: engine.LevelCompliant},
	}
	require.NoError(t, p.PublishVerdict(context.Background(), ev))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"run_id":"run-1"`)
	assert.Contains(t, string(msg.Data), `"compliance_score":87`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, p.PublishVerdict(ctx, ev))
}
