package pubsub

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
)

type event struct {
	RunID string `json:"run_id"`
	Job   string `json:"job"`
}

func (e event) Attributes() map[string]string { return map[string]string{"job": e.Job} }

func TestPublishWithoutPublisher(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), "ingest-runs", event{})
	require.Error(t, err)

	var p *Publisher
	_, err = p.Publish(context.Background(), "ingest-runs", event{})
	require.Error(t, err)
	assert.NoError(t, p.Close())
}

func TestOpenRequiresProjectAndTopic(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), "", "ingest-runs")
	assert.Error(t, err)
	_, err = Open(context.Background(), "growth", "")
	assert.Error(t, err)
}

func TestBuildMessageCarriesPayloadAndAttributes(t *testing.T) {
	t.Parallel()

	member, err := baggage.NewMember("tenant", "growth")
	require.NoError(t, err)
	bag, err := baggage.New(member)
	require.NoError(t, err)
	ctx := baggage.ContextWithBaggage(context.Background(), bag)

	msg, err := buildMessage(ctx, propagation.Baggage{}, event{RunID: "run-1", Job: "ga4.sessions"})
	require.NoError(t, err)

	var decoded event
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Equal(t, "ga4.sessions", msg.Attributes["job"])
	assert.Equal(t, "tenant=growth", msg.Attributes["baggage"])
}

func TestBuildMessageRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := buildMessage(context.Background(), propagation.TraceContext{}, make(chan int))
	assert.Error(t, err)
}

func TestCarrier(t *testing.T) {
	t.Parallel()

	c := carrier{}
	c.Set("traceparent", "00-abc-def-01")
	c.Set("baggage", "k=v")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))

	keys := c.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"baggage", "traceparent"}, keys)
}
