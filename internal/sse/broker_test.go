package sse

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajvir-app/mining-server/internal/mining"
)

// All tests run the broker without Redis, exercising the in-process
// broadcast path used in standalone mode.

func TestBrokerSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	client := b.Subscribe("acct-1")
	assert.Equal(t, 1, b.ClientCount("acct-1"))

	b.Unsubscribe(client)
	assert.Equal(t, 0, b.ClientCount("acct-1"))

	select {
	case <-client.Done:
	default:
		t.Fatal("expected Done to be closed after unsubscribe")
	}
}

func TestBrokerPublishTick(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	client := b.Subscribe("acct-1")
	other := b.Subscribe("acct-2")

	b.PublishTick("acct-1", mining.TickUpdate{
		DisplaySeconds: 42,
		TotalPoints:    3,
		Active:         true,
	})

	select {
	case event := <-client.Events:
		assert.Equal(t, "tick", event.Type)

		var update mining.TickUpdate
		require.NoError(t, json.Unmarshal(event.Data, &update))
		assert.Equal(t, 42, update.DisplaySeconds)
		assert.Equal(t, 3, update.TotalPoints)
		assert.True(t, update.Active)
	case <-time.After(time.Second):
		t.Fatal("expected a tick event")
	}

	// Other accounts see nothing.
	select {
	case <-other.Events:
		t.Fatal("unexpected event for another account")
	default:
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	a := b.Subscribe("acct-1")
	c := b.Subscribe("acct-1")
	assert.Equal(t, 2, b.ClientCount("acct-1"))

	b.PublishTick("acct-1", mining.TickUpdate{DisplaySeconds: 1})

	for _, client := range []*Client{a, c} {
		select {
		case event := <-client.Events:
			assert.Equal(t, "tick", event.Type)
		case <-time.After(time.Second):
			t.Fatal("expected each client to receive the event")
		}
	}
}

func TestBrokerFullBufferDropsEvent(t *testing.T) {
	b := NewBroker(nil)
	defer b.Close()

	client := b.Subscribe("acct-1")
	for i := 0; i < cap(client.Events)+10; i++ {
		b.PublishTick("acct-1", mining.TickUpdate{DisplaySeconds: i})
	}

	// The broker never blocks; overflow is dropped.
	assert.Len(t, client.Events, cap(client.Events))
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker(nil)

	client := b.Subscribe("acct-1")
	b.Close()

	select {
	case <-client.Done:
	default:
		t.Fatal("expected Done to be closed on broker close")
	}
	assert.Equal(t, 0, b.ClientCount("acct-1"))
}
