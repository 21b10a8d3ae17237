package bus

import (
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

func startEmbeddedNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:           "127.0.0.1",
		Port:           -1,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
	}
	ns, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(4 * time.Second) {
		t.Fatal("NATS server did not start in time")
	}
	return ns
}

func TestBus_Publish_DeliversJSONPayload(t *testing.T) {
	ns := startEmbeddedNATS(t)
	defer ns.Shutdown()

	b, err := Connect(ns.ClientURL())
	require.NoError(t, err)
	defer b.Close()

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	msgs := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("positions.BTC-USD", msgs)
	require.NoError(t, err)

	type payload struct {
		Kind string `json:"kind"`
	}
	b.Publish("positions.BTC-USD", payload{Kind: "Opened"})

	select {
	case msg := <-msgs:
		var got payload
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		require.Equal(t, "Opened", got.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestBus_Publish_NilBusIsNoop(t *testing.T) {
	var b *Bus
	b.Publish("anything", map[string]string{"k": "v"})
}
