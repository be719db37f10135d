package natsctx

import (
	"context"
	"testing"
	"time"

	nats "github.com/nats-io/nats.go"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	nc, err := nats.Connect(nats.DefaultURL, nats.Timeout(200*time.Millisecond))
	if err != nil {
		t.Skipf("no local NATS server reachable: %v", err)
	}
	defer nc.Close()

	received := make(chan []byte, 1)
	sub, err := Subscribe(nc, "svctree.natsctx.test", func(ctx context.Context, msg *nats.Msg) {
		received <- msg.Data
	})
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "svctree.natsctx.test", []byte("payload")); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case got := <-received:
		if string(got) != "payload" {
			t.Fatalf("expected payload, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}
}
