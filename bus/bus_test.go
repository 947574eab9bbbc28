package bus

import (
	"context"
	"testing"
	"time"
)

func TestBusRoundTrip(t *testing.T) {
	b := New[string, int](4)
	go func() {
		req := <-b.Recv()
		req.Respond(len(req.Command))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	req, err := b.Send(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	got, err := req.Await(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestRequestAwaitTimesOutWithoutBlockingResponder(t *testing.T) {
	req := NewRequest[string, int]("x")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := req.Await(ctx); err == nil {
		t.Fatal("expected context deadline error")
	}
	// A late responder must not block even though nobody is listening
	// anymore; the reply channel is buffered by one for exactly this reason.
	req.Respond(42)
}

func TestBusSendRespectsContextCancellation(t *testing.T) {
	b := New[string, int](0) // unbuffered: nobody is receiving
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := b.Send(ctx, "x"); err == nil {
		t.Fatal("expected context deadline error when coordinator is not draining")
	}
}
