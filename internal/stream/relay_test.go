package stream

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestServeRawCopiesUntilEnd(t *testing.T) {
	ch := NewChannel(10)
	ch.Push([]byte{1, 2}, time.Second)
	ch.Push([]byte{3, 4}, time.Second)
	ch.Close()

	var buf bytes.Buffer
	if err := ServeRaw(context.Background(), &buf, ch); err != nil {
		t.Fatalf("ServeRaw: %v", err)
	}

	want := []byte{1, 2, 3, 4}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got %v, want %v", buf.Bytes(), want)
	}
}

func TestServeRawStopsOnContextCancel(t *testing.T) {
	ch := NewChannel(10)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	var buf bytes.Buffer
	go func() { done <- ServeRaw(ctx, &buf, ch) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	// Unblock the pending Pop; the relay must notice the dead consumer.
	ch.Push([]byte{9}, time.Second)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after context cancel")
	}
}

func TestServeRawConcurrentProducer(t *testing.T) {
	ch := NewChannel(10)

	go func() {
		for i := byte(0); i < 5; i++ {
			ch.Push([]byte{i}, time.Second)
			time.Sleep(5 * time.Millisecond)
		}
		ch.Close()
	}()

	var buf bytes.Buffer
	if err := ServeRaw(context.Background(), &buf, ch); err != nil {
		t.Fatalf("ServeRaw: %v", err)
	}

	if !bytes.Equal(buf.Bytes(), []byte{0, 1, 2, 3, 4}) {
		t.Fatalf("unexpected stream contents: %v", buf.Bytes())
	}
}
