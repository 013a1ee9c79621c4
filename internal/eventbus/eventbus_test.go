// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package eventbus

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func testBus() *Bus {
	return New(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestPublishSubscribeFIFO(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("topic")

	b.Publish("topic", 1)
	b.Publish("topic", 2)
	b.Publish("topic", 3)

	for _, want := range []int{1, 2, 3} {
		select {
		case evt := <-sub:
			if evt.Data.(int) != want {
				t.Errorf("got %v, want %d", evt.Data, want)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestPublishMultipleSubscribersIndependent(t *testing.T) {
	b := testBus()
	a := b.Subscribe("t")
	c := b.Subscribe("t")

	b.Publish("t", "x")

	for _, sub := range []<-chan Event{a, c} {
		select {
		case evt := <-sub:
			if evt.Data != "x" {
				t.Errorf("got %v, want x", evt.Data)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestPublishFullBufferDoesNotBlock(t *testing.T) {
	b := testBus()
	sub := b.Subscribe("t")

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			b.Publish("t", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	// Drain what's there; we only assert publish didn't deadlock.
	drained := 0
	for {
		select {
		case <-sub:
			drained++
		default:
			if drained == 0 {
				t.Error("expected at least some buffered events")
			}
			return
		}
	}
}

func TestPublishNoSubscribersIsNoop(t *testing.T) {
	b := testBus()
	b.Publish("nobody-home", 42) // must not panic
}
