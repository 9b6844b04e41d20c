// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"sync"
	"testing"
	"time"
)

func newTestClient(buffer int) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		send: make(chan Message, buffer),
	}
}

func TestRoomSubscribeUnsubscribe(t *testing.T) {
	rooms := NewRoomRegistry()
	a := newTestClient(4)
	b := newTestClient(4)

	rooms.Subscribe(a, "plan-1")
	rooms.Subscribe(b, "plan-1")
	rooms.Subscribe(a, "plan-2")

	if got := rooms.Count("plan-1"); got != 2 {
		t.Errorf("Expected 2 members in plan-1, got %d", got)
	}
	if got := rooms.Count("plan-2"); got != 1 {
		t.Errorf("Expected 1 member in plan-2, got %d", got)
	}

	// Subscribing twice is idempotent.
	rooms.Subscribe(a, "plan-1")
	if got := rooms.Count("plan-1"); got != 2 {
		t.Errorf("Double subscribe should not grow the room, got %d", got)
	}

	rooms.Unsubscribe(a, "plan-1")
	if got := rooms.Count("plan-1"); got != 1 {
		t.Errorf("Expected 1 member after unsubscribe, got %d", got)
	}

	// Unsubscribing a non-member is a no-op.
	rooms.Unsubscribe(a, "plan-1")
	rooms.Unsubscribe(a, "no-such-room")
	if got := rooms.Count("plan-1"); got != 1 {
		t.Errorf("Expected 1 member, got %d", got)
	}
}

func TestRoomDisconnectRemovesEverywhere(t *testing.T) {
	rooms := NewRoomRegistry()
	a := newTestClient(4)
	b := newTestClient(4)

	rooms.Subscribe(a, "plan-1")
	rooms.Subscribe(a, "plan-2")
	rooms.Subscribe(b, "plan-1")

	rooms.Disconnect(a)

	if got := rooms.Count("plan-1"); got != 1 {
		t.Errorf("Expected only b in plan-1, got %d", got)
	}
	if got := rooms.Count("plan-2"); got != 0 {
		t.Errorf("Expected empty plan-2, got %d", got)
	}
}

func TestCloseRoom(t *testing.T) {
	rooms := NewRoomRegistry()
	a := newTestClient(4)
	b := newTestClient(4)

	rooms.Subscribe(a, "plan-1")
	rooms.Subscribe(b, "plan-1")

	rooms.CloseRoom("plan-1")

	if got := rooms.Count("plan-1"); got != 0 {
		t.Errorf("Expected closed room to be empty, got %d", got)
	}

	// Broadcast to a closed room delivers nothing.
	rooms.Broadcast("plan-1", Message{Type: EventPlanUpdated})
	select {
	case msg := <-a.send:
		t.Errorf("Unexpected delivery after close: %v", msg.Type)
	default:
	}
}

func TestBroadcastReachesAllMembers(t *testing.T) {
	rooms := NewRoomRegistry()
	a := newTestClient(4)
	b := newTestClient(4)
	outsider := newTestClient(4)

	rooms.Subscribe(a, "plan-1")
	rooms.Subscribe(b, "plan-1")
	rooms.Subscribe(outsider, "plan-2")

	rooms.Broadcast("plan-1", Message{Type: EventPlanUpdated})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.send:
			if msg.Type != EventPlanUpdated {
				t.Errorf("Expected plan-updated, got %q", msg.Type)
			}
		default:
			t.Error("Expected member to receive the broadcast")
		}
	}

	select {
	case msg := <-outsider.send:
		t.Errorf("Non-member should not receive broadcast, got %v", msg.Type)
	default:
	}
}

func TestBroadcastDropsForSlowClient(t *testing.T) {
	rooms := NewRoomRegistry()
	slow := newTestClient(1)
	fast := newTestClient(4)

	rooms.Subscribe(slow, "plan-1")
	rooms.Subscribe(fast, "plan-1")

	// Fill the slow client's buffer; the second broadcast must not block
	// and must still reach the healthy client.
	rooms.Broadcast("plan-1", Message{Type: EventPlanUpdated})
	rooms.Broadcast("plan-1", Message{Type: EventPlanUpdated})

	if got := len(fast.send); got != 2 {
		t.Errorf("Healthy client should have 2 messages, got %d", got)
	}
	if got := len(slow.send); got != 1 {
		t.Errorf("Slow client should have kept only 1 message, got %d", got)
	}
}

func TestBroadcastDuringClientShutdown(t *testing.T) {
	rooms := NewRoomRegistry()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					rooms.Broadcast("plan-1", Message{Type: EventPlanUpdated})
				}
			}
		}()
	}

	// Churn members while broadcasts are in flight. A member snapshotted
	// just before its channel closes must have the message dropped, never
	// sent on the closed channel.
	for i := 0; i < 200; i++ {
		c := newTestClient(1)
		rooms.Subscribe(c, "plan-1")
		go func() {
			for range c.send {
			}
		}()
		time.Sleep(50 * time.Microsecond)
		rooms.Unsubscribe(c, "plan-1")
		c.closeSend()
	}

	close(stop)
	wg.Wait()
}
