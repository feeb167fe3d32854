package ros

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestReadRawMessageRoundTrip(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	go writeMessageFrame(clientConn, []byte("payload"))

	payload, err := readRawMessage(serverConn)
	if err != nil {
		t.Fatalf("readRawMessage: %v", err)
	}
	if string(payload) != "payload" {
		t.Errorf("payload = %q, want %q", payload, "payload")
	}
}

func TestSubscriptionReadLoopForwardsFrames(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	msgChan := make(chan messageEvent, 4)
	disconnectedChan := make(chan string, 1)
	sub := newDefaultSubscription("127.0.0.1:0", "/chatter", NewDynamicMessageType("std_msgs/String", "d", ""), "/me", msgChan, disconnectedChan, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sub.readLoop(ctx, serverConn, map[string]string{"callerid": "/talker"}, NewDefaultLogger())
	}()

	if err := writeMessageFrame(clientConn, []byte("hello")); err != nil {
		t.Fatalf("writeMessageFrame: %v", err)
	}

	select {
	case evt := <-msgChan:
		if string(evt.bytes) != "hello" {
			t.Errorf("evt.bytes = %q, want %q", evt.bytes, "hello")
		}
		if evt.event.PublisherName != "/talker" {
			t.Errorf("evt.event.PublisherName = %q, want /talker", evt.event.PublisherName)
		}
	case <-time.After(time.Second):
		t.Fatal("readLoop did not forward the frame")
	}

	clientConn.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readLoop did not exit after the connection closed")
	}
}

func TestSubscriptionReadLoopDropsOldestWhenFull(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()

	msgChan := make(chan messageEvent, 1)
	disconnectedChan := make(chan string, 1)
	sub := newDefaultSubscription("127.0.0.1:0", "/chatter", NewDynamicMessageType("std_msgs/String", "d", ""), "/me", msgChan, disconnectedChan, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sub.readLoop(ctx, serverConn, map[string]string{"callerid": "/talker"}, NewDefaultLogger())
	}()

	if err := writeMessageFrame(clientConn, []byte("stale")); err != nil {
		t.Fatalf("writeMessageFrame: %v", err)
	}
	// Give readLoop a chance to place "stale" in the (size-1) channel
	// before the second frame arrives and must displace it.
	time.Sleep(20 * time.Millisecond)
	if err := writeMessageFrame(clientConn, []byte("fresh")); err != nil {
		t.Fatalf("writeMessageFrame: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	var evt messageEvent
	for time.Now().Before(deadline) {
		select {
		case evt = <-msgChan:
		default:
			time.Sleep(time.Millisecond)
			continue
		}
		break
	}
	if string(evt.bytes) != "fresh" {
		t.Errorf("queued event = %q, want the newest frame %q (oldest should have been dropped)", evt.bytes, "fresh")
	}

	clientConn.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("readLoop did not exit after the connection closed")
	}
}

func TestSleepOrDoneReturnsFalseWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepOrDone(ctx, time.Second) {
		t.Error("sleepOrDone should return false once ctx is canceled")
	}
}

func TestSleepOrDoneReturnsTrueAfterDelay(t *testing.T) {
	ctx := context.Background()
	if !sleepOrDone(ctx, time.Millisecond) {
		t.Error("sleepOrDone should return true once the timer fires")
	}
}
