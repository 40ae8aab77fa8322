package service

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// silentBroker accepts TCP connections and never speaks AMQP, which is
// what a wedged broker looks like from the publisher's side.
func silentBroker(t *testing.T) (url string, accepted *int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var count int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&count, 1)
			// Hold the connection open without answering.
			go func() {
				defer conn.Close()
				buf := make([]byte, 64)
				for {
					if _, err := conn.Read(buf); err != nil {
						return
					}
				}
			}()
		}
	}()
	return fmt.Sprintf("amqp://guest:guest@%s/", ln.Addr()), &count
}

func TestPublishDoesNotBlockCaller(t *testing.T) {
	url, _ := silentBroker(t)
	p := NewEventPublisher(url)

	// The broker never completes the handshake, so a synchronous publish
	// would sit in the dial for its full timeout. The caller must get
	// control back immediately regardless.
	start := time.Now()
	p.NodeSubmitted(context.Background(), "mnist-v1")
	p.NodeReady(context.Background(), "mnist-v1", "lb:5000")
	p.ModelCompleted(context.Background(), "mnist-v1", "https://bucket/key")
	assert.Less(t, time.Since(start), time.Second)
}

func TestFlushWaitsForInFlightPublishes(t *testing.T) {
	// A broker that closes the connection at once makes the background
	// attempt fail fast, so Flush has something real to wait on without
	// slowing the test down.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	var accepted int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&accepted, 1)
			_ = conn.Close()
		}
	}()

	p := NewEventPublisher(fmt.Sprintf("amqp://guest:guest@%s/", ln.Addr()))
	p.NodeSubmitted(context.Background(), "mnist-v1")
	p.Flush()
	assert.GreaterOrEqual(t, atomic.LoadInt32(&accepted), int32(1))
}
