package main

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"

	"stockdash/internal/gateway"
	"stockdash/internal/notification"
)

type countingNotifier struct{ n atomic.Int32 }

func (c *countingNotifier) Send(context.Context, notification.Alert) error {
	c.n.Add(1)
	return nil
}

func TestSessionExpiry_LogoutDuringStartup(t *testing.T) {
	sent := &countingNotifier{}
	alerts := notification.NewDispatcher(sent, nil, 0)
	expiry := &sessionExpiry{alerts: alerts}

	// Teardowns racing with the gateway being attached.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			expiry.onLogout()
		}()
	}
	srv := gateway.New(gateway.Config{})
	defer srv.Close()
	expiry.attach(srv)
	wg.Wait()

	expiry.onLogout()
	alerts.Wait()
	assert.Equal(t, int32(5), sent.n.Load())
	assert.Equal(t, 0, srv.Hub().ClientCount())
}

func TestSessionExpiry_AlertsAreThrottled(t *testing.T) {
	sent := &countingNotifier{}
	alerts := notification.NewDispatcher(sent, nil, time.Minute)
	expiry := &sessionExpiry{alerts: alerts}

	expiry.onLogout()
	expiry.onLogout()
	alerts.Wait()
	assert.Equal(t, int32(1), sent.n.Load())
}
