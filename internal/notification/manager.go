package notification

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrNotConnected is returned by brokers used before Start.
var ErrNotConnected = errors.New("notification broker not connected")

// Manager owns the realtime connection of the process. It is built once
// at startup and handed to every service that publishes events.
type Manager struct {
	hub    *Hub
	broker Broker

	mu        sync.RWMutex
	connected bool
}

// NewManager wires a broker to the hub. A nil broker means local delivery.
func NewManager(hub *Hub, broker Broker) *Manager {
	if broker == nil {
		broker = NewLocalBroker(hub)
	}
	return &Manager{hub: hub, broker: broker}
}

// Hub returns the local hub SSE handlers subscribe to.
func (m *Manager) Hub() *Hub { return m.hub }

// Connected reports whether Connect succeeded and Disconnect was not called.
func (m *Manager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Connect starts the broker. Calling it again while connected is a no-op.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connected {
		return nil
	}
	if err := m.broker.Start(ctx); err != nil {
		return err
	}
	m.connected = true
	log.Printf("[notification.Manager] Connected via %s broker", m.broker.Name())
	return nil
}

// Disconnect closes the broker.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil
	}
	m.connected = false
	log.Printf("[notification.Manager] Disconnecting %s broker", m.broker.Name())
	return m.broker.Close()
}

// Publish sends ev through the broker. While disconnected, events are
// delivered to local clients only.
func (m *Manager) Publish(ctx context.Context, ev Event) error {
	if !m.Connected() {
		m.hub.Deliver(ev)
		return nil
	}
	return m.broker.Publish(ctx, ev)
}
