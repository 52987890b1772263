package event

import (
	"sync"

	"go.uber.org/zap"
)

// Manager dispatches settlement events to registered listeners. Dispatch is
// synchronous so the event log strictly orders with the state transitions
// that produced it.
type Manager struct {
	mu        sync.RWMutex
	listeners map[Type][]func(msg interface{})
}

func NewManager() *Manager {
	return &Manager{listeners: make(map[Type][]func(msg interface{}))}
}

func (m *Manager) AddEventListener(eventType Type, callback func(msg interface{})) {
	zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: AddListener")

	m.mu.Lock()
	defer m.mu.Unlock()

	m.listeners[eventType] = append(m.listeners[eventType], callback)
}

func (m *Manager) EmitEvent(eventType Type, msg interface{}) {
	m.mu.RLock()
	callbacks := m.listeners[eventType]
	m.mu.RUnlock()

	if len(callbacks) == 0 {
		zap.L().With(zap.String("type", string(eventType))).Debug("No event listeners available")
		return
	}

	zap.L().With(zap.String("type", string(eventType))).Debug("EventManager: Emitting event")
	for _, callback := range callbacks {
		callback(msg)
	}
}
