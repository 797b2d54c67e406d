package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventReservationCreated     = "reservation_created"
	EventReservationConfirmed   = "reservation_confirmed"
	EventReservationCancelled   = "reservation_cancelled"
	EventReservationCompleted   = "reservation_completed"
	EventReservationRescheduled = "reservation_rescheduled"
	EventRatingSubmitted        = "rating_submitted"
)

// ReservationEventPayload describes the minimal reservation snapshot for
// event consumers.
type ReservationEventPayload struct {
	ReservationID int64     `json:"reservation_id"`
	ClientID      int64     `json:"client_id"`
	ClientName    string    `json:"client_name"`
	EmployeeID    int64     `json:"employee_id"`
	EmployeeName  string    `json:"employee_name"`
	ServiceID     int64     `json:"service_id"`
	ServiceName   string    `json:"service_name"`
	StoreID       int64     `json:"store_id"`
	Status        string    `json:"status"`
	Date          time.Time `json:"date"`
	Time          string    `json:"time"`
}

// RatingEventPayload is published when a client rates a completed visit.
type RatingEventPayload struct {
	ReservationID int64  `json:"reservation_id"`
	ClientID      int64  `json:"client_id"`
	EmployeeID    int64  `json:"employee_id"`
	ServiceID     int64  `json:"service_id"`
	Score         int    `json:"score"`
	Comment       string `json:"comment,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
