package events

import (
	"sync"
	"time"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventScoreUpdate       EventType = "SCORE_UPDATE"
	EventSetupDetected     EventType = "SETUP_DETECTED"
	EventPositionOpened    EventType = "POSITION_OPENED"
	EventPositionClosed    EventType = "POSITION_CLOSED"
	EventTrailingStopMoved EventType = "TRAILING_STOP_MOVED"
	EventRiskWarning       EventType = "RISK_WARNING"
	EventCrossover         EventType = "CROSSOVER"
	EventAlert             EventType = "ALERT"
	EventError             EventType = "ERROR"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Subscriber is a function that handles events
type Subscriber func(Event)

// EventBus manages event publishing and subscriptions
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber // Subscribers to all events
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
		allSubs:     make([]Subscriber, 0),
	}
}

// Subscribe registers a subscriber for a specific event type
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a subscriber for all events
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event) // Run in goroutine to avoid blocking
		}
	}

	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishScoreUpdate publishes the latest analysis snapshot for a symbol
func (eb *EventBus) PublishScoreUpdate(symbol string, masterScore float64, classification string, price float64) {
	eb.Publish(Event{
		Type: EventScoreUpdate,
		Data: map[string]interface{}{
			"symbol":         symbol,
			"master_score":   masterScore,
			"classification": classification,
			"price":          price,
		},
	})
}

// PublishSetupDetected publishes a detected setup
func (eb *EventBus) PublishSetupDetected(symbol, kind, bias, reason string, price float64) {
	eb.Publish(Event{
		Type: EventSetupDetected,
		Data: map[string]interface{}{
			"symbol": symbol,
			"kind":   kind,
			"bias":   bias,
			"reason": reason,
			"price":  price,
		},
	})
}

// PublishPositionOpened publishes a position opened event
func (eb *EventBus) PublishPositionOpened(symbol, direction, kind string, entryPrice, stopLoss, target, size float64) {
	eb.Publish(Event{
		Type: EventPositionOpened,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"direction":   direction,
			"kind":        kind,
			"entry_price": entryPrice,
			"stop_loss":   stopLoss,
			"target":      target,
			"size":        size,
		},
	})
}

// PublishPositionClosed publishes a position closed event
func (eb *EventBus) PublishPositionClosed(symbol, direction, reason string, entryPrice, exitPrice, pnl, pnlPercent float64) {
	eb.Publish(Event{
		Type: EventPositionClosed,
		Data: map[string]interface{}{
			"symbol":      symbol,
			"direction":   direction,
			"reason":      reason,
			"entry_price": entryPrice,
			"exit_price":  exitPrice,
			"pnl":         pnl,
			"pnl_percent": pnlPercent,
		},
	})
}

// PublishTrailingStopMoved publishes a trailing stop adjustment
func (eb *EventBus) PublishTrailingStopMoved(symbol string, oldStop, newStop, price float64) {
	eb.Publish(Event{
		Type: EventTrailingStopMoved,
		Data: map[string]interface{}{
			"symbol":   symbol,
			"old_stop": oldStop,
			"new_stop": newStop,
			"price":    price,
		},
	})
}

// PublishRiskWarning publishes a rejected entry with its gate reason
func (eb *EventBus) PublishRiskWarning(symbol, reason string) {
	eb.Publish(Event{
		Type: EventRiskWarning,
		Data: map[string]interface{}{
			"symbol": symbol,
			"reason": reason,
		},
	})
}

// PublishCrossover publishes a score-SMA crossover advisory
func (eb *EventBus) PublishCrossover(symbol, signal string, masterScore float64) {
	eb.Publish(Event{
		Type: EventCrossover,
		Data: map[string]interface{}{
			"symbol":       symbol,
			"signal":       signal,
			"master_score": masterScore,
		},
	})
}

// PublishAlert publishes a threshold alert
func (eb *EventBus) PublishAlert(symbol, alertType, message string, value float64) {
	eb.Publish(Event{
		Type: EventAlert,
		Data: map[string]interface{}{
			"symbol":     symbol,
			"alert_type": alertType,
			"message":    message,
			"value":      value,
		},
	})
}

// PublishError publishes an error event
func (eb *EventBus) PublishError(source, message string, err error) {
	data := map[string]interface{}{
		"source":  source,
		"message": message,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	eb.Publish(Event{
		Type: EventError,
		Data: data,
	})
}
