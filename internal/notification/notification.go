package notification

import (
	"fmt"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifySetup         NotificationType = "setup"
	NotifyPositionOpen  NotificationType = "position_open"
	NotifyPositionClose NotificationType = "position_close"
	NotifyTrailingStop  NotificationType = "trailing_stop"
	NotifyRiskWarning   NotificationType = "risk_warning"
	NotifyAlert         NotificationType = "alert"
	NotifyError         NotificationType = "error"
)

// Notification represents a notification message
type Notification struct {
	Type       NotificationType
	Title      string
	Message    string
	Symbol     string
	Price      float64
	PnL        float64
	PnLPercent float64
	Timestamp  time.Time
	Extra      map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager(enabled bool) *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   enabled,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendSetup sends a detected setup notification
func (m *Manager) SendSetup(symbol, kind, bias, reason string, price float64) error {
	emoji := "🟢"
	if bias == "BEARISH" {
		emoji = "🔴"
	}

	return m.Send(&Notification{
		Type:      NotifySetup,
		Title:     fmt.Sprintf("%s %s Setup: %s", emoji, kind, symbol),
		Message:   fmt.Sprintf("%s %s @ %.2f\n%s", bias, symbol, price, reason),
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	})
}

// SendPositionOpen sends a position opened notification
func (m *Manager) SendPositionOpen(symbol, direction string, entry, stopLoss, target, size float64) error {
	return m.Send(&Notification{
		Type:      NotifyPositionOpen,
		Title:     fmt.Sprintf("📈 Position Opened: %s", symbol),
		Message:   fmt.Sprintf("%s %s @ %.2f\nSL: %.2f | TP: %.2f\nSize: %.4f", direction, symbol, entry, stopLoss, target, size),
		Symbol:    symbol,
		Price:     entry,
		Timestamp: time.Now(),
	})
}

// SendPositionClose sends a position closed notification
func (m *Manager) SendPositionClose(symbol string, entryPrice, exitPrice, pnl, pnlPercent float64, reason string) error {
	emoji := "✅"
	if pnl < 0 {
		emoji = "❌"
	}

	return m.Send(&Notification{
		Type:       NotifyPositionClose,
		Title:      fmt.Sprintf("%s Position Closed: %s", emoji, symbol),
		Message:    fmt.Sprintf("Entry: %.2f → Exit: %.2f\nP&L: %.4f (%.2f%%)\nReason: %s", entryPrice, exitPrice, pnl, pnlPercent, reason),
		Symbol:     symbol,
		Price:      exitPrice,
		PnL:        pnl,
		PnLPercent: pnlPercent,
		Timestamp:  time.Now(),
	})
}

// SendTrailingStop sends a trailing stop adjustment notification
func (m *Manager) SendTrailingStop(symbol string, oldStop, newStop, price float64) error {
	return m.Send(&Notification{
		Type:      NotifyTrailingStop,
		Title:     fmt.Sprintf("🔒 Stop Moved: %s", symbol),
		Message:   fmt.Sprintf("Stop %.2f → %.2f (price %.2f)", oldStop, newStop, price),
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	})
}

// SendRiskWarning sends a risk gate rejection notification
func (m *Manager) SendRiskWarning(symbol, reason string) error {
	return m.Send(&Notification{
		Type:      NotifyRiskWarning,
		Title:     fmt.Sprintf("⚠️ Entry Blocked: %s", symbol),
		Message:   reason,
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendAlert sends a threshold alert notification
func (m *Manager) SendAlert(symbol, alertType, message string) error {
	return m.Send(&Notification{
		Type:      NotifyAlert,
		Title:     fmt.Sprintf("🔔 %s: %s", alertType, symbol),
		Message:   message,
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}
