package notification

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NtfyNotifier sends notifications via an ntfy topic
type NtfyNotifier struct {
	serverURL string
	topic     string
	enabled   bool
	client    *http.Client
}

// NtfyConfig holds ntfy configuration
type NtfyConfig struct {
	ServerURL string
	Topic     string
	Enabled   bool
}

// NewNtfyNotifier creates a new ntfy notifier
func NewNtfyNotifier(config NtfyConfig) *NtfyNotifier {
	serverURL := config.ServerURL
	if serverURL == "" {
		serverURL = "https://ntfy.sh"
	}
	return &NtfyNotifier{
		serverURL: strings.TrimRight(serverURL, "/"),
		topic:     config.Topic,
		enabled:   config.Enabled && config.Topic != "",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *NtfyNotifier) Name() string {
	return "ntfy"
}

func (n *NtfyNotifier) IsEnabled() bool {
	return n.enabled
}

func (n *NtfyNotifier) Send(notification *Notification) error {
	if !n.enabled {
		return nil
	}

	url := fmt.Sprintf("%s/%s", n.serverURL, n.topic)
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(notification.Message))
	if err != nil {
		return fmt.Errorf("failed to build ntfy request: %w", err)
	}
	req.Header.Set("Title", notification.Title)
	req.Header.Set("Tags", string(notification.Type))

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	return nil
}
