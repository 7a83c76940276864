package notification

import (
	"testing"
	"time"
)

func newTestRules(now *time.Time) *AlertRules {
	return NewAlertRules(15, 70, 30, 300*time.Second, func() time.Time { return *now })
}

func TestAlertRulesThresholds(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := newTestRules(&now)

	alerts := rules.Evaluate("BTCUSDT", 70, 75)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %+v", len(alerts), alerts)
	}
	if alerts[0].Type != AlertStrongBuy {
		t.Errorf("first alert = %s, want %s", alerts[0].Type, AlertStrongBuy)
	}
	if alerts[1].Type != AlertRSIOverbought {
		t.Errorf("second alert = %s, want %s", alerts[1].Type, AlertRSIOverbought)
	}
}

func TestAlertRulesBearishSide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := newTestRules(&now)

	alerts := rules.Evaluate("BTCUSDT", 30, 25)
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2: %+v", len(alerts), alerts)
	}
	if alerts[0].Type != AlertStrongSell || alerts[1].Type != AlertRSIOversold {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
}

func TestAlertRulesQuietMarket(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := newTestRules(&now)

	if alerts := rules.Evaluate("BTCUSDT", 55, 50); len(alerts) != 0 {
		t.Errorf("got %d alerts in a quiet market: %+v", len(alerts), alerts)
	}

	// A zero RSI means no reading, not an oversold market.
	if alerts := rules.Evaluate("BTCUSDT", 50, 0); len(alerts) != 0 {
		t.Errorf("alerts fired on a missing RSI: %+v", alerts)
	}
}

func TestAlertRulesCooldown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rules := newTestRules(&now)

	if alerts := rules.Evaluate("BTCUSDT", 70, 50); len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}

	now = now.Add(100 * time.Second)
	if alerts := rules.Evaluate("BTCUSDT", 70, 50); len(alerts) != 0 {
		t.Errorf("alert refired inside the cooldown: %+v", alerts)
	}

	// A different symbol has its own cooldown window.
	if alerts := rules.Evaluate("ETHUSDT", 70, 50); len(alerts) != 1 {
		t.Errorf("cooldown leaked across symbols")
	}

	now = now.Add(201 * time.Second)
	if alerts := rules.Evaluate("BTCUSDT", 70, 50); len(alerts) != 1 {
		t.Errorf("alert did not refire after the cooldown")
	}
}
