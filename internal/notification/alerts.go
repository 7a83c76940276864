package notification

import (
	"fmt"
	"sync"
	"time"
)

// Alert types fired by threshold rules.
const (
	AlertStrongBuy     = "STRONG_BUY"
	AlertStrongSell    = "STRONG_SELL"
	AlertRSIOverbought = "RSI_OVERBOUGHT"
	AlertRSIOversold   = "RSI_OVERSOLD"
)

// Alert is one fired threshold rule.
type Alert struct {
	Type    string  `json:"type"`
	Message string  `json:"message"`
	Value   float64 `json:"value"`
}

// AlertRules evaluates score and RSI thresholds per symbol with a
// per-(symbol, type) cooldown so a level sitting beyond its threshold
// does not refire every cycle.
type AlertRules struct {
	scoreDeviation float64
	rsiOverbought  float64
	rsiOversold    float64
	cooldown       time.Duration
	now            func() time.Time

	mu        sync.Mutex
	lastFired map[string]time.Time
}

func NewAlertRules(scoreDeviation, rsiOverbought, rsiOversold float64, cooldown time.Duration, now func() time.Time) *AlertRules {
	if now == nil {
		now = time.Now
	}
	return &AlertRules{
		scoreDeviation: scoreDeviation,
		rsiOverbought:  rsiOverbought,
		rsiOversold:    rsiOversold,
		cooldown:       cooldown,
		now:            now,
		lastFired:      make(map[string]time.Time),
	}
}

// Evaluate returns the alerts that fired for the symbol this cycle.
func (r *AlertRules) Evaluate(symbol string, masterScore, weightedRSI float64) []Alert {
	var alerts []Alert

	if masterScore-50 >= r.scoreDeviation {
		if r.fire(symbol, AlertStrongBuy) {
			alerts = append(alerts, Alert{
				Type:    AlertStrongBuy,
				Message: fmt.Sprintf("master score %.2f is %.2f above neutral", masterScore, masterScore-50),
				Value:   masterScore,
			})
		}
	} else if 50-masterScore >= r.scoreDeviation {
		if r.fire(symbol, AlertStrongSell) {
			alerts = append(alerts, Alert{
				Type:    AlertStrongSell,
				Message: fmt.Sprintf("master score %.2f is %.2f below neutral", masterScore, 50-masterScore),
				Value:   masterScore,
			})
		}
	}

	if weightedRSI >= r.rsiOverbought {
		if r.fire(symbol, AlertRSIOverbought) {
			alerts = append(alerts, Alert{
				Type:    AlertRSIOverbought,
				Message: fmt.Sprintf("weighted RSI %.2f above %.0f", weightedRSI, r.rsiOverbought),
				Value:   weightedRSI,
			})
		}
	} else if weightedRSI > 0 && weightedRSI <= r.rsiOversold {
		if r.fire(symbol, AlertRSIOversold) {
			alerts = append(alerts, Alert{
				Type:    AlertRSIOversold,
				Message: fmt.Sprintf("weighted RSI %.2f below %.0f", weightedRSI, r.rsiOversold),
				Value:   weightedRSI,
			})
		}
	}

	return alerts
}

// fire checks and stamps the cooldown for one (symbol, type) pair.
func (r *AlertRules) fire(symbol, alertType string) bool {
	key := symbol + ":" + alertType
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.lastFired[key]; ok && now.Sub(last) < r.cooldown {
		return false
	}
	r.lastFired[key] = now
	return true
}
