package model

// Alert severities. The mixed casing ("warning" vs "ALERT") is the wire
// contract consumed by the frontend; treat these as opaque literals.
const (
	AlertInfo    = "info"
	AlertWarning = "warning"
	AlertDanger  = "danger"
	AlertBreach  = "ALERT"
)

// Alert is a threshold-rule notification.
type Alert struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"` // info | warning | danger | ALERT
	Title     string  `json:"title"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"` // HH:MM:SS display time
	Symbol    string  `json:"symbol,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Metric    string  `json:"metric,omitempty"`    // z_score | correlation | volatility
	Threshold float64 `json:"threshold,omitempty"` // threshold that was breached
	Direction string  `json:"direction,omitempty"` // above | below
}

// Key returns the cooldown key: alerts sharing a key are rate-limited together.
func (a *Alert) Key() string {
	return a.Type + ":" + a.Title + ":" + a.Symbol
}
