package model

// Live channel message types.
const (
	MessageSystemStats     = "system_stats"
	MessageUpdateInterval  = "update_interval"
	MessageIntervalUpdated = "interval_updated"
)

// Message is the envelope for every frame on the live channel.
type Message struct {
	Type       string    `json:"type"`
	Data       *Snapshot `json:"data,omitempty"`
	IntervalMs int       `json:"intervalMs,omitempty"`
}

// StatsMessage wraps s for pushing to consumers.
func StatsMessage(s Snapshot) Message {
	return Message{Type: MessageSystemStats, Data: &s}
}
