package storage

import "time"

// EventWriter is the interface for writing decision events to the
// analytics sink. Write() must NEVER block the caller. The Postgres
// action_log is the authoritative audit record; this sink is a mirror.
type EventWriter interface {
	Write(event *DecisionEvent)
	Close()
}

// DecisionEvent represents one policy decision (terminal or deferred)
// to be persisted for analytics.
type DecisionEvent struct {
	RequestID     string
	Timestamp     time.Time
	AgentID       string
	AgentName     string
	ToolID        string
	ToolName      string
	ServerID      string
	ArgumentsJSON string
	Status        string // "executed", "denied" or "pending"
	Reason        string // "allowed", "needs_approval", "blocked_risk", ...
	Detail        string
	RiskLevel     string
	LatencyMs     float32
	Source        string // "evaluate" or "resolve"
}
