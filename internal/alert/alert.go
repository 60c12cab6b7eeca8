package alert

import "time"

// Severity orders alert levels from informational to emergency
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
	SeverityEmergency
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	case SeverityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// Source identifies what a threshold evaluation watched
type Source string

const (
	SourceCPU         Source = "cpu"
	SourceMemory      Source = "memory"
	SourceTemperature Source = "temperature"
)

// Alert is one entry in the bounded alert log. Once emitted it is mutated
// only by acknowledgement and removed only by cleanup or bulk clears.
type Alert struct {
	ID           int
	Severity     Severity
	Title        string
	Message      string
	Source       Source
	Timestamp    time.Time
	Acknowledged bool
}

// state tracks one (source, severity) pair of the engine's state machine.
// Created at engine construction, mutated on every evaluation, never
// destroyed during the process lifetime.
type state struct {
	active      bool
	lastFiredAt time.Time
}

type stateKey struct {
	source   Source
	severity Severity
}
