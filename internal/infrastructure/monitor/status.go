package monitor

import "time"

type Status struct {
	Provider  bool      `json:"provider"`
	Storage   bool      `json:"storage"`
	LastCheck time.Time `json:"last_check"`
}

// Healthy is true when every dependency answered its last probe.
func (s Status) Healthy() bool {
	return s.Provider && s.Storage
}
