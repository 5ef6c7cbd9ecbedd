package monitor

import "time"

type Status struct {
	PostgreSQL     bool      `json:"postgresql"`
	Redis          bool      `json:"redis"`
	LocalCache     bool      `json:"local_cache"`
	PendingImports int       `json:"pending_imports"`
	LastCheck      time.Time `json:"last_check"`
}
