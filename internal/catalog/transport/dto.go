package transport

import "time"

// SyncResponse is returned by POST /sync-catalog.
type SyncResponse struct {
	OK        bool       `json:"ok"`
	Source    string     `json:"source"`
	Mode      string     `json:"mode,omitempty"`
	UpdatedAt *time.Time `json:"updated_at"`
	Items     int        `json:"items"`
	Skipped   int        `json:"skipped"`
	Error     string     `json:"error,omitempty"`
	Cached    bool       `json:"cached"`
}

// StatusResponse is returned by GET /catalog/status.
type StatusResponse struct {
	Source     string       `json:"source"`
	Version    string       `json:"version,omitempty"`
	UpdatedAt  *time.Time   `json:"updated_at"`
	Items      int          `json:"items"`
	LastSync   *time.Time   `json:"last_sync"`
	LastResult SyncResponse `json:"last_result"`
}

// OptionResponse is one priced option of a step.
type OptionResponse struct {
	Value      string `json:"value"`
	PriceCents int64  `json:"price_cents"`
}

// StepResponse is one configuration step of a machine.
type StepResponse struct {
	Name    string           `json:"name"`
	Kind    string           `json:"kind"`
	Options []OptionResponse `json:"options"`
}

// MachineResponse summarizes a quotable machine.
type MachineResponse struct {
	ID             string         `json:"id"`
	DisplayID      string         `json:"display_id"`
	Template       string         `json:"template"`
	BasePriceCents int64          `json:"base_price_cents"`
	Steps          []StepResponse `json:"steps"`
}

// MachinesResponse is returned by GET /catalog/machines.
type MachinesResponse struct {
	Source    string            `json:"source"`
	Machines  []MachineResponse `json:"machines"`
	Templates []string          `json:"templates"`
}
