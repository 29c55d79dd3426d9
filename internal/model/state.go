package model

import "time"

// UpdateState is the persisted bookkeeping of the daily updater.
type UpdateState struct {
	LastDailyUpdate time.Time    `json:"last_daily_update"`
	LastDate        string       `json:"last_date,omitempty"`
	LastPrice       float64      `json:"last_price,omitempty"`
	LastAction      UpsertAction `json:"last_action,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
