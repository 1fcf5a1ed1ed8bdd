package models

import "time"

// LoginAttempt is an immutable record of one authentication attempt
type LoginAttempt struct {
	ID          int64     `db:"id" json:"id"`
	AttemptedAt time.Time `db:"attempted_at" json:"attempted_at"`
	Login       string    `db:"login" json:"login"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	Success     bool      `db:"success" json:"success"`
}

// LoginAttemptStats aggregates attempts over [From, To]
type LoginAttemptStats struct {
	From               time.Time `json:"from"`
	To                 time.Time `json:"to"`
	Total              int       `json:"total"`
	Successful         int       `json:"successful"`
	Failed             int       `json:"failed"`
	SuccessRatePercent float64   `json:"success_rate_percent"`
}

// BlockStatus is the advisory throttle view for a single IP or login
type BlockStatus struct {
	Key            string `json:"key"`
	RecentFailures int    `json:"recent_failures"`
	MaxAttempts    int    `json:"max_attempts"`
	WindowMinutes  int    `json:"window_minutes"`
	Blocked        bool   `json:"blocked"`
}
