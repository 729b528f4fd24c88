package model

import "time"

// MatchOutcome records that one stylist won a head-to-head against another.
// Outcomes feed the Elo pipeline and are deduplicated by EventID.
type MatchOutcome struct {
	EventID    string
	WinnerID   string
	LoserID    string
	OccurredAt time.Time
}
