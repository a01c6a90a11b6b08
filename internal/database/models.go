package database

import "time"

// Request kinds.
const (
	KindSolve    = "solve"
	KindFollowUp = "followup"
)

// Request outcomes.
const (
	OutcomeSuccess    = "success"
	OutcomeNoExercise = "no_exercise"
	OutcomeNoContext  = "no_context"
	OutcomeFailed     = "failed"
)

// Request is one handled photo or follow-up question. Only metadata is
// recorded; the photo and the generated text stay in memory.
type Request struct {
	ID         uint      `db:"id"`
	UserID     int64     `db:"user_id"`
	ChatID     int64     `db:"chat_id"`
	Kind       string    `db:"kind"`
	Outcome    string    `db:"outcome"`
	Attempts   int       `db:"attempts"`
	DurationMS int64     `db:"duration_ms"`
	CreatedAt  time.Time `db:"created_at"`
}

// Stats aggregates the journal over a time window.
type Stats struct {
	Since       time.Time
	Total       int
	Succeeded   int
	NoExercise  int
	NoContext   int
	Failed      int
	FollowUps   int
	UniqueUsers int
	// AvgDuration covers requests that reached the inference service.
	AvgDuration time.Duration
}
