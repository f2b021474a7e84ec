package model

// EventKind distinguishes ledger notifications.
type EventKind string

const (
	// EventScoreSubmitted is emitted once per applied write.
	EventScoreSubmitted EventKind = "ScoreSubmitted"
	// EventLeaderboardUpdated is emitted when a player's table position changes.
	EventLeaderboardUpdated EventKind = "LeaderboardUpdated"
)

// Event is an informational ledger notification. Fields not relevant to
// Kind are left zero.
type Event struct {
	Kind      EventKind
	Player    Player
	Score     uint64
	GameName  string
	Timestamp uint64
	NewRank   Rank
	Reference Reference
	Block     uint64
}
