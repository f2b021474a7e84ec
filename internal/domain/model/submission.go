package model

import (
	"strconv"
	"strings"
)

// Validation messages surfaced to the user.
const (
	MsgInvalidScore       = "invalid score"
	MsgMissingGameName    = "missing game name"
	MsgNotConnected       = "not connected"
	MsgSubmissionInFlight = "submission in progress"
)

// SubmissionRequest is a validated (score, gameName) pair. It only lives for
// one submission attempt.
type SubmissionRequest struct {
	Score    uint64
	GameName string
}

// ParseSubmission validates raw form input. The score must be a base-10
// integer greater than zero and the game name must be non-empty once trimmed.
func ParseSubmission(rawScore, rawGameName string) (SubmissionRequest, error) {
	const op = "model.parse_submission"

	score, err := strconv.ParseUint(strings.TrimSpace(rawScore), 10, 64)
	if err != nil || score == 0 {
		return SubmissionRequest{}, Validation(op, MsgInvalidScore)
	}
	name := strings.TrimSpace(rawGameName)
	if name == "" {
		return SubmissionRequest{}, Validation(op, MsgMissingGameName)
	}
	return SubmissionRequest{Score: score, GameName: name}, nil
}
