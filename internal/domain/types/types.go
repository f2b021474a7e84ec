// Package types contains the JSON wire shapes shared by the ledger gateway
// and its HTTP client.
package types

// Entry is one row of the top table.
type Entry struct {
	Player    string `json:"player"`
	Score     uint64 `json:"score"`
	GameName  string `json:"game_name"`
	Timestamp uint64 `json:"timestamp"`
}

// BestScore answers GET /v1/players/{player}/best.
type BestScore struct {
	Player    string `json:"player"`
	BestScore uint64 `json:"best_score"`
}

// Rank answers GET /v1/players/{player}/rank. Rank is meaningful only when
// Ranked is true.
type Rank struct {
	Player string `json:"player"`
	Rank   int    `json:"rank"`
	Ranked bool   `json:"ranked"`
}

// Count answers GET /v1/scores/count.
type Count struct {
	Count    int `json:"count"`
	Capacity int `json:"capacity"`
}

// SubmitRequest is the body of POST /v1/transactions.
type SubmitRequest struct {
	From     string `json:"from"`
	Score    uint64 `json:"score"`
	GameName string `json:"game_name"`
}

// SubmitResponse acknowledges an accepted write.
type SubmitResponse struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
}

// Receipt answers GET /v1/transactions/{reference}.
type Receipt struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Block     uint64 `json:"block,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// ResetRequest is the body of POST /v1/admin/reset.
type ResetRequest struct {
	Caller string `json:"caller"`
}

// Error is the body of every non-2xx response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
