package chain

// Revert and rejection reasons reported by the node.
const (
	ReasonGameNameTooLong = "game name too long"
	MsgNotOwner           = "caller is not the owner"
	MsgDuplicate          = "duplicate transaction"
)
