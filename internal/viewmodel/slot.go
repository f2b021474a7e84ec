package viewmodel

// Slot names one cached read. The set is closed.
type Slot int

const (
	SlotTable Slot = iota
	SlotBestScore
	SlotRank

	slotCount
)

// Slots lists every slot in refresh order.
func Slots() []Slot { return []Slot{SlotTable, SlotBestScore, SlotRank} }

func (s Slot) String() string {
	switch s {
	case SlotTable:
		return "table"
	case SlotBestScore:
		return "best_score"
	case SlotRank:
		return "rank"
	default:
		return "unknown"
	}
}

func (s Slot) valid() bool { return s >= 0 && s < slotCount }
