package domain

// ItemType is derived from which endpoints an item carries. It is never stored.
type ItemType int

const (
	TypeProcedure ItemType = iota
	TypeReminder
	TypeAssignment
	TypeEvent
)

func (t ItemType) String() string {
	switch t {
	case TypeReminder:
		return "reminder"
	case TypeAssignment:
		return "assignment"
	case TypeEvent:
		return "event"
	default:
		return "procedure"
	}
}

// ParseItemType accepts the lowercase names produced by String.
func ParseItemType(s string) (ItemType, bool) {
	switch s {
	case "procedure":
		return TypeProcedure, true
	case "reminder":
		return TypeReminder, true
	case "assignment":
		return TypeAssignment, true
	case "event":
		return TypeEvent, true
	}
	return TypeProcedure, false
}

// Progress cell values. Values above ProgressPending are reserved for
// partial-progress states.
const (
	ProgressPending  = 0
	ProgressComplete = -1
)

// Scheme colors are small palette indices.
const (
	MinColor = 1
	MaxColor = 6
)

type RecurrenceKind string

const (
	RepeatNone  RecurrenceKind = "none"
	RepeatBlock RecurrenceKind = "block"
)

// MaxBlocks bounds the block count of a block recurrence.
const MaxBlocks = 256
