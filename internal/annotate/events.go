package annotate

import "fmt"

// EventType enumerates the gestures a Surface reports.
type EventType int

const (
	DrawStarted EventType = iota
	DrawCompleted
	DragStarted
	DragEnded
	VertexChanged
	Clicked
	DrawCancelled
)

func (t EventType) String() string {
	switch t {
	case DrawStarted:
		return "draw_started"
	case DrawCompleted:
		return "draw_completed"
	case DragStarted:
		return "drag_started"
	case DragEnded:
		return "drag_ended"
	case VertexChanged:
		return "vertex_changed"
	case Clicked:
		return "clicked"
	case DrawCancelled:
		return "draw_cancelled"
	default:
		return fmt.Sprintf("event(%d)", int(t))
	}
}

// Event is one gesture notification. Handle is empty for DrawStarted and
// DrawCancelled.
type Event struct {
	Type   EventType
	Handle Handle
}
