package annotate

import (
	"context"
	"errors"
)

// Handle identifies one live polygon owned by the rendering surface.
type Handle string

const (
	DefaultColor         = "#FF0000"
	DefaultStrokeOpacity = 0.8
	DefaultStrokeWeight  = 2
	DefaultFillOpacity   = 0.35
)

// Style is the stroke and fill applied to a polygon.
type Style struct {
	Stroke        string
	Fill          string
	StrokeOpacity float64
	StrokeWeight  float64
	FillOpacity   float64
}

// DefaultStyle returns the standard polygon style painted in color.
func DefaultStyle(color string) Style {
	return Style{
		Stroke:        color,
		Fill:          color,
		StrokeOpacity: DefaultStrokeOpacity,
		StrokeWeight:  DefaultStrokeWeight,
		FillOpacity:   DefaultFillOpacity,
	}
}

// Surface is the rendering collaborator. It owns polygon geometry objects
// and reports gestures as Events.
type Surface interface {
	Path(h Handle) (Path, bool)
	SetPath(h Handle, p Path) error
	SetStyle(h Handle, s Style) error
	SetEditable(h Handle, editable, draggable bool) error
	Remove(h Handle) error
}

// Clipboard receives exported pin names.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "info"
	}
}

type Notification struct {
	Title       string
	Description string
	Kind        Kind
}

// Notifier surfaces operation outcomes. Notify must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notification) {}

var (
	ErrNothingSelected = errors.New("annotate: no polygon selected")
	ErrNothingToUndo   = errors.New("annotate: nothing to undo")
	ErrUnknownPolygon  = errors.New("annotate: unknown polygon")
	ErrInvalidColor    = errors.New("annotate: invalid color")
	ErrDegeneratePath  = errors.New("annotate: path needs at least 3 vertices")
)
