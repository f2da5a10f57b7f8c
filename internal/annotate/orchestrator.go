package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultDelimiter separates pin names written to the clipboard.
const DefaultDelimiter = ", "

// DefaultClipboardTimeout bounds the clipboard write made when a completed
// polygon is copied automatically.
const DefaultClipboardTimeout = 2 * time.Second

// Recorder counts operation outcomes. op is one of "commit", "undo",
// "delete", "copy", "color"; outcome is "ok", "noop" or "error".
type Recorder interface {
	Record(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Record(string, string) {}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

func WithUndoMode(m UndoMode) Option {
	return func(o *Orchestrator) { o.undoMode = m }
}

func WithGeometry(g Geometry) Option {
	return func(o *Orchestrator) { o.query = NewPinQuery(g) }
}

// WithAutoCopy copies contained pin names whenever a polygon is completed.
func WithAutoCopy(on bool) Option {
	return func(o *Orchestrator) { o.autoCopy = on }
}

// WithClipboardTimeout bounds automatic copies. Explicit copies are bounded
// by the caller's context.
func WithClipboardTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.clipTimeout = d
		}
	}
}

func WithDelimiter(sep string) Option {
	return func(o *Orchestrator) { o.delimiter = sep }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// Orchestrator composes the session, history, selection and pin query into
// the operations the UI calls. All methods must be called from a single
// goroutine.
type Orchestrator struct {
	state     *State
	history   *History
	session   *Session
	selection *Selection
	query     PinQuery

	surface   Surface
	clipboard Clipboard
	notifier  Notifier
	recorder  Recorder
	log       *slog.Logger

	pins        []Pin
	undoMode    UndoMode
	autoCopy    bool
	delimiter   string
	clipTimeout time.Duration
}

func New(surface Surface, clipboard Clipboard, notifier Notifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		state:       NewState(),
		surface:     surface,
		clipboard:   clipboard,
		notifier:    notifier,
		recorder:    nopRecorder{},
		log:         slog.Default(),
		query:       NewPinQuery(nil),
		delimiter:   DefaultDelimiter,
		clipTimeout: DefaultClipboardTimeout,
	}
	if o.notifier == nil {
		o.notifier = discardNotifier{}
	}
	for _, opt := range opts {
		opt(o)
	}
	o.history = NewHistory(o.undoMode)
	o.selection = NewSelection(o.state, surface)
	o.session = NewSession(o.state, o.history, surface, o.selection, o.log)
	o.session.onCommit = o.committed
	return o
}

func (o *Orchestrator) State() *State { return o.state }
func (o *Orchestrator) History() *History { return o.history }
func (o *Orchestrator) Selection() *Selection { return o.selection }
func (o *Orchestrator) Session() *Session { return o.session }
func (o *Orchestrator) Polygons() []PolygonRecord { return o.state.Records() }

// SetPins replaces the pin set used by containment queries.
func (o *Orchestrator) SetPins(pins []Pin) {
	o.pins = append([]Pin(nil), pins...)
}

func (o *Orchestrator) Pins() []Pin { return o.pins }

// HandleEvent forwards one surface event to the drawing session.
func (o *Orchestrator) HandleEvent(ev Event) {
	if err := o.session.HandleEvent(ev); err != nil {
		if errors.Is(err, ErrDegeneratePath) {
			o.log.Info("discarded polygon", "polygon", ev.Handle, "reason", err)
			return
		}
		o.log.Warn("event failed", "event", ev.Type.String(), "polygon", ev.Handle, "error", err)
	}
}

// Run applies events from ch until ch is closed or ctx is done.
func (o *Orchestrator) Run(ctx context.Context, ch <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			o.HandleEvent(ev)
		}
	}
}

// DeleteSelected removes the selected polygon from the surface, drops its
// record and clears the selection.
func (o *Orchestrator) DeleteSelected() error {
	h, ok := o.selection.Selected()
	if !ok {
		o.recorder.Record("delete", "noop")
		o.notifier.Notify(Notification{
			Title:       "Delete failed",
			Description: "No polygon is selected.",
			Kind:        KindError,
		})
		return ErrNothingSelected
	}
	if err := o.surface.Remove(h); err != nil {
		o.recorder.Record("delete", "error")
		o.notifier.Notify(Notification{
			Title:       "Delete failed",
			Description: "The polygon could not be removed.",
			Kind:        KindError,
		})
		return fmt.Errorf("remove %s: %w", h, err)
	}
	o.selection.Clear()
	o.state.dropRecord(h)
	o.session.forget(h)
	o.recorder.Record("delete", "ok")
	o.log.Info("polygon deleted", "polygon", h)
	o.notifier.Notify(Notification{
		Title:       "Polygon deleted",
		Description: "The polygon was deleted.",
		Kind:        KindInfo,
	})
	return nil
}

// PinsInSelected returns the pins inside the selected polygon.
func (o *Orchestrator) PinsInSelected() ([]Pin, error) {
	h, ok := o.selection.Selected()
	if !ok {
		return nil, ErrNothingSelected
	}
	rec, _ := o.state.Record(h)
	return o.query.PinsInside(rec.CurrentPath, o.pins), nil
}

// CopySelectedPinNames writes the names of the pins inside the selected
// polygon to the clipboard.
func (o *Orchestrator) CopySelectedPinNames(ctx context.Context) error {
	pins, err := o.PinsInSelected()
	if err != nil {
		o.recorder.Record("copy", "noop")
		o.notifier.Notify(Notification{
			Title:       "Copy failed",
			Description: "No polygon is selected.",
			Kind:        KindError,
		})
		return err
	}
	return o.copyPins(ctx, pins)
}

func (o *Orchestrator) copyPins(ctx context.Context, pins []Pin) error {
	text := JoinNames(pins, o.delimiter)
	if err := o.clipboard.WriteText(ctx, text); err != nil {
		o.recorder.Record("copy", "error")
		o.log.Error("clipboard write failed", "error", err)
		o.notifier.Notify(Notification{
			Title:       "Copy failed",
			Description: "Could not copy pin names to the clipboard.",
			Kind:        KindError,
		})
		return fmt.Errorf("write clipboard: %w", err)
	}
	o.recorder.Record("copy", "ok")
	o.log.Info("pin names copied", "pins", len(pins))
	o.notifier.Notify(Notification{
		Title:       "Copied",
		Description: fmt.Sprintf("%d pin names copied to the clipboard.", len(pins)),
		Kind:        KindSuccess,
	})
	return nil
}

// Undo reverts the selected polygon one step.
func (o *Orchestrator) Undo() error {
	err := o.history.Undo(o.state, o.session.restore)
	switch {
	case err == nil:
		o.recorder.Record("undo", "ok")
		o.notifier.Notify(Notification{
			Title:       "Undone",
			Description: "The selected polygon is back to its previous shape.",
			Kind:        KindInfo,
		})
		return nil
	case errors.Is(err, ErrNothingSelected), errors.Is(err, ErrNothingToUndo), errors.Is(err, ErrUnknownPolygon):
		o.recorder.Record("undo", "noop")
		o.notifier.Notify(Notification{
			Title:       "Nothing to undo",
			Description: undoNoopReason(err),
			Kind:        KindInfo,
		})
		return err
	default:
		o.recorder.Record("undo", "error")
		o.log.Error("undo failed", "error", err)
		o.notifier.Notify(Notification{
			Title:       "Undo failed",
			Description: "The polygon could not be restored.",
			Kind:        KindError,
		})
		return err
	}
}

func undoNoopReason(err error) string {
	if errors.Is(err, ErrNothingToUndo) {
		return "The selected polygon has no earlier shape."
	}
	return "No polygon is selected."
}

// SetColor sets the active color and repaints the selected polygon.
func (o *Orchestrator) SetColor(color string) error {
	if err := o.selection.SetColor(color); err != nil {
		o.recorder.Record("color", "error")
		n := Notification{
			Title:       "Color change failed",
			Description: "The polygon could not be restyled.",
			Kind:        KindError,
		}
		if errors.Is(err, ErrInvalidColor) {
			n.Title = "Invalid color"
			n.Description = fmt.Sprintf("%q is not a hex color like #00FF00.", color)
		}
		o.notifier.Notify(n)
		return err
	}
	o.recorder.Record("color", "ok")
	return nil
}

func (o *Orchestrator) committed(h Handle, created bool) {
	o.recorder.Record("commit", "ok")
	if !created || !o.autoCopy {
		return
	}
	rec, ok := o.state.Record(h)
	if !ok {
		return
	}
	pins := o.query.PinsInside(rec.CurrentPath, o.pins)
	if len(pins) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.clipTimeout)
	defer cancel()
	_ = o.copyPins(ctx, pins)
}

// FeatureCollection exports every live polygon with its style and the ids
// of the pins it contains.
func (o *Orchestrator) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	selected, _ := o.selection.Selected()
	for _, rec := range o.state.Records() {
		inside := o.query.PinsInside(rec.CurrentPath, o.pins)
		ids := make([]string, len(inside))
		for i, p := range inside {
			ids[i] = p.ID
		}
		f := geojson.NewFeature(orb.Polygon{rec.CurrentPath.ClosedRing()})
		f.ID = string(rec.Handle)
		f.Properties["stroke"] = rec.StrokeColor
		f.Properties["fill"] = rec.FillColor
		f.Properties["pins"] = ids
		f.Properties["pin_count"] = len(ids)
		f.Properties["selected"] = rec.Handle == selected
		fc.Append(f)
	}
	return fc
}
