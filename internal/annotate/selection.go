package annotate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidColor reports whether c is a #RGB or #RRGGBB hex color.
func ValidColor(c string) bool {
	return validate.Var(c, "required,hexcolor,len=4|len=7") == nil
}

// Selection tracks the selected polygon and the active color, and restyles
// the selected polygon.
type Selection struct {
	state    *State
	surface  Surface
	observer func(h Handle, displayColor string)
}

func NewSelection(state *State, surface Surface) *Selection {
	return &Selection{state: state, surface: surface}
}

// Observe registers fn to run whenever the selection changes. fn receives
// the new handle (empty when cleared) and the color the color field should
// show.
func (s *Selection) Observe(fn func(h Handle, displayColor string)) {
	s.observer = fn
}

// Select replaces the current selection. Stale handles are rejected and
// leave the selection untouched.
func (s *Selection) Select(h Handle) error {
	if _, ok := s.state.Record(h); !ok {
		return fmt.Errorf("select %s: %w", h, ErrUnknownPolygon)
	}
	s.state.selected = h
	s.changed()
	return nil
}

func (s *Selection) Clear() {
	if s.state.selected == "" {
		return
	}
	s.state.selected = ""
	s.changed()
}

// Selected returns the selected handle, if any.
func (s *Selection) Selected() (Handle, bool) {
	h := s.state.selected
	if h == "" {
		return "", false
	}
	if _, ok := s.state.Record(h); !ok {
		return "", false
	}
	return h, true
}

// ActiveColor is the color given to the next polygon drawn.
func (s *Selection) ActiveColor() string {
	return s.state.activeColor
}

// DisplayColor is the selected polygon's fill, or DefaultColor.
func (s *Selection) DisplayColor() string {
	h, ok := s.Selected()
	if !ok {
		return DefaultColor
	}
	rec, _ := s.state.Record(h)
	if rec.FillColor == "" {
		return DefaultColor
	}
	return rec.FillColor
}

// SetColor makes color the active color and, when a polygon is selected,
// repaints it. Color changes are not recorded in the history.
func (s *Selection) SetColor(color string) error {
	color = strings.TrimSpace(color)
	if !ValidColor(color) {
		return fmt.Errorf("%q: %w", color, ErrInvalidColor)
	}
	h, ok := s.Selected()
	if ok {
		if err := s.surface.SetStyle(h, DefaultStyle(color)); err != nil {
			return fmt.Errorf("restyle %s: %w", h, err)
		}
		rec, _ := s.state.Record(h)
		rec.StrokeColor = color
		rec.FillColor = color
	}
	s.state.activeColor = color
	return nil
}

func (s *Selection) changed() {
	if s.observer != nil {
		s.observer(s.state.selected, s.DisplayColor())
	}
}
