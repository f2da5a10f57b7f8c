package annotate

import "sort"

// PolygonRecord is the core's view of one live polygon.
type PolygonRecord struct {
	Handle      Handle
	CurrentPath Path
	StrokeColor string
	FillColor   string
	// Seq orders records by creation.
	Seq int
}

// State holds everything the controllers share: the live records, the
// selection and the color for new polygons. It is owned by one
// Orchestrator and only touched from its event loop.
type State struct {
	records     map[Handle]*PolygonRecord
	selected    Handle
	activeColor string
	nextSeq     int
}

func NewState() *State {
	return &State{
		records:     make(map[Handle]*PolygonRecord),
		activeColor: DefaultColor,
	}
}

func (s *State) Record(h Handle) (*PolygonRecord, bool) {
	r, ok := s.records[h]
	return r, ok
}

func (s *State) addRecord(h Handle, path Path, color string) *PolygonRecord {
	s.nextSeq++
	r := &PolygonRecord{
		Handle:      h,
		CurrentPath: path.Clone(),
		StrokeColor: color,
		FillColor:   color,
		Seq:         s.nextSeq,
	}
	s.records[h] = r
	return r
}

// dropRecord removes h and clears the selection if it pointed at h.
func (s *State) dropRecord(h Handle) {
	delete(s.records, h)
	if s.selected == h {
		s.selected = ""
	}
}

// Records returns copies of all live records in creation order.
func (s *State) Records() []PolygonRecord {
	out := make([]PolygonRecord, 0, len(s.records))
	for _, r := range s.records {
		c := *r
		c.CurrentPath = r.CurrentPath.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (s *State) Len() int { return len(s.records) }
