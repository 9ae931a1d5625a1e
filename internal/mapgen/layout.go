package mapgen

import "slices"

// Point is a grid coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) union(o Rect) Rect {
	x0, y0 := min(r.X, o.X), min(r.Y, o.Y)
	x1, y1 := max(r.X+r.Width, o.X+o.Width), max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Room is a placed room.
type Room struct {
	Name   string `json:"name"`
	Bounds Rect   `json:"bounds"`
	Center Point  `json:"center"`
}

// Segment connects the centers of two rooms.
type Segment struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Start Point  `json:"start"`
	End   Point  `json:"end"`
}

// Layout is the computed geometry of one region, serialised as map.json.
type Layout struct {
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Bounds   Rect      `json:"bounds"`
	Rooms    []Room    `json:"rooms"`
	Segments []Segment `json:"segments"`

	placed int
	edges  map[[2]string]struct{}
}

func newLayout(src RegionSource) *Layout {
	return &Layout{
		Key:      src.Key,
		Name:     src.Name,
		Rooms:    make([]Room, 0, len(src.Rooms)),
		Segments: []Segment{},
		edges:    make(map[[2]string]struct{}),
	}
}

// place lays out one room of src and records its connections. Each unordered
// room pair yields a single segment.
func (l *Layout) place(src RegionSource, i int) {
	rs := src.Rooms[i]
	bounds := Rect{X: rs.X, Y: rs.Y, Width: rs.Width, Height: rs.Height}
	if l.placed == 0 {
		l.Bounds = bounds
	} else {
		l.Bounds = l.Bounds.union(bounds)
	}
	l.placed++
	l.Rooms = append(l.Rooms, Room{Name: rs.Name, Bounds: bounds, Center: bounds.center()})

	for _, target := range rs.Connections {
		if target == rs.Name {
			continue
		}
		pair := [2]string{rs.Name, target}
		if pair[1] < pair[0] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		if _, seen := l.edges[pair]; seen {
			continue
		}
		l.edges[pair] = struct{}{}
		j := slices.IndexFunc(src.Rooms, func(r RoomSource) bool { return r.Name == target })
		to := src.Rooms[j]
		l.Segments = append(l.Segments, Segment{
			From:  rs.Name,
			To:    target,
			Start: bounds.center(),
			End:   Rect{X: to.X, Y: to.Y, Width: to.Width, Height: to.Height}.center(),
		})
	}
}
