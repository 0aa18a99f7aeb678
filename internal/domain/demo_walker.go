package domain

// DemoWalker simulates movement by stepping a cursor along a route geometry.
// The cursor always stays within [0, len(geometry)-1] and only moves on an
// explicit Advance call.
type DemoWalker struct {
	geometry RouteGeometry
	cursor   int
}

func NewDemoWalker(geometry RouteGeometry) *DemoWalker {
	w := &DemoWalker{}
	w.Reset(geometry)
	return w
}

// Reset replaces the geometry and moves the cursor back to the first point.
func (w *DemoWalker) Reset(geometry RouteGeometry) {
	w.geometry = geometry
	w.cursor = 0
}

// Advance moves the cursor forward by steps points, clamped to the last point,
// and returns the coordinate under the cursor. Negative steps do not move it.
// It returns false when there is no geometry to walk.
func (w *DemoWalker) Advance(steps int) (Coordinate, bool) {
	if len(w.geometry) == 0 {
		return Coordinate{}, false
	}

	w.cursor = min(w.cursor+max(steps, 0), len(w.geometry)-1)
	return w.geometry[w.cursor], true
}

func (w *DemoWalker) Cursor() int { return w.cursor }

// Points returns the number of points in the walked geometry.
func (w *DemoWalker) Points() int { return len(w.geometry) }
