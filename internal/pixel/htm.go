package pixel

import "math"

// htm implements a Hierarchical Triangular Mesh pixelization: the
// celestial sphere is covered by 8 root triangles (an octahedron), each
// recursively subdivided into 4 children down to level.
type htm struct {
	level int
	roots []htmTriangle
}

type htmTriangle struct {
	id         uint64
	v0, v1, v2 Direction
}

func newHTM(level int) *htm {
	// Octahedron vertices.
	north := Direction{0, 0, 1}
	south := Direction{0, 0, -1}
	px := Direction{1, 0, 0}
	py := Direction{0, 1, 0}
	nx := Direction{-1, 0, 0}
	ny := Direction{0, -1, 0}

	roots := []htmTriangle{
		{id: 8, v0: north, v1: px, v2: py},
		{id: 9, v0: north, v1: py, v2: nx},
		{id: 10, v0: north, v1: nx, v2: ny},
		{id: 11, v0: north, v1: ny, v2: px},
		{id: 12, v0: south, v1: py, v2: px},
		{id: 13, v0: south, v1: nx, v2: py},
		{id: 14, v0: south, v1: ny, v2: nx},
		{id: 15, v0: south, v1: px, v2: ny},
	}
	return &htm{level: level, roots: roots}
}

func (h *htm) Level() int { return h.level }

// children subdivides a triangle into 4: the three corner triangles and
// the central triangle formed by the edge midpoints, each id built by
// appending a 2-bit child index (0,1,2 for corners, 3 for center).
func (t htmTriangle) children() [4]htmTriangle {
	w0 := t.v1.midpoint(t.v2)
	w1 := t.v2.midpoint(t.v0)
	w2 := t.v0.midpoint(t.v1)
	return [4]htmTriangle{
		{id: t.id<<2 | 0, v0: t.v0, v1: w2, v2: w1},
		{id: t.id<<2 | 1, v0: t.v1, v1: w0, v2: w2},
		{id: t.id<<2 | 2, v0: t.v2, v1: w1, v2: w0},
		{id: t.id<<2 | 3, v0: w0, v1: w1, v2: w2},
	}
}

func (t htmTriangle) center() Direction {
	s := t.v0.add(t.v1).add(t.v2)
	return NewDirection(s.X, s.Y, s.Z)
}

// circumradius returns (an upper bound on) the angular radius of the
// triangle's circumscribing cap, used for the fast reject/accept tests
// during region descent.
func (t htmTriangle) circumradius() float64 {
	c := t.center()
	d0 := math.Acos(clamp(c.dot(t.v0)))
	d1 := math.Acos(clamp(c.dot(t.v1)))
	d2 := math.Acos(clamp(c.dot(t.v2)))
	return math.Max(d0, math.Max(d1, d2))
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}

// contains reports whether the triangle contains direction d, using the
// standard inside-test: d must be on the interior side of each of the
// three great circles defined by the triangle's edges.
func (t htmTriangle) contains(d Direction) bool {
	return sameSide(t.v0, t.v1, t.v2, d) &&
		sameSide(t.v1, t.v2, t.v0, d) &&
		sameSide(t.v2, t.v0, t.v1, d)
}

// sameSide reports whether point d is on the same side of the great
// circle through a,b as the third triangle vertex c.
func sameSide(a, b, c, d Direction) bool {
	n := cross(a, b)
	return (n.dot(c) >= 0) == (n.dot(d) >= 0)
}

func cross(a, b Direction) Direction {
	return Direction{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

func (h *htm) Pixel(d Direction) uint64 {
	for _, root := range h.roots {
		if root.contains(d) {
			return descendToLeaf(root, d, h.level)
		}
	}
	// Point sits exactly on a root boundary; fall back to nearest center.
	best := h.roots[0]
	bestDot := -2.0
	for _, root := range h.roots {
		if c := root.center().dot(d); c > bestDot {
			bestDot = c
			best = root
		}
	}
	return descendToLeaf(best, d, h.level)
}

func descendToLeaf(t htmTriangle, d Direction, level int) uint64 {
	cur := t
	for i := 0; i < level; i++ {
		children := cur.children()
		placed := false
		for _, child := range children {
			if child.contains(d) {
				cur = child
				placed = true
				break
			}
		}
		if !placed {
			// Numerical edge case: pick the child with the nearest center.
			best := children[0]
			bestDot := -2.0
			for _, child := range children {
				if c := child.center().dot(d); c > bestDot {
					bestDot = c
					best = child
				}
			}
			cur = best
		}
	}
	return cur.id
}

func (h *htm) Pixels(region Region) []uint64 {
	ranges := h.Envelope(region, 1<<30)
	return expandRanges(ranges)
}

func (h *htm) Envelope(region Region, maxRanges int) []Range {
	var ranges []Range
	for _, root := range h.roots {
		collectHTMRanges(root, region, h.level, 0, &ranges)
	}
	return mergeRanges(ranges, maxRanges)
}

func collectHTMRanges(t htmTriangle, region Region, level, depth int, out *[]Range) {
	center, radius := region.boundingCircle()
	toCenter := math.Acos(clamp(t.center().dot(center)))
	circum := t.circumradius()

	if toCenter-circum > radius {
		return // fully outside
	}
	remaining := level - depth
	if toCenter+circum <= radius {
		// fully inside: whole leaf range under this node
		*out = append(*out, Range{Lo: t.id << uint(2*remaining), Hi: (t.id + 1) << uint(2*remaining)})
		return
	}
	if remaining == 0 {
		*out = append(*out, Range{Lo: t.id, Hi: t.id + 1})
		return
	}
	for _, child := range t.children() {
		collectHTMRanges(child, region, level, depth+1, out)
	}
}
