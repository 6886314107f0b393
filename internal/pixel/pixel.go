// Package pixel implements the spatial partitioner: mapping sky
// directions and regions onto integer pixel indices used as the
// Cassandra partition key. Three schemes are supported (HTM, Q3C, MQ3C)
// behind one Pixelizer interface, selected by configuration string.
package pixel

import (
	"math"

	"github.com/ap-survey/apdb/internal/apdberr"
)

// Direction is a unit vector on the sphere.
type Direction struct {
	X, Y, Z float64
}

// NewDirection normalizes (x, y, z) into a unit vector.
func NewDirection(x, y, z float64) Direction {
	n := math.Sqrt(x*x + y*y + z*z)
	if n == 0 {
		return Direction{}
	}
	return Direction{X: x / n, Y: y / n, Z: z / n}
}

// DirectionFromRaDec builds a unit vector from right ascension and
// declination, both in radians.
func DirectionFromRaDec(raRad, decRad float64) Direction {
	cosDec := math.Cos(decRad)
	return Direction{
		X: cosDec * math.Cos(raRad),
		Y: cosDec * math.Sin(raRad),
		Z: math.Sin(decRad),
	}
}

func (d Direction) dot(o Direction) float64 {
	return d.X*o.X + d.Y*o.Y + d.Z*o.Z
}

func (d Direction) add(o Direction) Direction {
	return Direction{d.X + o.X, d.Y + o.Y, d.Z + o.Z}
}

func (d Direction) midpoint(o Direction) Direction {
	m := d.add(o)
	return NewDirection(m.X, m.Y, m.Z)
}

// Region is anything the planner can intersect against a pixelization.
// Circle is the only concrete implementation carried by this module
// (spec.md's scenario tests only exercise circular regions); a convex
// polygon region would implement the same interface.
type Region interface {
	// Contains reports whether the region contains the given direction.
	Contains(d Direction) bool
	// boundingCircle returns the region's center and the true or an
	// over-estimated angular distance (radians) from that center to its
	// farthest point, used by the tree-descent containment tests.
	boundingCircle() (center Direction, radiusRad float64)
}

// Circle is a spherical cap: all directions within radiusRad of center.
type Circle struct {
	Center    Direction
	RadiusRad float64
}

func (c Circle) Contains(d Direction) bool {
	cosAngle := c.Center.dot(d)
	return cosAngle >= math.Cos(c.RadiusRad)
}

func (c Circle) boundingCircle() (Direction, float64) {
	return c.Center, c.RadiusRad
}

// Range is a half-open pixel index range [Lo, Hi).
type Range struct {
	Lo, Hi uint64
}

// Pixelizer computes pixel indices for directions and regions. Unknown
// scheme names are rejected at construction time via New, never at
// first use.
type Pixelizer interface {
	// Pixel returns the index of the pixel containing d.
	Pixel(d Direction) uint64
	// Pixels returns every individual pixel index intersecting region,
	// at the finest granularity the scheme supports. Equivalent to the
	// original engine's Partitioner.pixels (envelope with an effectively
	// unbounded range count).
	Pixels(region Region) []uint64
	// Envelope returns a set of contiguous pixel ranges covering region,
	// merged so that at most maxRanges ranges are returned. Coarser than
	// Pixels when the region spans many pixels.
	Envelope(region Region, maxRanges int) []Range
	// Level returns the subdivision depth this pixelizer was built with.
	Level() int
}

// Scheme names accepted by New, matching the original's
// part_pixelization ChoiceField.
const (
	SchemeHTM  = "htm"
	SchemeQ3C  = "q3c"
	SchemeMQ3C = "mq3c"
)

// New builds a Pixelizer for the named scheme at the given subdivision
// level. An unrecognized name is a ConfigError, never a panic, matching
// spec.md §4.1.
func New(scheme string, level int) (Pixelizer, error) {
	switch scheme {
	case SchemeHTM:
		return newHTM(level), nil
	case SchemeQ3C:
		return newQ3C(level, false), nil
	case SchemeMQ3C:
		return newQ3C(level, true), nil
	default:
		return nil, apdberr.NewConfigError("pixel.New", unknownSchemeErr(scheme))
	}
}

type unknownScheme string

func (u unknownScheme) Error() string { return "unknown pixelization: " + string(u) }

func unknownSchemeErr(scheme string) error { return unknownScheme(scheme) }

// mergeRanges sorts and merges adjacent/overlapping ranges, then greedily
// merges the closest-together pairs until at most maxRanges remain. This
// mirrors the original engine's envelope() trading exactness for a
// caller-bounded WHERE-clause size.
func mergeRanges(ranges []Range, maxRanges int) []Range {
	if len(ranges) == 0 {
		return ranges
	}
	sortRanges(ranges)
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Lo <= last.Hi {
			if r.Hi > last.Hi {
				last.Hi = r.Hi
			}
			continue
		}
		merged = append(merged, r)
	}
	for maxRanges > 0 && len(merged) > maxRanges {
		gapIdx := 0
		minGap := merged[1].Lo - merged[0].Hi
		for i := 1; i < len(merged)-1; i++ {
			gap := merged[i+1].Lo - merged[i].Hi
			if gap < minGap {
				minGap = gap
				gapIdx = i
			}
		}
		merged[gapIdx].Hi = merged[gapIdx+1].Hi
		merged = append(merged[:gapIdx+1], merged[gapIdx+2:]...)
	}
	return merged
}

func sortRanges(ranges []Range) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j-1].Lo > ranges[j].Lo; j-- {
			ranges[j-1], ranges[j] = ranges[j], ranges[j-1]
		}
	}
}

func expandRanges(ranges []Range) []uint64 {
	var out []uint64
	for _, r := range ranges {
		for id := r.Lo; id < r.Hi; id++ {
			out = append(out, id)
		}
	}
	return out
}
