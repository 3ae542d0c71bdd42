package geocode

import (
	"gonum.org/v1/gonum/spatial/kdtree"
)

// geoPoint is an indexed coordinate. idx is the position of its address in
// snapshot.addresses; the tree reorders points, so it travels with them.
type geoPoint struct {
	lat, lon float64
	idx      int
}

func (p geoPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(geoPoint)
	if d == 0 {
		return p.lat - q.lat
	}
	return p.lon - q.lon
}

func (p geoPoint) Dims() int { return 2 }

// Distance is the squared straight-line distance in degrees.
func (p geoPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(geoPoint)
	dlat, dlon := p.lat-q.lat, p.lon-q.lon
	return dlat*dlat + dlon*dlon
}

func (p geoPoint) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return p.lat
	}
	return p.lon
}

type geoPoints []geoPoint

func (p geoPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p geoPoints) Len() int                       { return len(p) }
func (p geoPoints) Pivot(d kdtree.Dim) int         { return plane{Dim: d, geoPoints: p}.Pivot() }
func (p geoPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// plane sorts points along one dimension.
type plane struct {
	kdtree.Dim
	geoPoints
}

func (p plane) Less(i, j int) bool {
	return p.geoPoints[i].coord(p.Dim) < p.geoPoints[j].coord(p.Dim)
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.geoPoints = p.geoPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.geoPoints[i], p.geoPoints[j] = p.geoPoints[j], p.geoPoints[i]
}
