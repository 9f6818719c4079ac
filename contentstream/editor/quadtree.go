package editor

import (
	"sort"

	"github.com/wudi/pdfedit/ir/semantic"
)

// QuadTree implements a spatial index for rectangles.
type QuadTree struct {
	Bounds   semantic.Rectangle
	Capacity int
	Points   []PointData
	Nodes    []*QuadTree
	depth    int
}

type PointData struct {
	Rect  semantic.Rectangle
	Index int
}

const maxDepth = 8

func NewQuadTree(bounds semantic.Rectangle, capacity int) *QuadTree {
	if capacity <= 0 {
		capacity = 8
	}
	return &QuadTree{
		Bounds:   bounds,
		Capacity: capacity,
		Points:   make([]PointData, 0, capacity),
	}
}

// Insert adds rect. Rectangles outside the tree bounds stay at the root so
// off-page content is still found.
func (qt *QuadTree) Insert(rect semantic.Rectangle, index int) {
	if !intersects(qt.Bounds, rect) {
		qt.Points = append(qt.Points, PointData{Rect: rect, Index: index})
		return
	}
	qt.insert(rect, index)
}

func (qt *QuadTree) insert(rect semantic.Rectangle, index int) {
	if qt.Nodes != nil {
		for _, node := range qt.Nodes {
			if contains(node.Bounds, rect) {
				node.insert(rect, index)
				return
			}
		}
		// Straddles children: it belongs here.
		qt.Points = append(qt.Points, PointData{Rect: rect, Index: index})
		return
	}
	if len(qt.Points) < qt.Capacity || qt.depth >= maxDepth {
		qt.Points = append(qt.Points, PointData{Rect: rect, Index: index})
		return
	}
	qt.subdivide()
	old := qt.Points
	qt.Points = make([]PointData, 0, qt.Capacity)
	for _, p := range old {
		qt.insert(p.Rect, p.Index)
	}
	qt.insert(rect, index)
}

func (qt *QuadTree) subdivide() {
	xMid := (qt.Bounds.LLX + qt.Bounds.URX) / 2
	yMid := (qt.Bounds.LLY + qt.Bounds.URY) / 2
	child := func(r semantic.Rectangle) *QuadTree {
		n := NewQuadTree(r, qt.Capacity)
		n.depth = qt.depth + 1
		return n
	}
	qt.Nodes = []*QuadTree{
		child(semantic.Rectangle{LLX: qt.Bounds.LLX, LLY: yMid, URX: xMid, URY: qt.Bounds.URY}),
		child(semantic.Rectangle{LLX: xMid, LLY: yMid, URX: qt.Bounds.URX, URY: qt.Bounds.URY}),
		child(semantic.Rectangle{LLX: qt.Bounds.LLX, LLY: qt.Bounds.LLY, URX: xMid, URY: yMid}),
		child(semantic.Rectangle{LLX: xMid, LLY: qt.Bounds.LLY, URX: qt.Bounds.URX, URY: yMid}),
	}
}

// Query returns the indices of rectangles touching rangeRect, ascending
// and without duplicates.
func (qt *QuadTree) Query(rangeRect semantic.Rectangle) []int {
	seen := make(map[int]bool)
	qt.query(rangeRect, seen, true)
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func (qt *QuadTree) query(rangeRect semantic.Rectangle, seen map[int]bool, root bool) {
	if !root && !intersects(qt.Bounds, rangeRect) {
		return
	}
	for _, p := range qt.Points {
		if intersects(p.Rect, rangeRect) {
			seen[p.Index] = true
		}
	}
	for _, node := range qt.Nodes {
		node.query(rangeRect, seen, false)
	}
}

func intersects(r1, r2 semantic.Rectangle) bool {
	return !(r2.LLX > r1.URX || r2.URX < r1.LLX || r2.LLY > r1.URY || r2.URY < r1.LLY)
}

func contains(outer, inner semantic.Rectangle) bool {
	return inner.LLX >= outer.LLX && inner.URX <= outer.URX &&
		inner.LLY >= outer.LLY && inner.URY <= outer.URY
}
