package gfx

import "testing"

func TestNewRect_ClampsNegativeSizes(t *testing.T) {
	r := NewRect(5, 6, -3, -1)
	if r.W != 0 || r.H != 0 {
		t.Fatalf("expected 0x0, got %dx%d", r.W, r.H)
	}
	if !r.Empty() {
		t.Fatalf("expected clamped rect to be empty")
	}
}

func TestIntersection(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"overlap", Rect{0, 0, 100, 100}, Rect{50, 50, 100, 100}, Rect{50, 50, 50, 50}},
		{"contained", Rect{0, 0, 100, 100}, Rect{10, 10, 20, 20}, Rect{10, 10, 20, 20}},
		{"touching edge", Rect{0, 0, 10, 10}, Rect{10, 0, 10, 10}, Rect{10, 0, 0, 10}},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{20, 20, 5, 5}, Rect{20, 20, 0, 0}},
		{"negative origin", Rect{-10, -10, 20, 20}, Rect{0, 0, 100, 100}, Rect{0, 0, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.Intersection(tt.b)
			if got != tt.want {
				t.Fatalf("Intersection(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIntersection_CommutativeAndEmptyIffNoSharedPixel(t *testing.T) {
	rects := []Rect{
		{0, 0, 10, 10},
		{5, 5, 10, 10},
		{10, 0, 5, 5},
		{-5, -5, 6, 6},
		{3, 3, 0, 4},
		{100, 100, 1, 1},
		{9, 9, 1, 1},
	}

	shares := func(a, b Rect) bool {
		for y := a.Top(); y < a.Bottom(); y++ {
			for x := a.Left(); x < a.Right(); x++ {
				if b.Contains(x, y) {
					return true
				}
			}
		}
		return false
	}

	for _, a := range rects {
		for _, b := range rects {
			ab := a.Intersection(b)
			ba := b.Intersection(a)
			if ab != ba {
				t.Fatalf("intersection not commutative: %v∩%v=%v, %v∩%v=%v", a, b, ab, b, a, ba)
			}
			if ab.Empty() == shares(a, b) {
				t.Fatalf("%v∩%v = %v: empty=%v but shared pixel=%v", a, b, ab, ab.Empty(), shares(a, b))
			}
		}
	}
}

func TestOffsetAndEdges(t *testing.T) {
	r := Rect{X: 10, Y: 20, W: 30, H: 40}.Offset(-10, 5)
	if r != (Rect{X: 0, Y: 25, W: 30, H: 40}) {
		t.Fatalf("unexpected offset result %v", r)
	}
	if r.Left() != 0 || r.Top() != 25 || r.Right() != 30 || r.Bottom() != 65 {
		t.Fatalf("unexpected edges l=%d t=%d r=%d b=%d", r.Left(), r.Top(), r.Right(), r.Bottom())
	}
}

func TestContains_IsHalfOpen(t *testing.T) {
	r := Rect{X: 0, Y: 0, W: 10, H: 10}
	if !r.Contains(0, 0) || !r.Contains(9, 9) {
		t.Fatalf("expected corners inside")
	}
	if r.Contains(10, 5) || r.Contains(5, 10) || r.Contains(-1, 0) {
		t.Fatalf("expected right/bottom edge outside")
	}
}

func TestUnion_IgnoresEmpty(t *testing.T) {
	a := Rect{X: 0, Y: 0, W: 10, H: 10}
	if got := a.Union(Rect{X: 500, Y: 500}); got != a {
		t.Fatalf("union with empty = %v, want %v", got, a)
	}
	got := a.Union(Rect{X: 20, Y: 5, W: 5, H: 10})
	want := Rect{X: 0, Y: 0, W: 25, H: 15}
	if got != want {
		t.Fatalf("union = %v, want %v", got, want)
	}
}

func TestAreaAndContainsRect(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: 20, H: 20}
	if got := r.Area(); got != 400 {
		t.Fatalf("area = %d, want 400", got)
	}
	if got := (Rect{W: -3, H: 5}).Area(); got != 0 {
		t.Fatalf("empty area = %d, want 0", got)
	}
	if !r.ContainsRect(Rect{X: 10, Y: 10, W: 20, H: 20}) || !r.ContainsRect(Rect{X: 100, Y: 100}) {
		t.Fatalf("expected self and empty rect inside")
	}
	if r.ContainsRect(Rect{X: 25, Y: 25, W: 10, H: 2}) {
		t.Fatalf("overhanging rect reported inside")
	}
}
