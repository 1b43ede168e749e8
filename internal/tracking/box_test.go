package tracking

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntersect(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Box
		want   Box
		wantOK bool
	}{
		{
			name:   "partial overlap",
			a:      NewBox(0, 0, 10, 10),
			b:      NewBox(5, 5, 10, 10),
			want:   NewBox(5, 5, 5, 5),
			wantOK: true,
		},
		{
			name:   "contained",
			a:      NewBox(0, 0, 100, 100),
			b:      NewBox(10, 20, 5, 5),
			want:   NewBox(10, 20, 5, 5),
			wantOK: true,
		},
		{
			name:   "shared edge is a zero area intersection",
			a:      NewBox(0, 0, 10, 10),
			b:      NewBox(10, 0, 10, 10),
			want:   NewBox(10, 0, 0, 10),
			wantOK: true,
		},
		{
			name:   "disjoint horizontally",
			a:      NewBox(0, 0, 10, 10),
			b:      NewBox(11, 0, 10, 10),
			wantOK: false,
		},
		{
			name:   "disjoint vertically",
			a:      NewBox(0, 0, 10, 10),
			b:      NewBox(0, 20, 10, 10),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Intersect(tt.a, tt.b)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIntersect_Commutative(t *testing.T) {
	boxes := []Box{
		NewBox(0, 0, 10, 10),
		NewBox(5, 5, 10, 10),
		NewBox(10, 0, 10, 10),
		NewBox(-4, 3, 2, 50),
		NewBox(100, 100, 1, 1),
		NewBox(0, 0, 0, 0),
	}

	for _, a := range boxes {
		for _, b := range boxes {
			ab, okAB := Intersect(a, b)
			ba, okBA := Intersect(b, a)
			assert.Equal(t, okAB, okBA, "Intersect(%v, %v) ok mismatch", a, b)
			assert.Equal(t, ab, ba, "Intersect(%v, %v) not commutative", a, b)
		}
	}
}

func TestOverlapRatio(t *testing.T) {
	t.Run("identical boxes", func(t *testing.T) {
		r, ok := OverlapRatio(NewBox(3, 4, 10, 10), NewBox(3, 4, 10, 10))
		require.True(t, ok)
		assert.InDelta(t, 1.0, r, 1e-12)
	})

	t.Run("quarter overlap", func(t *testing.T) {
		// intersection 25, union 100+100-25
		r, ok := OverlapRatio(NewBox(0, 0, 10, 10), NewBox(5, 5, 10, 10))
		require.True(t, ok)
		assert.InDelta(t, 25.0/175.0, r, 1e-12)
	})

	t.Run("touching edge", func(t *testing.T) {
		r, ok := OverlapRatio(NewBox(0, 0, 10, 10), NewBox(10, 0, 10, 10))
		require.True(t, ok)
		assert.Zero(t, r)
	})

	t.Run("degenerate boxes", func(t *testing.T) {
		r, ok := OverlapRatio(NewBox(5, 5, 0, 0), NewBox(5, 5, 0, 0))
		require.True(t, ok)
		assert.Zero(t, r)
	})

	t.Run("no intersection", func(t *testing.T) {
		_, ok := OverlapRatio(NewBox(0, 0, 10, 10), NewBox(50, 50, 10, 10))
		assert.False(t, ok)
	})
}

func TestOverlapRatio_InUnitRange(t *testing.T) {
	for x := -12; x <= 12; x += 3 {
		for y := -12; y <= 12; y += 4 {
			for w := 1; w <= 20; w += 6 {
				a := NewBox(0, 0, 10, 8)
				b := NewBox(x, y, w, w+1)
				r, ok := OverlapRatio(a, b)
				if !ok {
					continue
				}
				assert.GreaterOrEqual(t, r, 0.0, "ratio(%v, %v)", a, b)
				assert.LessOrEqual(t, r, 1.0, "ratio(%v, %v)", a, b)
			}
		}
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want Box
	}{
		{
			name: "min corner and max size",
			a:    NewBox(10, 20, 30, 5),
			b:    NewBox(15, 10, 8, 40),
			want: NewBox(10, 10, 30, 40),
		},
		{
			name: "far corner of second box is not covered",
			a:    NewBox(0, 0, 50, 50),
			b:    NewBox(40, 40, 20, 20),
			want: NewBox(0, 0, 50, 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.a, tt.b)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.X, min(tt.a.X, tt.b.X))
			assert.LessOrEqual(t, got.Y, min(tt.a.Y, tt.b.Y))
		})
	}
}

func TestUnion(t *testing.T) {
	got := Union(NewBox(0, 0, 50, 50), NewBox(40, 40, 20, 20))
	assert.Equal(t, NewBox(0, 0, 60, 60), got)

	assert.True(t, got.Rect().Eq(image.Rect(0, 0, 50, 50).Union(image.Rect(40, 40, 60, 60))))
}

func TestBoxFromRect(t *testing.T) {
	b := BoxFromRect(image.Rect(30, 40, 10, 20))
	assert.Equal(t, NewBox(10, 20, 20, 20), b)
	assert.Equal(t, 400, b.Area())
	assert.Equal(t, image.Pt(10, 20), b.UpperLeft())
}
