package luape

import (
	"math/rand"
	"testing"
)

func TestIndexSetInterval(t *testing.T) {
	s := NewIndexSetInterval(3, 7)
	if s.Len() != 4 || s.At(0) != 3 || s.Back() != 6 {
		t.Fatalf("unexpected set: %v", s)
	}
	if s.IsInterval(4) {
		t.Error("[3, 7) should not be [0, 4)")
	}
	if !NewIndexSetInterval(0, 5).IsInterval(5) {
		t.Error("[0, 5) should be an interval")
	}
	if NewIndexSetInterval(4, 2).Len() != 0 {
		t.Error("empty interval should be empty")
	}
	if NewIndexSet(0).Back() != -1 {
		t.Error("empty set should have no back")
	}
}

func TestIndexSetAppendOrder(t *testing.T) {
	s := NewIndexSetSlice([]int{1, 4, 9})
	for _, x := range []int{9, 4, -1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("appending %d should panic", x)
				}
			}()
			s.Append(x)
		}()
	}
	s.AddInterval(10, 12)
	expected := []int{1, 4, 9, 10, 11}
	if s.Len() != len(expected) {
		t.Fatalf("expected %v but got %v", expected, s)
	}
	for i, x := range expected {
		if s.At(i) != x {
			t.Fatalf("expected %v but got %v", expected, s)
		}
	}
}

func TestIndexSetContains(t *testing.T) {
	s := NewIndexSetSlice([]int{0, 2, 3, 8, 13})
	mask := s.Mask(14)
	for i := 0; i < 14; i++ {
		if s.Contains(i) != mask[i] {
			t.Errorf("index %d: Contains is %v but mask is %v", i, s.Contains(i), mask[i])
		}
	}
	if !s.Equal(NewIndexSetSlice([]int{0, 2, 3, 8, 13})) {
		t.Error("sets should be equal")
	}
	if s.Equal(NewIndexSetSlice([]int{0, 2, 3, 8})) {
		t.Error("sets should differ")
	}
}

func TestIndexSetRandomlyExpand(t *testing.T) {
	rng := rand.New(rand.NewSource(1337))
	source := NewIndexSet(0)
	for i := 0; i < 200; i += 2 {
		source.Append(i)
	}
	for _, size := range []int{1, 10, 37, 99, 100} {
		s := NewIndexSetSlice([]int{4, 50})
		s.RandomlyExpandUsingSource(rng, size, source)
		expected := size
		if expected < 2 {
			expected = 2
		}
		if s.Len() != expected {
			t.Fatalf("size %d: got %d indices", size, s.Len())
		}
		for i := 0; i < s.Len(); i++ {
			if i > 0 && s.At(i) <= s.At(i-1) {
				t.Fatalf("size %d: indices not increasing: %v", size, s)
			}
			if !source.Contains(s.At(i)) {
				t.Fatalf("size %d: index %d not in source", size, s.At(i))
			}
		}
		if !s.Contains(4) || !s.Contains(50) {
			t.Fatalf("size %d: lost original indices", size)
		}
	}
}
