package lazyset

import (
	"fmt"
	"reflect"
	"testing"
)

func ExampleSet_ToList_postorder() {
	a := NewBuilder[string](Postorder).Direct("a").Build()
	b := NewBuilder[string](Postorder).Direct("b").Transitive(a).Build()
	c := NewBuilder[string](Postorder).Direct("c").Transitive(a).Build()
	d := NewBuilder[string](Postorder).Direct("d").Transitive(b, c).Build()

	fmt.Println(d.ToList())
	// Output: [a b c d]
}

func ExampleSet_ToList_preorder() {
	a := NewBuilder[string](Preorder).Direct("a").Build()
	b := NewBuilder[string](Preorder).Direct("b").Transitive(a).Build()
	c := NewBuilder[string](Preorder).Direct("c").Transitive(a).Build()
	d := NewBuilder[string](Preorder).Direct("d").Transitive(b, c).Build()

	fmt.Println(d.ToList())
	// Output: [d b a c]
}

func ExampleSet_ToList_topological() {
	a := NewBuilder[string](Topological).Direct("a").Build()
	b := NewBuilder[string](Topological).Direct("b").Transitive(a).Build()
	c := NewBuilder[string](Topological).Direct("c").Transitive(a).Build()
	d := NewBuilder[string](Topological).Direct("d").Transitive(b, c).Build()

	fmt.Println(d.ToList())
	// Output: [d b c a]
}

func TestSetDedupesAcrossTransitiveSets(t *testing.T) {
	a := NewBuilder[string](Postorder).Direct("a", "b").Build()
	c := NewBuilder[string](Postorder).Direct("b", "c").Transitive(a).Build()

	got := c.ToList()
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToList() = %v, want %v", got, want)
	}
}

func TestSetDiamond(t *testing.T) {
	a := NewBuilder[string](Postorder).Direct("a").Build()
	b := NewBuilder[string](Postorder).Direct("b").Transitive(a).Build()
	c := NewBuilder[string](Postorder).Direct("c").Transitive(a).Build()
	d := NewBuilder[string](Postorder).Direct("d").Transitive(b, c).Build()

	got := d.ToList()
	want := []string{"a", "b", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToList() = %v, want %v (a must appear once despite being reachable through both b and c)", got, want)
	}
}

func TestNilSetToList(t *testing.T) {
	var s *Set[string]
	if got := s.ToList(); got != nil {
		t.Errorf("ToList() on nil Set = %v, want nil", got)
	}
}

func TestIncompatibleOrderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic mixing a Postorder transitive Set into a Preorder Set")
		}
	}()
	post := NewBuilder[string](Postorder).Direct("a").Build()
	NewBuilder[string](Preorder).Transitive(post).Build()
}

func TestFirstUniqueAboveAndBelowThreshold(t *testing.T) {
	for _, n := range []int{4, 200} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			in := make([]int, 0, n*2)
			for i := 0; i < n; i++ {
				in = append(in, i, i)
			}
			got := firstUnique(in)
			if len(got) != n {
				t.Fatalf("firstUnique: got %d unique elements, want %d", len(got), n)
			}
			for i, v := range got {
				if v != i {
					t.Errorf("firstUnique[%d] = %d, want %d (order of first occurrence not preserved)", i, v, i)
				}
			}
		})
	}
}

func TestFingerprintCacheComputesOnce(t *testing.T) {
	cache := NewFingerprintCache()
	set := NewBuilder[string](Postorder).Direct("a").Build()

	calls := 0
	compute := func() []byte {
		calls++
		return []byte("digest")
	}

	first := cache.Once(set, "key", compute)
	second := cache.Once(set, "key", compute)

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if string(first) != string(second) {
		t.Errorf("cached digests differ: %q != %q", first, second)
	}
}

func TestFingerprintCacheDistinguishesKeys(t *testing.T) {
	cache := NewFingerprintCache()
	set := NewBuilder[string](Postorder).Direct("a").Build()

	a := cache.Once(set, "key-a", func() []byte { return []byte("a") })
	b := cache.Once(set, "key-b", func() []byte { return []byte("b") })

	if string(a) == string(b) {
		t.Errorf("expected different digests for different keys on the same set")
	}
}
