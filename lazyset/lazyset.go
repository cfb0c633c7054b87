// Copyright 2024 Google Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lazyset implements a generic, lazily-flattened dependency set,
// conceptually compatible with Bazel's depsets and modeled on Soong's
// android.DepSet (see android/depset.go in the teacher tree this package was
// adapted from, generified with type parameters instead of reflection).
package lazyset

import "fmt"

// Order controls how ToList walks the DAG of a Set.
type Order int

const (
	// Preorder lists a node's direct contents before its transitive sets.
	Preorder Order = iota
	// Postorder lists a node's direct contents after its transitive sets.
	Postorder
	// Topological guarantees a child is listed after all of its parents,
	// except where duplicate direct elements make the order ambiguous.
	Topological
)

func (o Order) String() string {
	switch o {
	case Preorder:
		return "PREORDER"
	case Postorder:
		return "POSTORDER"
	case Topological:
		return "TOPOLOGICAL"
	default:
		panic(fmt.Errorf("invalid lazyset.Order %d", o))
	}
}

// Set efficiently stores values from transitive dependencies without
// copying them at every level. It is a DAG of Set nodes, each with some
// direct contents and a list of transitive Sets. A Set is immutable once
// built.
type Set[T comparable] struct {
	preorder   bool
	reverse    bool
	order      Order
	direct     []T
	transitive []*Set[T]
}

// Builder accumulates direct and transitive contents for a Set.
type Builder[T comparable] struct {
	order      Order
	direct     []T
	transitive []*Set[T]
}

// NewBuilder returns a Builder that will produce a Set with the given Order.
func NewBuilder[T comparable](order Order) *Builder[T] {
	return &Builder[T]{order: order}
}

// Direct appends direct contents, to the right of any already added.
func (b *Builder[T]) Direct(direct ...T) *Builder[T] {
	b.direct = append(b.direct, direct...)
	return b
}

// Transitive appends transitive Sets, to the right of any already added.
// All transitive sets must share this Builder's Order.
func (b *Builder[T]) Transitive(transitive ...*Set[T]) *Builder[T] {
	b.transitive = append(b.transitive, transitive...)
	return b
}

// Build returns the immutable Set described by the Builder so far. The
// Builder retains its contents and may be built from again.
func (b *Builder[T]) Build() *Set[T] {
	return New(b.order, b.direct, b.transitive)
}

// New returns an immutable Set with the given order, direct and transitive
// contents.
func New[T comparable](order Order, direct []T, transitive []*Set[T]) *Set[T] {
	for _, dep := range transitive {
		if dep.order != order {
			panic(fmt.Errorf("incompatible order: new Set is %s but transitive Set is %s", order, dep.order))
		}
	}

	var directCopy []T
	var transitiveCopy []*Set[T]
	if order == Topological {
		directCopy = reversed(direct)
		transitiveCopy = reversedSets(transitive)
	} else {
		directCopy = make([]T, len(direct))
		copy(directCopy, direct)
		transitiveCopy = make([]*Set[T], len(transitive))
		copy(transitiveCopy, transitive)
	}

	return &Set[T]{
		preorder:   order == Preorder,
		reverse:    order == Topological,
		order:      order,
		direct:     directCopy,
		transitive: transitiveCopy,
	}
}

// Order reports the Order this Set was built with.
func (s *Set[T]) Order() Order {
	if s == nil {
		return Preorder
	}
	return s.order
}

// walk visits direct contents of every node in depth-first order, preorder
// or postorder according to s.preorder.
func (s *Set[T]) walk(visit func([]T)) {
	visited := make(map[*Set[T]]bool)

	var dfs func(s *Set[T])
	dfs = func(s *Set[T]) {
		visited[s] = true
		if s.preorder {
			visit(s.direct)
		}
		for _, dep := range s.transitive {
			if !visited[dep] {
				dfs(dep)
			}
		}
		if !s.preorder {
			visit(s.direct)
		}
	}

	dfs(s)
}

// ToList flattens the Set according to its Order, keeping only the first
// occurrence of each value.
func (s *Set[T]) ToList() []T {
	if s == nil {
		return nil
	}
	var list []T
	s.walk(func(direct []T) {
		list = append(list, direct...)
	})
	list = firstUnique(list)
	if s.reverse {
		reverseInPlace(list)
	}
	return list
}

func reversed[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i := range in {
		out[i] = in[len(in)-1-i]
	}
	return out
}

func reverseInPlace[T any](in []T) []T {
	for i, j := 0, len(in)-1; i < j; i, j = i+1, j-1 {
		in[i], in[j] = in[j], in[i]
	}
	return in
}

func reversedSets[T comparable](in []*Set[T]) []*Set[T] {
	out := make([]*Set[T], len(in))
	for i := range in {
		out[i] = in[len(in)-1-i]
	}
	return out
}

// firstUnique returns all unique elements of slice, keeping the first copy
// of each, without modifying the input. Mirrors the teacher's
// android.FirstUniqueStrings/firstUnique threshold trick (list-scan below a
// size, map-based above it).
func firstUnique[T comparable](slice []T) []T {
	cp := make([]T, len(slice))
	copy(cp, slice)
	if len(cp) > 128 {
		return firstUniqueMap(cp)
	}
	return firstUniqueList(cp)
}

func firstUniqueList[T comparable](in []T) []T {
	writeIndex := 0
outer:
	for readIndex := 0; readIndex < len(in); readIndex++ {
		for compareIndex := 0; compareIndex < writeIndex; compareIndex++ {
			if in[readIndex] == in[compareIndex] {
				continue outer
			}
		}
		if readIndex != writeIndex {
			in[writeIndex] = in[readIndex]
		}
		writeIndex++
	}
	return in[:writeIndex]
}

func firstUniqueMap[T comparable](in []T) []T {
	writeIndex := 0
	seen := make(map[T]bool, len(in))
	for readIndex := 0; readIndex < len(in); readIndex++ {
		if seen[in[readIndex]] {
			continue
		}
		seen[in[readIndex]] = true
		if readIndex != writeIndex {
			in[writeIndex] = in[readIndex]
		}
		writeIndex++
	}
	return in[:writeIndex]
}
