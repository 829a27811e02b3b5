package set

import (
	"github.com/denismitr/dll"
)

// OrderedSet is a deduplicated collection that remembers the insertion
// order of its items. Equality between sets ignores order.
type OrderedSet[T comparable] struct {
	m    map[T]*dll.Element[T]
	list *dll.DoublyLinkedList[T]
}

func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{
		m:    make(map[T]*dll.Element[T]),
		list: dll.New[T](),
	}
}

func FromItems[T comparable](items []T) *OrderedSet[T] {
	s := NewOrderedSet[T]()
	for _, item := range items {
		s.Insert(item)
	}
	return s
}

func (s *OrderedSet[T]) Insert(item T) (modified bool) {
	if _, found := s.m[item]; !found {
		newEl := dll.NewElement(item)
		s.m[item] = newEl
		s.list.PushTail(newEl)
		modified = true
	}
	return modified
}

func (s *OrderedSet[T]) Remove(item T) bool {
	if el, found := s.m[item]; found {
		delete(s.m, el.Value())
		s.list.Remove(el)
		return true
	}
	return false
}

func (s *OrderedSet[T]) Clear() {
	s.m = make(map[T]*dll.Element[T])
	s.list = dll.New[T]()
}

func (s *OrderedSet[T]) Has(item T) bool {
	_, found := s.m[item]
	return found
}

func (s *OrderedSet[T]) Len() int {
	return len(s.m)
}

// Items returns the set contents in insertion order.
func (s *OrderedSet[T]) Items() []T {
	items := make([]T, 0, len(s.m))
	curr := s.list.Head()
	for curr != nil {
		items = append(items, curr.Value())
		curr = curr.Next()
	}
	return items
}

func (s *OrderedSet[T]) Clone() *OrderedSet[T] {
	return FromItems(s.Items())
}

// Equal reports membership equality irrespective of insertion order.
func (s *OrderedSet[T]) Equal(other *OrderedSet[T]) bool {
	if other == nil || len(s.m) != len(other.m) {
		return false
	}
	for item := range s.m {
		if _, found := other.m[item]; !found {
			return false
		}
	}
	return true
}

// Intersect keeps the receiver's order for items present in both sets.
func (s *OrderedSet[T]) Intersect(other *OrderedSet[T]) *OrderedSet[T] {
	out := NewOrderedSet[T]()
	for _, item := range s.Items() {
		if other.Has(item) {
			out.Insert(item)
		}
	}
	return out
}

// Union lists the receiver's items first, then items only in other, each
// in their original order.
func (s *OrderedSet[T]) Union(other *OrderedSet[T]) *OrderedSet[T] {
	out := s.Clone()
	for _, item := range other.Items() {
		out.Insert(item)
	}
	return out
}

// SymmetricDifference keeps items present in exactly one of the sets.
func (s *OrderedSet[T]) SymmetricDifference(other *OrderedSet[T]) *OrderedSet[T] {
	out := NewOrderedSet[T]()
	for _, item := range s.Items() {
		if !other.Has(item) {
			out.Insert(item)
		}
	}
	for _, item := range other.Items() {
		if !s.Has(item) {
			out.Insert(item)
		}
	}
	return out
}

// Difference keeps the receiver's items that are absent from other.
func (s *OrderedSet[T]) Difference(other *OrderedSet[T]) *OrderedSet[T] {
	out := NewOrderedSet[T]()
	for _, item := range s.Items() {
		if !other.Has(item) {
			out.Insert(item)
		}
	}
	return out
}
