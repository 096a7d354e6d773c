// Package state holds small generic containers shared by the tree builders.
package state

// Stack is a LIFO stack. The zero value is ready to use.
type Stack[T any] struct {
	items []T
}

// NewStack returns a stack with room for capacity items.
func NewStack[T any](capacity int) *Stack[T] {
	return &Stack[T]{items: make([]T, 0, max(capacity, 0))}
}

// Push adds value on top.
func (s *Stack[T]) Push(value T) {
	s.items = append(s.items, value)
}

// Pop removes and returns the top value.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	last := len(s.items) - 1
	value := s.items[last]
	s.items[last] = zero
	s.items = s.items[:last]
	return value, true
}

// Peek returns the top value without removing it.
func (s *Stack[T]) Peek() (T, bool) {
	var zero T
	if len(s.items) == 0 {
		return zero, false
	}
	return s.items[len(s.items)-1], true
}

// Len reports the depth.
func (s *Stack[T]) Len() int {
	return len(s.items)
}

// Items returns the stack in push order. The slice aliases internal storage.
func (s *Stack[T]) Items() []T {
	return s.items
}
