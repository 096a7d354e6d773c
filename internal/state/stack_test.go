package state

import "testing"

func TestStackOrder(t *testing.T) {
	s := NewStack[string](2)
	s.Push("root")
	s.Push("child")
	if got, ok := s.Peek(); !ok || got != "child" {
		t.Fatalf("Peek() = %q, %v, want child", got, ok)
	}
	if got := s.Items(); len(got) != 2 || got[0] != "root" {
		t.Fatalf("Items() = %v", got)
	}
	if got, _ := s.Pop(); got != "child" {
		t.Fatalf("Pop() = %q, want child", got)
	}
	if got, _ := s.Pop(); got != "root" {
		t.Fatalf("Pop() = %q, want root", got)
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("Pop() on empty stack ok = true")
	}
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
}

func TestStackZeroValue(t *testing.T) {
	var s Stack[int]
	if _, ok := s.Peek(); ok {
		t.Fatalf("Peek() on zero stack ok = true")
	}
	s.Push(1)
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
}
