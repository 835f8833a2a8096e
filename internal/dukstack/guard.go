// Copyright 2025 The duk Authors
// SPDX-License-Identifier: MIT

package dukstack

// Guard restores the stack height recorded when it was created.
// The usual pattern is:
//
//	g := s.Guard()
//	defer g.Release()
//
// Because Release is deferred, the height is restored
// on both error returns and panics.
type Guard struct {
	s      *Stack
	height int
}

// Guard records the current stack height.
func (s *Stack) Guard() *Guard {
	return &Guard{s: s, height: s.Top()}
}

// Height returns the height Release will restore.
func (g *Guard) Height() int {
	return g.height
}

// Push records that the caller intends to leave one more value on the stack
// after Release.
func (g *Guard) Push() {
	g.height++
}

// Pop records that the caller consumed one value that was on the stack
// when the guard was created.
func (g *Guard) Pop() {
	if g.height == 0 {
		panic("dukstack: guard height underflow")
	}
	g.height--
}

// Release pops values until the stack is at the recorded height.
// Release never pushes: if the stack is already at or below the height,
// it is left alone.
func (g *Guard) Release() {
	if g.s.Closed() {
		return
	}
	if n := g.s.Top() - g.height; n > 0 {
		g.s.PopN(n)
	}
}
