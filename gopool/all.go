package gopool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Group runs funcs on their own goroutines and keeps the first error.
// The zero value is ready to use and has no limit.
type Group struct {
	g *errgroup.Group
}

// WithContext returns a Group whose context is canceled as soon as one
// func fails or Wait returns.
func WithContext(ctx context.Context) (*Group, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &Group{g: g}, ctx
}

func (s *Group) group() *errgroup.Group {
	if s.g == nil {
		s.g = new(errgroup.Group)
	}
	return s.g
}

// SetLimit caps the number of running funcs, a negative value means no limit.
// It must not be called while funcs are running.
func (s *Group) SetLimit(max int) {
	s.group().SetLimit(max)
}

// Go blocks while the limit is reached.
func (s *Group) Go(fn func() (e error)) {
	s.group().Go(fn)
}

func (s *Group) Wait() (e error) {
	return s.group().Wait()
}

func AllWithLimit(max int, fns ...func() (e error)) (e error) {
	var g Group
	g.SetLimit(max)
	for _, v := range fns {
		g.Go(v)
	}
	return g.Wait()
}

func All(fns ...func() (e error)) (e error) {
	return AllWithLimit(-1, fns...)
}
