// Package environment implements an immutable, ordered name-to-value mapping
// generic over its payload type.
package environment

import "errors"

// ErrNotBound is returned by Lookup when no binding matches.
var ErrNotBound = errors.New("name not found")

// Binding is one (name, value) pair.
type Binding[T any] struct {
	Name  string
	Value T
}

type frame[T any] struct {
	binding Binding[T]
	next    *frame[T]
}

// Environment is a persistent sequence of bindings. The zero value is the
// empty environment. Extend never modifies the receiver; the returned
// environment shares the receiver's bindings as its tail, so a snapshot
// taken at any point stays valid no matter how it is extended later.
type Environment[T any] struct {
	head *frame[T] // most recently added binding
	size int
}

// Empty returns an environment with no bindings.
func Empty[T any]() Environment[T] {
	return Environment[T]{}
}

// Extend returns a new environment with (name, v) appended.
func (e Environment[T]) Extend(name string, v T) Environment[T] {
	return Environment[T]{
		head: &frame[T]{binding: Binding[T]{Name: name, Value: v}, next: e.head},
		size: e.size + 1,
	}
}

// Lookup returns the value of the most recently added binding for name.
// Older bindings of the same name stay in the environment but are shadowed.
func (e Environment[T]) Lookup(name string) (T, error) {
	for f := e.head; f != nil; f = f.next {
		if f.binding.Name == name {
			return f.binding.Value, nil
		}
	}
	var zero T
	return zero, ErrNotBound
}

// Has reports whether name is bound.
func (e Environment[T]) Has(name string) bool {
	_, err := e.Lookup(name)
	return err == nil
}

// Len returns the number of physical bindings, shadowed ones included.
func (e Environment[T]) Len() int {
	return e.size
}

// Bindings returns every binding in insertion order.
func (e Environment[T]) Bindings() []Binding[T] {
	out := make([]Binding[T], e.size)
	i := e.size - 1
	for f := e.head; f != nil; f = f.next {
		out[i] = f.binding
		i--
	}
	return out
}

// Names returns the distinct visible names, most recent first.
func (e Environment[T]) Names() []string {
	seen := make(map[string]bool, e.size)
	var names []string
	for f := e.head; f != nil; f = f.next {
		if !seen[f.binding.Name] {
			seen[f.binding.Name] = true
			names = append(names, f.binding.Name)
		}
	}
	return names
}

// Map returns a new environment with every value transformed by f.
// Names, order and shadowed bindings are preserved.
func Map[T, U any](e Environment[T], f func(T) U) Environment[U] {
	out := Empty[U]()
	for _, b := range e.Bindings() {
		out = out.Extend(b.Name, f(b.Value))
	}
	return out
}

// FoldRight combines every value with the accumulator, starting from the
// last-added binding and ending with the first-added one.
func FoldRight[T, U any](e Environment[T], f func(U, T) U, init U) U {
	acc := init
	for fr := e.head; fr != nil; fr = fr.next {
		acc = f(acc, fr.binding.Value)
	}
	return acc
}
