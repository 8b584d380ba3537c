package tree

import (
	"fmt"
	"reflect"
)

// Variable is a node-scoped state cell, as seen by inspection and snapshot code.
type Variable interface {
	Name() string
	Value() any
	// SetValue assigns a boxed value, failing if it is not of the variable's type.
	SetValue(value any) error
	Type() reflect.Type

	initialize()
	accepts(value any) bool
}

// Var is a typed node variable. Its initializer runs every time the owning
// node is enabled (started from StatusNone), and never on re-entry, so values
// survive re-entry but not a full reset.
//
// A Var may be captured by the closures of descendant nodes, which then share
// it; siblings that each declare their own Var do not.
type Var[T any] struct {
	name  string
	init  func() T
	value T
}

// NewVar declares a variable on n. init may be nil, in which case the variable
// starts at the zero value of T.
func NewVar[T any](n *Node, name string, init func() T) *Var[T] {
	v := &Var[T]{name: name, init: init}
	n.vars = append(n.vars, v)
	return v
}

// Get returns the current value.
func (v *Var[T]) Get() T { return v.value }

// Set replaces the current value.
func (v *Var[T]) Set(value T) { v.value = value }

func (v *Var[T]) Name() string { return v.name }

func (v *Var[T]) Value() any { return v.value }

func (v *Var[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

func (v *Var[T]) SetValue(value any) error {
	if !v.accepts(value) {
		return fmt.Errorf("tree: variable %q: cannot assign %T to %s", v.name, value, v.Type())
	}
	if value == nil {
		var zero T
		v.value = zero
		return nil
	}
	v.value = value.(T)
	return nil
}

func (v *Var[T]) accepts(value any) bool {
	if value == nil {
		switch v.Type().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return true
		default:
			return false
		}
	}
	_, ok := value.(T)
	return ok
}

func (v *Var[T]) initialize() {
	if v.init == nil {
		var zero T
		v.value = zero
		return
	}
	v.value = v.init()
}

func (v *Var[T]) String() string {
	return fmt.Sprintf("%s=%v", v.name, v.value)
}

// cloneValue copies slices and maps so a captured value does not alias the
// live one. Other values are returned as is.
func cloneValue(value any) any {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return value
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		reflect.Copy(out, rv)
		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return value
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), iter.Value())
		}
		return out.Interface()
	default:
		return value
	}
}
