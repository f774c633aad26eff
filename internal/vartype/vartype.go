// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package vartype provides a generic value wrapper that tracks whether the
// value has been set. It distinguishes "zero" from "absent", which matters
// for computed distances: an unknown distance must never read as 0 meters.
package vartype

import "fmt"

// Variable holds a value together with its initialization state. The zero
// Variable is unset.
type Variable[T any] struct {
	value T
	isset bool
}

// NewVariable returns a Variable initialized with the given value.
func NewVariable[T any](value T) Variable[T] {
	return Variable[T]{
		isset: true,
		value: value,
	}
}

// Set assigns a value and marks the Variable as set.
func (v *Variable[T]) Set(val T) {
	v.value = val
	v.isset = true
}

// Reset clears the value and marks the Variable as unset.
func (v *Variable[T]) Reset() {
	var zero T
	v.value = zero
	v.isset = false
}

// Value returns the stored value. For an unset Variable it returns the zero
// value, callers that need to distinguish must check IsSet first.
func (v *Variable[T]) Value() T {
	return v.value
}

// IsSet reports whether a value has been assigned.
func (v *Variable[T]) IsSet() bool {
	return v.isset
}

// String renders the value, or a placeholder when unset.
func (v Variable[T]) String() string {
	if !v.isset {
		return "unset"
	}
	return fmt.Sprint(v.value)
}
