// Package failfast turns broken preconditions into immediate panics and lets
// an API boundary convert them back into errors.
package failfast

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/debug"
)

// Violation is the panic value raised by this package
type Violation struct {
	Err   error
	Stack []byte
}

func (v *Violation) Error() string {
	return "fail-fast: " + v.Err.Error()
}

func (v *Violation) Unwrap() error {
	return v.Err
}

func fail(err error) {
	panic(&Violation{Err: err, Stack: debug.Stack()})
}

// Err panics if err != nil
func Err(err error) {
	if err != nil {
		fail(err)
	}
}

// If panics with the formatted message if condition is false
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		fail(fmt.Errorf(message, args...))
	}
}

// NotNil panics if v is nil, including typed nil pointers, maps, funcs and
// interfaces holding them
func NotNil(v interface{}, name string) {
	if v == nil {
		fail(fmt.Errorf("%s is nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			fail(fmt.Errorf("%s is nil", name))
		}
	}
}

// Recover stores a Violation raised in the current function in *errp.
// Other panics propagate. Use as: defer failfast.Recover(&err)
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if v, ok := r.(*Violation); ok {
		if errp != nil {
			*errp = v
		}
		return
	}
	panic(r)
}

// IsViolation reports whether err is or wraps a Violation
func IsViolation(err error) bool {
	var v *Violation
	return errors.As(err, &v)
}
