// This module implements functions which manipulate errors and provide stack
// trace information.
//
// NOTE: This package intentionally mirrors the standard "errors" module.
// All redpool code should use this.
package errors

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
)

// This interface exposes additional information about the error.
type StackError interface {
	// This returns the error message without the stack trace.
	GetMessage() string

	// This returns the wrapped error.  This returns nil if this does not wrap
	// another error.
	GetInner() error

	// Implements the built-in error interface.
	Error() string

	// Returns stack frames.
	StackFrames() []StackFrame

	// Returns string representation of stack frames.
	// It is discouraged to parse the result since the format can change at
	// any time.  Use StackFrames() to get actual stack frame metadata.
	GetStack() string
}

// Represents a single stack frame.
type StackFrame struct {
	PC         uintptr
	Func       *runtime.Func
	FuncName   string
	File       string
	LineNumber int
}

// Standard struct for general types of errors.
type baseError struct {
	msg   string
	inner error

	stack       []uintptr
	framesOnce  sync.Once
	stackFrames []StackFrame
}

// This returns a string with all available error information, including inner
// errors that are wrapped by this error.
func (e *baseError) Error() string {
	return extractFullErrorMessage(e, true)
}

// Implements StackError interface.
func (e *baseError) GetMessage() string {
	return e.msg
}

// Implements StackError interface.
func (e *baseError) GetInner() error {
	return e.inner
}

// Implements StackError interface.
func (e *baseError) StackFrames() []StackFrame {
	e.framesOnce.Do(func() {
		e.stackFrames = make([]StackFrame, 0, len(e.stack))
		if len(e.stack) == 0 {
			return
		}
		// CallersFrames expands inlined calls, so each logical frame is
		// reported under its own function name.
		frames := runtime.CallersFrames(e.stack)
		for {
			frame, more := frames.Next()
			e.stackFrames = append(e.stackFrames, StackFrame{
				PC:         frame.PC,
				Func:       frame.Func,
				FuncName:   frame.Function,
				File:       frame.File,
				LineNumber: frame.Line,
			})
			if !more {
				break
			}
		}
	})
	return e.stackFrames
}

// Implements StackError interface.
func (e *baseError) GetStack() string {
	stackFrames := e.StackFrames()
	buf := bytes.NewBuffer(make([]byte, 0, 256))
	for _, frame := range stackFrames {
		_, _ = buf.WriteString(frame.FuncName)
		_, _ = buf.WriteString("\n")
		fmt.Fprintf(buf, "\t%s:%d +0x%x\n",
			frame.File, frame.LineNumber, frame.PC)
	}
	return buf.String()
}

// This returns a new baseError initialized with the given message and
// the current stack trace.
func New(msg string) StackError {
	return newBaseError(nil, msg)
}

// Same as New, but with fmt.Printf-style parameters.
func Newf(format string, args ...interface{}) StackError {
	return newBaseError(nil, fmt.Sprintf(format, args...))
}

// Wraps another error in a new baseError.
func Wrap(err error, msg string) StackError {
	return newBaseError(err, msg)
}

// Same as Wrap, but with fmt.Printf-style parameters.
func Wrapf(err error, format string, args ...interface{}) StackError {
	return newBaseError(err, fmt.Sprintf(format, args...))
}

// Internal helper function to create new baseError objects.  Note that if
// there is more than one level of redirection to call this function, stack
// frame information will include that level too.
func newBaseError(err error, msg string) *baseError {
	stack := make([]uintptr, 200)
	stackLength := runtime.Callers(3, stack)
	return &baseError{
		msg:   msg,
		stack: stack[:stackLength],
		inner: err,
	}
}

// Constructs full error message for a given StackError by traversing
// all of its inner errors.  If includeStack is true it will also include
// stack trace from the deepest StackError in the chain.
func extractFullErrorMessage(e StackError, includeStack bool) string {
	var ok bool
	var lastStackErr StackError
	errMsg := bytes.NewBuffer(make([]byte, 0, 1024))

	stackErr := e
	for {
		lastStackErr = stackErr
		errMsg.WriteString(stackErr.GetMessage())

		innerErr := stackErr.GetInner()
		if innerErr == nil {
			break
		}
		stackErr, ok = innerErr.(StackError)
		if !ok {
			// We have reached the end and traversed all inner errors.
			// Add last message and exit loop.
			errMsg.WriteString("\n")
			errMsg.WriteString(innerErr.Error())
			break
		}
		errMsg.WriteString("\n")
	}
	if includeStack {
		errMsg.WriteString("\nORIGINAL STACK TRACE:\n")
		errMsg.WriteString(lastStackErr.GetStack())
	}
	return errMsg.String()
}

// Keep peeling away layers of context until a primitive error is revealed.
func RootError(ierr error) error {
	nerr := ierr
	for i := 0; i < 20; i++ {
		stackErr, ok := nerr.(StackError)
		if !ok {
			return nerr
		}
		inner := stackErr.GetInner()
		if inner == nil {
			return nerr
		}
		nerr = inner
	}
	return fmt.Errorf("too many iterations: %T", nerr)
}

// Perform a deep check, unwrapping errors as much as possible and
// comparing the string version of the error.
func IsError(err, errConst error) bool {
	if err == errConst {
		return true
	}
	// Must rely on string equivalence, otherwise a value is not equal
	// to its pointer value.
	rootErrStr := ""
	rootErr := RootError(err)
	if rootErr != nil {
		rootErrStr = rootErr.Error()
	}
	errConstStr := ""
	if errConst != nil {
		errConstStr = errConst.Error()
	}
	return rootErrStr == errConstStr
}
