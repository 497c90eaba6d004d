/*
 * Copyright 2020 Guardtime, Inc.
 *
 * This file is part of the Guardtime client SDK.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 * "Guardtime" and "KSI" are trademarks or registered trademarks of
 * Guardtime, Inc., and no license to trademarks is granted; Guardtime
 * reserves and retains all trademark rights.
 */

// Package errors implements the KSI error type.
//
// Every error returned by the packages of this module is a *KsiError carrying an ErrorCode, an optional list of
// descriptive messages (innermost first) and optionally the low-level error that caused it.
package errors

import (
	"fmt"
	"runtime"
	"strings"
)

// KsiError is the error type returned by this module.
type KsiError struct {
	code       ErrorCode
	messages   []string
	cause      error
	causeCode  int
	errorStack string
}

// New construct a new KsiError.
func New(code ErrorCode) *KsiError {
	return &KsiError{
		code:       code,
		errorStack: stack(),
	}
}

// KsiErr wraps the provided error into KsiError, if the input is not KsiError. By default the error code is set to
// KsiExternalError. In case the 'err' parameter is of type KsiError, the original error is returned without any
// modification.
//
// Optionally an error code can be provided, which will be applied in case of external error. Note, despite the fact
// that 'code' parameter is a variadic value, only one error code should be provided.
func KsiErr(err error, code ...ErrorCode) *KsiError {
	if err == nil {
		return nil
	}

	errCode := KsiExternalError
	if len(code) != 0 {
		errCode = code[0]
	}

	ksiErr, ok := err.(*KsiError)
	if !ok {
		ksiErr = New(errCode).SetExtError(err)
	}
	return ksiErr
}

// CodeOf returns the error code of err, if it is a KsiError. For any other non-nil error KsiExternalError is returned.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return KsiNoError
	}
	if e, ok := err.(*KsiError); ok {
		return e.Code()
	}
	return KsiExternalError
}

func stack() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// Error implements error interface.
func (e *KsiError) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%04x/%d] %s.\n", uint16(e.code), e.causeCode, e.code)

	if len(e.messages) > 0 {
		b.WriteString("Error message:")
		for i := len(e.messages); i > 0; i-- {
			fmt.Fprintf(&b, "\n  %d: %s", i, e.messages[i-1])
		}
		b.WriteString("\n")
	}
	if e.cause != nil {
		fmt.Fprintf(&b, "Extended error: %s\n", e.cause)
	}
	return b.String()
}

// AppendMessage allows to add an additional descriptive message to the error.
// Returns an updated reference of the receiver KsiError.
func (e *KsiError) AppendMessage(msg string) *KsiError {
	if e == nil {
		return nil
	}
	e.messages = append(e.messages, msg)
	return e
}

// SetExtError allows to set an additional low-level error.
// Returns an updated reference of the receiver KsiError.
func (e *KsiError) SetExtError(err error) *KsiError {
	if e == nil {
		return nil
	}
	e.cause = err
	return e
}

// SetExtErrorCode allows to set an additional low-level error code.
// Returns an updated reference of the receiver KsiError.
func (e *KsiError) SetExtErrorCode(c int) *KsiError {
	if e == nil {
		return nil
	}
	e.causeCode = c
	return e
}

// Code returns the error code.
func (e *KsiError) Code() ErrorCode {
	if e == nil {
		return KsiNoError
	}
	return e.code
}

// Stack returns the stack trace where the error occurred.
func (e *KsiError) Stack() string {
	if e == nil {
		return ""
	}
	return e.errorStack
}

// ExtCode returns extended error code.
func (e *KsiError) ExtCode() int {
	if e == nil {
		return 0
	}
	return e.causeCode
}

// ExtError returns extended error.
func (e *KsiError) ExtError() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Message returns additional appended messages.
func (e *KsiError) Message() []string {
	if e == nil {
		return nil
	}
	return e.messages
}

// Unwrap returns the extended error, making KsiError usable with the standard library errors.Is and errors.As.
func (e *KsiError) Unwrap() error {
	return e.ExtError()
}

// Is reports whether target is a KsiError with the same error code.
func (e *KsiError) Is(target error) bool {
	t, ok := target.(*KsiError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code
}
