// Copyright 2025 Netsort Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package nserr

import (
	"context"
	"fmt"
)

// Error codes. All of them are fatal for a run: the sort has no meaningful
// partial result, so callers abort the whole process group on any of these.
const (
	Ok uint16 = 0

	// Group 1: internal errors
	ErrInternal uint16 = 20101
	ErrOOM      uint16 = 20103

	// Group 2: configuration and input
	ErrBadConfig    uint16 = 20200
	ErrInvalidInput uint16 = 20201

	// Group 3: protocol invariant violations
	ErrSizeNotMatch   uint16 = 20300
	ErrSeqNotMatch    uint16 = 20301
	ErrRankOutOfRange uint16 = 20302

	// Group 4: transport
	ErrTransportClosed      uint16 = 20400
	ErrBackendCannotConnect uint16 = 20401
	ErrUnexpectedEOF        uint16 = 20402

	// ErrEnd, the max value of a netsort error code
	ErrEnd uint16 = 65535
)

var errorMsgRefer = map[uint16]string{
	// Group 1: internal errors
	ErrInternal: "internal error: %s",
	ErrOOM:      "out of memory: rank %d allocating %d elements",

	// Group 2: configuration and input
	ErrBadConfig:    "invalid configuration: %s",
	ErrInvalidInput: "invalid input: %s",

	// Group 3: protocol invariant violations
	ErrSizeNotMatch:   "partition size does not match: expected %d elements, got %d",
	ErrSeqNotMatch:    "exchange sequence does not match: expected %d, got %d",
	ErrRankOutOfRange: "rank %d out of range [0, %d)",

	// Group 4: transport
	ErrTransportClosed:      "transport closed",
	ErrBackendCannotConnect: "can not connect to rank %d at %s: %s",
	ErrUnexpectedEOF:        "unexpected end of stream from rank %d",

	ErrEnd: "internal error: end of error code",
}

func newError(ctx context.Context, code uint16, args ...any) *Error {
	format, has := errorMsgRefer[code]
	if !has {
		panic(NewInternalError(ctx, "not exist netsort error code: %d", code))
	}
	if len(args) == 0 {
		return &Error{code: code, message: format}
	}
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Error is the uniform error type of netsort. Every error carries a numeric
// code so that callers can classify without string matching.
type Error struct {
	code    uint16
	message string
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) ErrorCode() uint16 {
	return e.code
}

// IsNSErrCode reports whether e is a netsort error with the given code.
func IsNSErrCode(e error, rc uint16) bool {
	if e == nil {
		return rc == Ok
	}
	me, ok := e.(*Error)
	if !ok {
		return false
	}
	return me.code == rc
}

// ConvertGoError converts a go error into a netsort error. Already converted
// errors are returned as is.
func ConvertGoError(ctx context.Context, err error) error {
	if err == nil {
		return err
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	return NewInternalError(ctx, "%v", err)
}

func NewInternalError(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInternal, xmsg)
}

func NewOOM(ctx context.Context, rank, size int) *Error {
	return newError(ctx, ErrOOM, rank, size)
}

func NewBadConfig(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrBadConfig, xmsg)
}

func NewInvalidInput(ctx context.Context, msg string, args ...any) *Error {
	xmsg := fmt.Sprintf(msg, args...)
	return newError(ctx, ErrInvalidInput, xmsg)
}

func NewSizeNotMatch(ctx context.Context, expected, got int) *Error {
	return newError(ctx, ErrSizeNotMatch, expected, got)
}

func NewSeqNotMatch(ctx context.Context, expected, got uint32) *Error {
	return newError(ctx, ErrSeqNotMatch, expected, got)
}

func NewRankOutOfRange(ctx context.Context, rank, procs int) *Error {
	return newError(ctx, ErrRankOutOfRange, rank, procs)
}

func NewTransportClosed(ctx context.Context) *Error {
	return newError(ctx, ErrTransportClosed)
}

func NewBackendCannotConnect(ctx context.Context, rank int, addr string, cause error) *Error {
	return newError(ctx, ErrBackendCannotConnect, rank, addr, cause)
}

func NewUnexpectedEOF(ctx context.Context, rank int) *Error {
	return newError(ctx, ErrUnexpectedEOF, rank)
}
