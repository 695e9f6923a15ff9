package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Result is the settled outcome of a call: either a value or an error.
type Result[T any] struct {
	Value T
	Err   error
}

// Await runs fn to completion and captures its outcome.
func Await[T any](fn func() (T, error)) Result[T] {
	v, err := fn()
	return Result[T]{Value: v, Err: err}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// RevertReason extracts the text a node reported for a failed call,
// including any revert data attached to the JSON-RPC error.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok && data != "" && !strings.Contains(msg, data) {
			msg += " " + data
		}
	}
	return msg
}

// ExpectRevert records on rec whether res failed with an error mentioning
// reason. A successful call, or a failure for another reason, is recorded
// as a failed assertion.
func ExpectRevert[T any](rec *Recorder, res Result[T], reason, msg string) bool {
	if res.Err == nil {
		return rec.Assert(false, msg, "no exception: "+msg)
	}
	got := RevertReason(res.Err)
	return rec.Assert(strings.Contains(got, reason), msg,
		fmt.Sprintf("incorrect exception: %s - %s", got, msg))
}
