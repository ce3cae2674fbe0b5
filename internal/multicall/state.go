// Package multicall tracks the state of contract reads and settles them against a chain endpoint.
package multicall

import (
	"rentalScope/internal/contract"
)

// Status tags the lifecycle of a single read.
type Status int

const (
	StatusPending Status = iota
	StatusFailed
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFailed:
		return "failed"
	case StatusSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// CallState is the observed state of one read. Values is only set when Status is StatusSucceeded.
type CallState struct {
	Status Status
	Values []interface{}
	Err    error
}

func Pending() CallState { return CallState{Status: StatusPending} }

func Failed(err error) CallState { return CallState{Status: StatusFailed, Err: err} }

func Succeeded(values []interface{}) CallState {
	return CallState{Status: StatusSucceeded, Values: values}
}

func (s CallState) Loading() bool   { return s.Status == StatusPending }
func (s CallState) Failed() bool    { return s.Status == StatusFailed }
func (s CallState) Succeeded() bool { return s.Status == StatusSucceeded }

// Reader is a view over read states. Looking up a read that has never been seen issues it.
type Reader interface {
	// Call reads one method with one argument list.
	Call(h contract.Handle, method string, args ...interface{}) CallState
	// CallMany reads one method once per argument list, preserving order and length.
	// A nil argument list is an absent argument: its slot stays pending and nothing is issued.
	CallMany(h contract.Handle, method string, argSets [][]interface{}) []CallState
}
