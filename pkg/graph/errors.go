package graph

import (
	"errors"
	"fmt"
)

// Negotiation and usage errors.
var (
	ErrNegotiation        = errors.New("stream negotiation failed")
	ErrDuplicateStream    = errors.New("duplicate stream")
	ErrStreamNotFound     = errors.New("stream not found")
	ErrStreamRemoved      = errors.New("ancestor stream removed")
	ErrNotPrepared        = errors.New("unit not prepared")
	ErrNotRoot            = errors.New("unit is not a root")
	ErrFeedbackTarget     = errors.New("invalid feedback target")
	ErrUnregisteredSender = errors.New("unregistered pool sender")
)

// fatalError marks panic values that run entry points turn into errors.
type fatalError interface {
	error
	fatal()
}

// ContractError reports a FrameSet whose length does not match the number
// of streams its unit declared.
type ContractError struct {
	Unit     string
	UnitType string
	Phase    string // ProcessFrame, PostProcess or Emit
	Declared int
	Got      int
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("unit %s of type %s: %d streams declared in OpenStreams, but %s returned a FrameSet of %d",
		e.Unit, e.UnitType, e.Declared, e.Phase, e.Got)
}

func (*ContractError) fatal() {}

// PoolError reports misuse of a Pool, such as a call from an unregistered sender.
type PoolError struct {
	Pool string
	Op   string
	Err  error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("pool %s: %s: %v", e.Pool, e.Op, e.Err)
}

func (e *PoolError) Unwrap() error { return e.Err }

func (*PoolError) fatal() {}

// catchFatal must be deferred directly. It stores a recovered fatal value in
// *err and re-panics with anything else.
func catchFatal(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if fe, ok := r.(fatalError); ok {
		*err = fe
		return
	}
	panic(r)
}

// IsFatal reports whether err is a contract violation or pool misuse.
func IsFatal(err error) bool {
	var fe fatalError
	return errors.As(err, &fe)
}
