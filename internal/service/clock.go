package service

import "time"

// Clock supplies the current time. Injected so that date-sensitive rules
// (late fees, overdue derivation) are testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a Clock backed by time.Now.
func NewRealClock() Clock { return realClock{} }
