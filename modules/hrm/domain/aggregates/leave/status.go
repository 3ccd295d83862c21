package leave

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Status is the approval state of a leave or CCL request.
type Status string

const (
	StatusPending        Status = "Pending"
	StatusForwardedByHOD Status = "Forwarded by HOD"
	StatusForwardedToHR  Status = "Forwarded to HR"
	StatusApproved       Status = "Approved"
	StatusRejected       Status = "Rejected"
)

var (
	ErrUnknownStatus     = errors.New("unknown leave status")
	ErrIllegalTransition = errors.New("illegal leave status transition")
)

var statuses = []Status{
	StatusPending,
	StatusForwardedByHOD,
	StatusForwardedToHR,
	StatusApproved,
	StatusRejected,
}

// next lists the forward step of each non-terminal status. Rejection is legal from all of them.
var next = map[Status]Status{
	StatusPending:        StatusForwardedByHOD,
	StatusForwardedByHOD: StatusForwardedToHR,
	StatusForwardedToHR:  StatusApproved,
}

func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

// ParseStatus accepts the display strings case-insensitively and ignoring surrounding space.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) CanTransition(to Status) bool {
	if !s.Valid() || s.IsTerminal() {
		return false
	}
	if to == StatusRejected {
		return true
	}
	return next[s] == to
}

// Transition returns to when the move from s is legal.
func (s Status) Transition(to Status) (Status, error) {
	if !to.Valid() {
		return s, fmt.Errorf("%w: %q", ErrUnknownStatus, string(to))
	}
	if !s.CanTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s, to)
	}
	return to, nil
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, string(s))
	}
	return []byte(s), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// RequestKind separates ordinary casual leave from compensatory leave earned by extra work.
type RequestKind string

const (
	KindCL  RequestKind = "CL"
	KindCCL RequestKind = "CCL"
)

func ParseRequestKind(s string) (RequestKind, error) {
	switch RequestKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindCL:
		return KindCL, nil
	case KindCCL:
		return KindCCL, nil
	}
	return "", errors.Errorf("unknown leave request kind %q", s)
}

// Request is the state a leave or CCL request carries through the approval chain.
type Request struct {
	Kind   RequestKind `json:"kind"`
	Status Status      `json:"status"`
	Days   float64     `json:"days"`
}

func NewRequest(kind RequestKind, days float64) Request {
	return Request{Kind: kind, Status: StatusPending, Days: days}
}

// Advance moves r to the next approval step.
func (r Request) Advance() (Request, error) {
	to, ok := next[r.Status]
	if !ok {
		return r, fmt.Errorf("%w: %s has no next step", ErrIllegalTransition, r.Status)
	}
	st, err := r.Status.Transition(to)
	if err != nil {
		return r, err
	}
	r.Status = st
	return r, nil
}

func (r Request) Reject() (Request, error) {
	st, err := r.Status.Transition(StatusRejected)
	if err != nil {
		return r, err
	}
	r.Status = st
	return r, nil
}
