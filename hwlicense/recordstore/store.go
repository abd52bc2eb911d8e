// Package recordstore provides interfaces and implementations for persisting
// license records: one document per license key holding its hardware binding,
// validity duration, and activation date.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrEmptyValue is returned when a conditional update would write an empty
// value, which no store treats as a valid binding or date.
var ErrEmptyValue = errors.New("empty value")

// DateLayout is the ISO-8601 calendar date format used for activation dates
// on the wire and in every backend.
const DateLayout = "2006-01-02"

// Field names a record attribute that can be set exactly once.
type Field int

const (
	// FieldHWID is empty while the record holds an explicit empty string.
	// An absent hwid is not empty: unrestricted keys are never bound.
	FieldHWID Field = iota
	// FieldActivationDate is empty while the record has no activation date.
	FieldActivationDate
)

func (f Field) String() string {
	switch f {
	case FieldHWID:
		return "hwid"
	case FieldActivationDate:
		return "activation_date"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// BindingState is the state of a record's hardware binding.
type BindingState int

const (
	// BindingUnrestricted means the hwid attribute is absent: the key is not
	// tied to any machine and binding checks are skipped.
	BindingUnrestricted BindingState = iota
	// BindingOpen means the hwid attribute is the empty string: the first
	// machine to validate the key claims it.
	BindingOpen
	// BindingBound means the key belongs to exactly one machine.
	BindingBound
)

func (s BindingState) String() string {
	switch s {
	case BindingUnrestricted:
		return "unrestricted"
	case BindingOpen:
		return "open"
	case BindingBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Binding is the hardware binding of a license record. HWID is only
// meaningful when State is BindingBound.
type Binding struct {
	State BindingState
	HWID  string
}

// Unrestricted returns a binding for a record without an hwid attribute.
func Unrestricted() Binding { return Binding{State: BindingUnrestricted} }

// Open returns a binding awaiting its first machine.
func Open() Binding { return Binding{State: BindingOpen} }

// BoundTo returns a binding to hwid. An empty hwid yields an open binding.
func BoundTo(hwid string) Binding {
	if hwid == "" {
		return Open()
	}
	return Binding{State: BindingBound, HWID: hwid}
}

// BindingFromWire maps a nullable stored hwid to its binding state.
func BindingFromWire(hwid *string) Binding {
	if hwid == nil {
		return Unrestricted()
	}
	return BoundTo(*hwid)
}

// Wire returns the nullable stored form of the binding.
func (b Binding) Wire() *string {
	switch b.State {
	case BindingOpen:
		s := ""
		return &s
	case BindingBound:
		s := b.HWID
		return &s
	default:
		return nil
	}
}

// Record is a license record as seen by the validator.
type Record struct {
	Key            string
	HWID           Binding
	DurationDays   *int       // nil when the attribute is absent
	ActivationDate *time.Time // calendar date at UTC midnight, nil when unset
}

// RecordStore persists license records keyed by their unique license key.
type RecordStore interface {
	// Find returns the record for key, or (nil, nil) if none exists.
	Find(ctx context.Context, key string) (*Record, error)

	// UpdateIfFieldEmpty atomically sets field to value on the record for
	// key, but only while the field is empty. It reports whether this call
	// performed the write. Activation dates are passed in DateLayout.
	UpdateIfFieldEmpty(ctx context.Context, key string, field Field, value string) (bool, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}

// ParseDate parses an activation date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders the calendar date of t in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
