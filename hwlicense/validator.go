package hwlicense

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/CloudNativeWorks/hwlicense/hwlicense/recordstore"
)

// ErrInvalidInput is returned when the key or hardware id is empty.
var ErrInvalidInput = errors.New("key and hwid are required")

// Validator decides whether a license key may be used on a machine.
// It holds no state of its own; every decision reads the record store and
// the only writes are the one-time hwid binding and activation stamp.
type Validator struct {
	store recordstore.RecordStore
	log   *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLogger sets the logger for validation decisions. Default: discard.
func WithLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.log = l
	}
}

// NewValidator creates a Validator backed by store.
func NewValidator(store recordstore.RecordStore, opts ...ValidatorOption) *Validator {
	v := &Validator{
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks key for the machine identified by hwid as of the calendar
// date of today. The checks run in order and stop at the first failure:
//  1. The record must exist (ErrLicenseNotFound).
//  2. The hardware binding must allow hwid (ErrHardwareMismatch). An open
//     binding is claimed by hwid; an unrestricted record skips this step.
//  3. Permanent keys are valid without further checks.
//  4. A trial key without an activation date is activated today.
//  5. The trial window must not have elapsed (*ExpiredError).
//
// Store failures are returned wrapped and match none of the sentinels.
func (v *Validator) Validate(ctx context.Context, key, hwid string, today time.Time) (*Outcome, error) {
	if key == "" || hwid == "" {
		return nil, ErrInvalidInput
	}
	today = Day(today)
	log := v.log.With("key", key)

	rec, err := v.find(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := v.checkBinding(ctx, log, rec, hwid); err != nil {
		return nil, err
	}

	duration := EffectiveDuration(rec)
	if duration >= PermanentThresholdDays {
		log.Info("permanent license valid")
		return &Outcome{KeyType: KeyTypePermanent}, nil
	}

	activation, err := v.activate(ctx, log, rec, today)
	if err != nil {
		return nil, err
	}

	daysPassed := DaysBetween(activation, today)
	expiration := activation.AddDate(0, 0, duration)
	if daysPassed > duration {
		log.Info("license expired", "days_passed", daysPassed, "expiration_date", recordstore.FormatDate(expiration))
		return nil, &ExpiredError{ExpirationDate: expiration}
	}

	remaining := duration - daysPassed
	log.Info("trial license valid", "days_remaining", remaining)
	return &Outcome{
		KeyType:        KeyTypeTrial,
		DaysRemaining:  &remaining,
		ActivationDate: &activation,
		ExpirationDate: &expiration,
	}, nil
}

func (v *Validator) find(ctx context.Context, key string) (*recordstore.Record, error) {
	rec, err := v.store.Find(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup license: %w", err)
	}
	if rec == nil {
		return nil, ErrLicenseNotFound
	}
	return rec, nil
}

func (v *Validator) checkBinding(ctx context.Context, log *slog.Logger, rec *recordstore.Record, hwid string) error {
	switch rec.HWID.State {
	case recordstore.BindingUnrestricted:
		log.Warn("license has no hwid attribute, skipping hardware check")
		return nil
	case recordstore.BindingBound:
		if rec.HWID.HWID != hwid {
			log.Info("hwid mismatch")
			log.Debug("hwid mismatch detail", "bound", rec.HWID.HWID, "presented", hwid)
			return ErrHardwareMismatch
		}
		return nil
	}

	bound, err := v.store.UpdateIfFieldEmpty(ctx, rec.Key, recordstore.FieldHWID, hwid)
	if err != nil {
		return fmt.Errorf("bind hwid: %w", err)
	}
	if bound {
		log.Info("bound license to machine")
		log.Debug("bound hwid", "hwid", hwid)
		return nil
	}

	// Another request bound the key first; its hwid wins.
	fresh, err := v.find(ctx, rec.Key)
	if err != nil {
		return err
	}
	if fresh.HWID.State != recordstore.BindingBound {
		return fmt.Errorf("bind hwid: record %q left %s after conditional update", rec.Key, fresh.HWID.State)
	}
	if fresh.HWID.HWID != hwid {
		log.Info("hwid mismatch after concurrent binding")
		return ErrHardwareMismatch
	}
	return nil
}

func (v *Validator) activate(ctx context.Context, log *slog.Logger, rec *recordstore.Record, today time.Time) (time.Time, error) {
	if rec.ActivationDate != nil {
		return Day(*rec.ActivationDate), nil
	}

	stamped, err := v.store.UpdateIfFieldEmpty(ctx, rec.Key, recordstore.FieldActivationDate, recordstore.FormatDate(today))
	if err != nil {
		return time.Time{}, fmt.Errorf("stamp activation date: %w", err)
	}
	if stamped {
		log.Info("first activation", "duration_days", EffectiveDuration(rec))
		return today, nil
	}

	// A concurrent request stamped the date first; use the stored value.
	fresh, err := v.find(ctx, rec.Key)
	if err != nil {
		return time.Time{}, err
	}
	if fresh.ActivationDate == nil {
		return time.Time{}, fmt.Errorf("stamp activation date: record %q still unset after conditional update", rec.Key)
	}
	return Day(*fresh.ActivationDate), nil
}

// EffectiveDuration returns the record's duration in days, applying
// DefaultDurationDays when the attribute is absent.
func EffectiveDuration(rec *recordstore.Record) int {
	if rec.DurationDays == nil {
		return DefaultDurationDays
	}
	return *rec.DurationDays
}

// Day returns the calendar date of t (in t's location) as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of days from a to b. Both must be
// values returned by Day.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
