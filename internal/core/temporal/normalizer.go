// Package temporal parses, renders and compares DATE and TIMESTAMP values
// in a single server timezone.
package temporal

import (
	"strings"
	"time"

	"metaprops/internal/core/apperror"
)

// Canonical storage layouts.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05 -0700"
)

type inputLayout struct {
	format  string
	hasTime bool
	hasZone bool
}

// Accepted inputs, most specific first. Fractional seconds are accepted by
// time.Parse after the seconds field even when the layout omits them.
var inputLayouts = []inputLayout{
	{format: "2006-01-02 15:04:05 -0700", hasTime: true, hasZone: true},
	{format: "2006-01-02 15:04:05 -07:00", hasTime: true, hasZone: true},
	{format: time.RFC3339, hasTime: true, hasZone: true},
	{format: "2006-01-02 15:04:05", hasTime: true},
	{format: "2006-01-02T15:04:05", hasTime: true},
	{format: "2006-01-02 15:04", hasTime: true},
	{format: "2006-01-02T15:04", hasTime: true},
	{format: DateLayout},
}

// Instant is a parsed temporal value. HasTime is false for date-only
// literals and DATE-typed values; such instants compare at day granularity.
type Instant struct {
	Time    time.Time
	HasTime bool
}

// Normalizer is bound to the server timezone. It is immutable and safe for
// concurrent use.
type Normalizer struct {
	loc *time.Location
}

// New creates a Normalizer for loc. A nil loc means time.Local.
func New(loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc}
}

// LoadNormalizer resolves an IANA zone name ("" means local time).
func LoadNormalizer(zone string) (*Normalizer, error) {
	if zone == "" {
		return New(time.Local), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, apperror.NewValidation("Unknown timezone: " + zone).WithCause(err)
	}
	return New(loc), nil
}

// Location returns the server timezone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Parse reads any accepted literal. Zoneless inputs are interpreted in the
// server timezone; zoned inputs are converted to it.
func (n *Normalizer) Parse(s string) (Instant, error) {
	s = strings.TrimSpace(s)
	for _, l := range inputLayouts {
		var (
			t   time.Time
			err error
		)
		if l.hasZone {
			t, err = time.Parse(l.format, s)
		} else {
			t, err = time.ParseInLocation(l.format, s, n.loc)
		}
		if err != nil {
			continue
		}
		t = t.In(n.loc)
		if !l.hasTime {
			return Instant{Time: n.Truncate(t)}, nil
		}
		return Instant{Time: t.Truncate(time.Second), HasTime: true}, nil
	}
	return Instant{}, apperror.NewInvalidTemporal(s)
}

// FromTime wraps a programmatic time value. It always carries a time component.
func (n *Normalizer) FromTime(t time.Time) Instant {
	return Instant{Time: t.In(n.loc).Truncate(time.Second), HasTime: true}
}

// ParseDate parses a DATE value. A time component, if present, is dropped.
func (n *Normalizer) ParseDate(s string) (Instant, error) {
	in, err := n.Parse(s)
	if err != nil {
		return Instant{}, err
	}
	return Instant{Time: n.Truncate(in.Time)}, nil
}

// ParseTimestamp parses a TIMESTAMP value. A date-only input means midnight.
func (n *Normalizer) ParseTimestamp(s string) (Instant, error) {
	in, err := n.Parse(s)
	if err != nil {
		return Instant{}, err
	}
	in.HasTime = true
	return in, nil
}

// FormatDate renders the canonical DATE form.
func (n *Normalizer) FormatDate(t time.Time) string {
	return t.In(n.loc).Format(DateLayout)
}

// FormatTimestamp renders the canonical TIMESTAMP form.
func (n *Normalizer) FormatTimestamp(t time.Time) string {
	return t.In(n.loc).Format(TimestampLayout)
}

// CanonicalDate parses and re-renders a DATE value.
func (n *Normalizer) CanonicalDate(s string) (string, error) {
	in, err := n.ParseDate(s)
	if err != nil {
		return "", err
	}
	return n.FormatDate(in.Time), nil
}

// CanonicalTimestamp parses and re-renders a TIMESTAMP value.
func (n *Normalizer) CanonicalTimestamp(s string) (string, error) {
	in, err := n.ParseTimestamp(s)
	if err != nil {
		return "", err
	}
	return n.FormatTimestamp(in.Time), nil
}

// Truncate returns midnight of t's calendar day in the server timezone.
func (n *Normalizer) Truncate(t time.Time) time.Time {
	y, m, d := t.In(n.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, n.loc)
}

// Compare orders a stored value against an operand. When either side lacks
// a time component both are truncated to the day, otherwise they compare
// at second precision.
func (n *Normalizer) Compare(stored, operand Instant) int {
	a, b := stored.Time, operand.Time
	if !stored.HasTime || !operand.HasTime {
		a, b = n.Truncate(a), n.Truncate(b)
	} else {
		a, b = a.Truncate(time.Second), b.Truncate(time.Second)
	}
	return a.Compare(b)
}
