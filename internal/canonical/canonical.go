// =============================================================================
// Packing List Ingest - Canonical Model Builder
// =============================================================================
//
// Pure helpers shared by all three dialect parsers:
//   - trim-or-null string coercion
//   - quantity decomposition ("7.000 PCE" -> 7 + "PCE")
//   - date parsing with graceful failure
//   - parcel-count range parsing ("1 to 5" -> 5)
//
// Field-level failures never abort a file. The Builder logs them as warnings
// and the affected field is left null.
//
// =============================================================================

package canonical

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// STRINGS
// =============================================================================

// TrimOrNil trims s and returns nil when nothing is left.
func TrimOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// TrimPtr applies TrimOrNil to an optional string.
func TrimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return TrimOrNil(*s)
}

// Value dereferences s, returning "" for nil.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// =============================================================================
// QUANTITIES
// =============================================================================

// Quantity is a decomposed quantity string.
type Quantity struct {
	Value decimal.Decimal
	Unit  string
}

// String renders the quantity as "<value> <unit>" or the bare value.
// Trailing zeros are dropped: 12.500 renders as "12.5".
func (q Quantity) String() string {
	if q.Unit == "" {
		return q.Value.String()
	}
	return q.Value.String() + " " + q.Unit
}

// ParseQuantity splits raw into a leading number and an optional unit.
// The second return value is false when raw does not start with a number.
func ParseQuantity(raw string) (Quantity, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Quantity{}, false
	}

	value, err := decimal.NewFromString(fields[0])
	if err != nil {
		return Quantity{}, false
	}

	return Quantity{
		Value: value,
		Unit:  strings.Join(fields[1:], " "),
	}, true
}

// ComposeQuantity builds the canonical productQuantity string.
// An explicit unit wins over one embedded in raw. It returns nil when raw has
// no leading number.
func ComposeQuantity(raw, unit string) *string {
	q, ok := ParseQuantity(raw)
	if !ok {
		return nil
	}
	if u := strings.TrimSpace(unit); u != "" {
		q.Unit = u
	}
	s := q.String()
	return &s
}

// =============================================================================
// PARCEL COUNT
// =============================================================================

var parcelRangePattern = regexp.MustCompile(`(?i)^\d+\s{1,3}to\s{1,3}(\d+)$`)

// ParseParcelCount reads M from an "N to M" parcel identifier.
// Anything else, including a non-positive M, yields 1.
func ParseParcelCount(identifier string) int {
	m := parcelRangePattern.FindStringSubmatch(strings.TrimSpace(identifier))
	if m == nil {
		return 1
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseCount reads a parcel quantity cell. Decimals are truncated; blank,
// unparseable or non-positive values yield 1.
func ParseCount(raw *string) int {
	if raw == nil {
		return 1
	}
	q, ok := ParseQuantity(*raw)
	if !ok {
		return 1
	}
	n := int(q.Value.IntPart())
	if n < 1 {
		return 1
	}
	return n
}

// ParcelRange renders a from/to pair as the item-level parcel identifier:
// "from" when both ends agree, otherwise "from to to".
func ParcelRange(from, to *string) string {
	switch {
	case from == nil && to == nil:
		return ""
	case from == nil:
		return *to
	case to == nil || *from == *to:
		return *from
	default:
		return fmt.Sprintf("%s to %s", *from, *to)
	}
}

// =============================================================================
// DATES
// =============================================================================

// ErrInvalidDate is returned (wrapped) when no layout matches.
var ErrInvalidDate = errors.New("invalid date")

// DefaultDateLayouts are tried in order.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02.01.2006",
	"02/01/2006",
	"01-02-06",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2 2006",
	"January 2, 2006",
}

// DateFormat is the canonical rendering of parsed dates.
const DateFormat = "2006-01-02"

// DateParser parses expiry dates against an ordered layout list.
type DateParser struct {
	layouts []string
}

// NewDateParser returns a parser for layouts, or DefaultDateLayouts when none
// are given.
func NewDateParser(layouts ...string) *DateParser {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	return &DateParser{layouts: layouts}
}

// Parse returns the date in DateFormat. Blank input yields nil and no error.
func (p *DateParser) Parse(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	for _, layout := range p.layouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		s := t.Format(DateFormat)
		return &s, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

var defaultDates = NewDateParser()

// ParseDate parses raw with DefaultDateLayouts.
func ParseDate(raw string) (*string, error) {
	return defaultDates.Parse(raw)
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder wraps the helpers with warning logs for field-level failures.
// It holds no per-document state and is safe for concurrent use.
type Builder struct {
	dates  *DateParser
	logger zerolog.Logger
}

// NewBuilder creates a Builder. Empty layouts fall back to DefaultDateLayouts.
func NewBuilder(logger zerolog.Logger, layouts ...string) *Builder {
	return &Builder{
		dates:  NewDateParser(layouts...),
		logger: logger,
	}
}

// Logger returns the builder's logger.
func (b *Builder) Logger() *zerolog.Logger {
	return &b.logger
}

// Date parses an optional date field, logging and nulling failures.
func (b *Builder) Date(field string, raw *string) *string {
	if raw == nil {
		return nil
	}
	d, err := b.dates.Parse(*raw)
	if err != nil {
		b.logger.Warn().Str("field", field).Str("value", *raw).Err(err).Msg("unparseable date, field set to null")
		return nil
	}
	return d
}

// Quantity composes an optional quantity field with an optional unit,
// logging and nulling values that do not start with a number.
func (b *Builder) Quantity(field string, raw, unit *string) *string {
	if raw == nil {
		return nil
	}
	q := ComposeQuantity(*raw, Value(unit))
	if q == nil {
		b.logger.Warn().Str("field", field).Str("value", *raw).Msg("unparseable quantity, field set to null")
	}
	return q
}
