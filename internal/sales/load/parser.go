package load

import (
	"strings"
	"time"

	"github.com/samber/mo"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
)

// ParseDate reads a dd/mm/yyyy date. Blank or malformed input is None.
func ParseDate(value mo.Option[string]) mo.Option[time.Time] {
	s, ok := value.Get()
	if !ok {
		return mo.None[time.Time]()
	}
	t, err := time.Parse(accurate.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return mo.None[time.Time]()
	}
	return mo.Some(t)
}

// ParseTimestamp reads "yyyy-mm-dd HH:MM:SS", falling back to RFC 3339.
// Values without a zone are taken in loc.
func ParseTimestamp(value mo.Option[string], loc *time.Location) mo.Option[time.Time] {
	s, ok := value.Get()
	if !ok {
		return mo.None[time.Time]()
	}
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(types.TimestampLayout, s, loc); err == nil {
		return mo.Some(t)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return mo.Some(t)
	}
	return mo.None[time.Time]()
}
