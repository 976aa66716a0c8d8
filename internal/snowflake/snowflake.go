// Package snowflake decodes creation times embedded in distributed post ids.
package snowflake

import (
	"strconv"
	"time"
)

// EpochMS is the custom epoch (2010-11-04T01:42:54.657Z) the ids count from.
const EpochMS int64 = 1288834974657

// sequenceBits is the width of the worker and sequence segment below the time component.
const sequenceBits = 22

// DecodeTimestamp returns the id's creation time in UTC milliseconds since the
// Unix epoch. Non-numeric or out-of-range ids, and ids with no time component,
// decode to 0, which callers treat as unknown.
func DecodeTimestamp(id string) int64 {
	v, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0
	}
	offset := v >> sequenceBits
	if offset == 0 {
		return 0
	}
	return int64(offset) + EpochMS
}

// Time is DecodeTimestamp as a UTC time; the zero time when unknown.
func Time(id string) time.Time {
	ms := DecodeTimestamp(id)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
