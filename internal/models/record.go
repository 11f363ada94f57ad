// Package models defines the domain types for Othala.
package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
)

// Address is the content address of an entry (hex SHA-256).
type Address string

func (a Address) String() string { return string(a) }

// Valid reports whether a is a well-formed content address.
func (a Address) Valid() bool { return checksum.Valid(string(a)) }

// Timestamp is an ISO-8601 (RFC 3339, nanosecond precision, UTC) instant.
type Timestamp string

// TimestampLayout is the layout every Timestamp is formatted with.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// NewTimestamp formats t as a Timestamp.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(TimestampLayout))
}

// ParseTimestamp validates s as an ISO-8601 instant.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return "", apperr.Invalid(fmt.Errorf("timestamp %q: %w", s, err))
	}
	return NewTimestamp(t), nil
}

// Time returns the instant ts denotes, or the zero time if ts is malformed.
func (ts Timestamp) Time() time.Time {
	t, _ := time.Parse(time.RFC3339Nano, string(ts))
	return t
}

func (ts Timestamp) String() string { return string(ts) }

// Entry is an immutable payload held by the record store.
type Entry struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// Address computes the content address of e.
func (e Entry) Address() Address {
	return Address(checksum.Domain(e.Type, e.Content))
}

// Link is a directed, typed and tagged edge in the link index.
type Link struct {
	Base      Address   `json:"base"`
	Target    Address   `json:"target"`
	Type      string    `json:"type"`
	Tag       string    `json:"tag"`
	Author    Address   `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LinkMatch selects link types or tags when querying the link index.
type LinkMatch struct {
	value string
	any   bool
}

// Exactly matches a single value.
func Exactly(v string) LinkMatch { return LinkMatch{value: v} }

// Any matches every value.
func Any() LinkMatch { return LinkMatch{any: true} }

// IsAny reports whether m matches every value.
func (m LinkMatch) IsAny() bool { return m.any }

// Value returns the exact value m matches.
func (m LinkMatch) Value() string { return m.value }

// Matches reports whether v satisfies m.
func (m LinkMatch) Matches(v string) bool { return m.any || m.value == v }

// Record is the view returned to callers: identity, creation timestamp, and payload.
type Record[T any] struct {
	ID        Address   `json:"id"`
	CreatedAt Timestamp `json:"created_at"`
	Address   Address   `json:"address"`
	Payload   T         `json:"payload"`
}
