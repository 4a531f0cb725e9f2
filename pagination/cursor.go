// Package pagination implements the opaque continuation token shared by
// every listing endpoint. Listings order by (time DESC, id DESC); the token
// packs the last-seen position so a follow-up query resumes exactly where
// the previous page ended, with no duplicate or skipped rows even when many
// rows share a timestamp.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// Cursor is a decoded listing position: the ordering timestamp of the last
// row returned, plus its id as tiebreak.
type Cursor struct {
	OrderedAt time.Time
	Tiebreak  string
}

type cursorEnvelope struct {
	OrderedAt string `json:"orderedAt"`
	Tiebreak  string `json:"tiebreak"`
}

// Encode packs the cursor into an opaque token: base64 of a small JSON
// record with an ISO-8601 timestamp. Reversible, not authenticated.
func (c Cursor) Encode() string {
	env := cursorEnvelope{
		OrderedAt: c.OrderedAt.UTC().Format(time.RFC3339Nano),
		Tiebreak:  c.Tiebreak,
	}
	b, _ := json.Marshal(env)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses a client-supplied token. Any malformed input (bad base64,
// bad JSON, wrong field types, missing fields, unparseable timestamp)
// returns nil; callers must treat nil identically to "no cursor supplied",
// never as an error.
func Decode(token string) *Cursor {
	if token == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var env cursorEnvelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil
	}
	if env.OrderedAt == "" || env.Tiebreak == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, env.OrderedAt)
	if err != nil {
		return nil
	}
	return &Cursor{OrderedAt: ts, Tiebreak: env.Tiebreak}
}

// PageSize clamps a client-requested limit: def when unset, never above max.
func PageSize(requested, def, max int) int {
	if requested <= 0 {
		return def
	}
	if requested > max {
		return max
	}
	return requested
}

// TrimPage implements the fetch-limit-plus-one idiom: rows were queried with
// limit+1; if the extra row is present, it is discarded and a continuation
// cursor is emitted from the last row of the returned page. Returns the page
// and the next cursor token, nil when the listing is exhausted.
func TrimPage[T any](rows []T, limit int, cursorFor func(T) Cursor) ([]T, *string) {
	if len(rows) <= limit {
		return rows, nil
	}
	page := rows[:limit]
	tok := cursorFor(page[len(page)-1]).Encode()
	return page, &tok
}
