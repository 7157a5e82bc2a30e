package record

import (
	"fmt"
	"time"
)

// TextLayout is a fixed-width UTC layout, so text timestamps sort chronologically.
const TextLayout = "2006-01-02T15:04:05.000000000Z"

// FormatText renders t for drivers that store created_at as text.
func FormatText(t time.Time) string {
	return t.UTC().Format(TextLayout)
}

// Timestamp scans created_at whether the driver yields a time or text.
type Timestamp struct {
	Time time.Time
}

func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		ts.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("unsupported created_at type %T", src)
}

func (ts *Timestamp) parse(s string) error {
	for _, layout := range []string{TextLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			return nil
		}
	}
	return fmt.Errorf("unparseable created_at %q", s)
}
