package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// StoredDate is the tagged union of the two date shapes records arrive
// with: an ISO string, or an object carrying an epoch-seconds field the
// way Firestore exports timestamps. Anything else is a data-integrity
// fault surfaced as ErrInvalidDate, never defaulted to "now".
type StoredDate struct {
	iso        string
	seconds    int64
	hasSeconds bool
}

func NewISODate(iso string) StoredDate {
	return StoredDate{iso: iso}
}

func NewEpochDate(seconds int64) StoredDate {
	return StoredDate{seconds: seconds, hasSeconds: true}
}

func DateFromTime(t time.Time) StoredDate {
	return StoredDate{iso: t.UTC().Format(time.RFC3339)}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Time converts either variant to a concrete instant in UTC. Epoch
// seconds are multiplied out to milliseconds first, mirroring how the
// stored records were written.
func (d StoredDate) Time() (time.Time, error) {
	if d.hasSeconds {
		return time.UnixMilli(d.seconds * 1000).UTC(), nil
	}
	if d.iso == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, d.iso); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, d.iso)
}

// DayKey returns the YYYY-MM-DD key report rows sort by.
func (d StoredDate) DayKey() (string, error) {
	t, err := d.Time()
	if err != nil {
		return "", err
	}
	return t.Format("2006-01-02"), nil
}

func (d StoredDate) MarshalJSON() ([]byte, error) {
	t, err := d.Time()
	if err != nil {
		return nil, err
	}
	return json.Marshal(t.Format(time.RFC3339))
}

func (d *StoredDate) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*d = StoredDate{iso: s}
		return nil
	}
	var obj struct {
		Seconds  *int64 `json:"seconds"`
		USeconds *int64 `json:"_seconds"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		switch {
		case obj.Seconds != nil:
			*d = StoredDate{seconds: *obj.Seconds, hasSeconds: true}
			return nil
		case obj.USeconds != nil:
			*d = StoredDate{seconds: *obj.USeconds, hasSeconds: true}
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidDate, data)
}
