package shortlink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Counter field names as sent by the backend. The camelCase names are current;
// the snake_case ones come from older backend versions.
const (
	FieldHitsToday   = "hitsToday"
	FieldHitsIn7d    = "hitsIn7d"
	FieldHitsTotal   = "hitsTotal"
	FieldHitsInRange = "hits_in_range"
	FieldHitsTotalV1 = "hits_total"
	FieldHits        = "hits"
)

// destinationFields are checked in order; the first non-empty one wins.
var destinationFields = []string{"url", "targetUrl", "originalUrl"}

// Record is one shortened URL as returned by the listing endpoints.
// Counters holds every numeric field of the payload keyed by its wire name,
// so a counter that is absent (or null) is simply not in the map.
type Record struct {
	Slug        string
	Destination string
	CreatedAt   time.Time
	Counters    map[string]int64
}

// Counter returns the named counter and whether the backend sent it.
func (r Record) Counter(name string) (int64, bool) {
	v, ok := r.Counters[name]

	return v, ok
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	*r = Record{Counters: make(map[string]int64)}

	if raw, ok := fields["slug"]; ok {
		_ = json.Unmarshal(raw, &r.Slug)
	}

	for _, name := range destinationFields {
		var dest string
		if raw, ok := fields[name]; ok && json.Unmarshal(raw, &dest) == nil && dest != "" {
			r.Destination = dest

			break
		}
	}

	if raw, ok := fields["createdAt"]; ok {
		var ts time.Time
		if json.Unmarshal(raw, &ts) == nil {
			r.CreatedAt = ts
		}
	}

	for name, raw := range fields {
		if n, ok := counterValue(raw); ok {
			r.Counters[name] = n
		}
	}

	return nil
}

func counterValue(raw json.RawMessage) (int64, bool) {
	var num json.Number

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&num); err != nil || num == "" {
		return 0, false
	}

	if n, err := num.Int64(); err == nil {
		return n, true
	}

	if f, err := num.Float64(); err == nil {
		return int64(f), true
	}

	return 0, false
}

// DecodeRecords accepts either a bare JSON array of records or an object
// wrapping the array under "items".
func DecodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("decode records: empty body")
	}

	var records []Record

	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
	case '{':
		var wrapped struct {
			Items []Record `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}

		records = wrapped.Items
	default:
		return nil, fmt.Errorf("decode records: unexpected payload")
	}

	if records == nil {
		records = []Record{}
	}

	return records, nil
}
