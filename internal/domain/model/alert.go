// Package model contains domain models passed between layers.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// TimestampLayout is the fixed-width, second-precision layout of stored timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

var errAlertNotObject = errors.New("alert must be a JSON object")

// Known inbound keys.
const (
	keyArea        = "area"
	keyDescription = "description"
	keyHeadline    = "headline"
	keyUrgency     = "urgency"
	keySeverity    = "severity"
)

// Keys computed on ingestion. Inbound values for them are discarded.
var reservedKeys = map[string]struct{}{ //nolint:gochecknoglobals // lookup table
	"id":          {},
	"timestamp":   {},
	"lat":         {},
	"lng":         {},
	"safe_places": {},
}

// RawAlert is an alert as submitted by a sender.
// Absent or null fields are empty strings. Unknown fields are kept in Extra.
type RawAlert struct {
	Area        string
	Description string
	Headline    string
	Urgency     string
	Severity    string
	Extra       map[string]json.RawMessage
}

// UnmarshalJSON decodes a JSON object into a RawAlert.
func (r *RawAlert) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errAlertNotObject
	}

	out := RawAlert{}
	for key, raw := range fields {
		var dst *string
		switch key {
		case keyArea:
			dst = &out.Area
		case keyDescription:
			dst = &out.Description
		case keyHeadline:
			dst = &out.Headline
		case keyUrgency:
			dst = &out.Urgency
		case keySeverity:
			dst = &out.Severity
		default:
			if _, reserved := reservedKeys[key]; reserved {
				continue
			}
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = append(json.RawMessage(nil), raw...)
			continue
		}

		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("field %q must be a string: %w", key, err)
		}
	}

	*r = out
	return nil
}

// MarshalJSON encodes the known fields next to Extra as one flat object.
func (r RawAlert) MarshalJSON() ([]byte, error) { //nolint:gocritic // value receiver so both forms marshal
	var buf bytes.Buffer
	w := newObjectWriter(&buf)
	if err := w.extras(r.Extra); err != nil {
		return nil, err
	}
	w.field(keyArea, r.Area)
	w.field(keyDescription, r.Description)
	w.field(keyHeadline, r.Headline)
	w.field(keyUrgency, r.Urgency)
	w.field(keySeverity, r.Severity)
	return w.close()
}

// Coordinate is a resolved WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SafePlace is a named place recommended as refuge.
type SafePlace struct {
	Name       string
	Coordinate *Coordinate
}

// MarshalJSON renders {"name","lat","lng"} with null coordinates when unresolved.
func (s SafePlace) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	w := newObjectWriter(&buf)
	w.field("name", s.Name)
	w.coordinate(s.Coordinate)
	return w.close()
}

// UnmarshalJSON reads back the {"name","lat","lng"} form.
func (s *SafePlace) UnmarshalJSON(data []byte) error {
	var in struct {
		Name string   `json:"name"`
		Lat  *float64 `json:"lat"`
		Lng  *float64 `json:"lng"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*s = SafePlace{Name: in.Name, Coordinate: coordinateOf(in.Lat, in.Lng)}
	return nil
}

func coordinateOf(lat, lng *float64) *Coordinate {
	if lat == nil || lng == nil {
		return nil
	}
	return &Coordinate{Lat: *lat, Lng: *lng}
}

// EnrichedAlert is a RawAlert with ingestion metadata and resolved coordinates.
type EnrichedAlert struct {
	RawAlert

	ID         string
	Timestamp  time.Time
	Danger     *Coordinate
	SafePlaces []SafePlace
}

// MarshalJSON renders the record flat: extra fields first, then the computed
// ones. lat/lng are null when the area did not resolve and safe_places is
// always an array.
func (e EnrichedAlert) MarshalJSON() ([]byte, error) { //nolint:gocritic // value receiver so both forms marshal
	var buf bytes.Buffer
	w := newObjectWriter(&buf)
	if err := w.extras(e.Extra); err != nil {
		return nil, err
	}
	w.field("id", e.ID)
	w.field("timestamp", e.Timestamp.Format(TimestampLayout))
	w.field(keyArea, e.Area)
	w.field(keyDescription, e.Description)
	w.field(keyHeadline, e.Headline)
	w.field(keyUrgency, e.Urgency)
	w.field(keySeverity, e.Severity)
	w.coordinate(e.Danger)

	places := e.SafePlaces
	if places == nil {
		places = []SafePlace{}
	}
	w.field("safe_places", places)
	return w.close()
}

// UnmarshalJSON reads back a stored record, computed fields included.
func (e *EnrichedAlert) UnmarshalJSON(data []byte) error {
	var raw RawAlert
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var computed struct {
		ID         string      `json:"id"`
		Timestamp  string      `json:"timestamp"`
		Lat        *float64    `json:"lat"`
		Lng        *float64    `json:"lng"`
		SafePlaces []SafePlace `json:"safe_places"`
	}
	if err := json.Unmarshal(data, &computed); err != nil {
		return err
	}

	out := EnrichedAlert{
		RawAlert:   raw,
		ID:         computed.ID,
		Danger:     coordinateOf(computed.Lat, computed.Lng),
		SafePlaces: computed.SafePlaces,
	}
	if computed.Timestamp != "" {
		ts, err := time.Parse(TimestampLayout, computed.Timestamp)
		if err != nil {
			return fmt.Errorf("field %q: %w", "timestamp", err)
		}
		out.Timestamp = ts
	}

	*e = out
	return nil
}

// Clone returns a deep copy that shares no maps, slices or pointers with e.
func (e *EnrichedAlert) Clone() EnrichedAlert {
	out := *e
	if e.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	if e.Danger != nil {
		d := *e.Danger
		out.Danger = &d
	}
	if e.SafePlaces != nil {
		out.SafePlaces = make([]SafePlace, len(e.SafePlaces))
		for i, p := range e.SafePlaces {
			if p.Coordinate != nil {
				c := *p.Coordinate
				p.Coordinate = &c
			}
			out.SafePlaces[i] = p
		}
	}
	return out
}

// objectWriter writes one JSON object field by field, keeping insertion order.
type objectWriter struct {
	buf   *bytes.Buffer
	first bool
	err   error
}

func newObjectWriter(buf *bytes.Buffer) *objectWriter {
	buf.WriteByte('{')
	return &objectWriter{buf: buf, first: true}
}

func (w *objectWriter) raw(key string, value []byte) {
	if w.err != nil {
		return
	}
	if !w.first {
		w.buf.WriteByte(',')
	}
	w.first = false
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(value)
}

func (w *objectWriter) field(key string, value any) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("encode %s: %w", key, err)
		return
	}
	w.raw(key, b)
}

// extras writes passthrough fields in key order so output is stable.
func (w *objectWriter) extras(extra map[string]json.RawMessage) error {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := extra[k]
		if !json.Valid(v) {
			return fmt.Errorf("extra field %q is not valid JSON", k)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, v); err != nil {
			return err
		}
		w.raw(k, compact.Bytes())
	}
	return nil
}

func (w *objectWriter) coordinate(c *Coordinate) {
	if c == nil {
		w.raw("lat", []byte("null"))
		w.raw("lng", []byte("null"))
		return
	}
	w.field("lat", c.Lat)
	w.field("lng", c.Lng)
}

func (w *objectWriter) close() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
