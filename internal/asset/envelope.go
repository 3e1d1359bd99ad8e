package asset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts are tried in order. The GIS layer sends the first form.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// envelope is the webhook body: {"data": {...}}.
type envelope struct {
	Data *payload `json:"data"`
}

type payload struct {
	SerialNEMA   flexString `json:"sn_nema"`
	OldSerial    flexString `json:"old_sn"`
	Date         flexString `json:"date"`
	Latitude     flexString `json:"latitude"`
	Longitude    flexString `json:"longitude"`
	Picture      flexString `json:"picture"`
	Note         flexString `json:"note"`
	SwitchType   flexString `json:"type_switches"`
	LampType     flexString `json:"lamp_type"`
	StatusReason flexString `json:"svg"`
	FeatureID    flexString `json:"ogc_fid"`
}

// flexString accepts a JSON string, number or null. GIS layers are loose
// about whether numeric attributes arrive quoted.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*f = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	case len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')):
		*f = flexString(b)
	default:
		return fmt.Errorf("unsupported JSON value %s", b)
	}
	return nil
}

func (f flexString) trimmed() string {
	return strings.TrimSpace(string(f))
}

// ParseEnvelope decodes and validates a webhook body. received is used as the
// event timestamp when the payload carries no date.
//
// Every problem is collected into a single *ValidationError.
func ParseEnvelope(body []byte, received time.Time) (ChangeEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ChangeEvent{}, &ValidationError{Problems: []string{"body is not valid JSON: " + err.Error()}}
	}
	if env.Data == nil {
		return ChangeEvent{}, &ValidationError{Problems: []string{"data is required"}}
	}
	p := env.Data

	var problems []string
	ev := ChangeEvent{
		RawSerial:         p.SerialNEMA.trimmed(),
		RawPreviousSerial: p.OldSerial.trimmed(),
		PictureRef:        p.Picture.trimmed(),
		Notes:             string(p.Note),
		SwitchType:        p.SwitchType.trimmed(),
		LampType:          p.LampType.trimmed(),
		StatusReason:      string(p.StatusReason),
		Timestamp:         received,
	}

	if ev.RawSerial == "" {
		problems = append(problems, "data.sn_nema is required")
	}

	lat, err := parseCoordinate(p.Latitude.trimmed(), 90)
	if err != nil {
		problems = append(problems, "data.latitude "+err.Error())
	}
	lon, err := parseCoordinate(p.Longitude.trimmed(), 180)
	if err != nil {
		problems = append(problems, "data.longitude "+err.Error())
	}
	ev.Latitude, ev.Longitude = lat, lon

	if fid := p.FeatureID.trimmed(); fid == "" {
		problems = append(problems, "data.ogc_fid is required")
	} else if id, err := strconv.ParseInt(fid, 10, 64); err != nil {
		problems = append(problems, "data.ogc_fid must be an integer")
	} else {
		ev.FeatureID = id
	}

	if d := p.Date.trimmed(); d != "" {
		ts, err := parseTimestamp(d)
		if err != nil {
			problems = append(problems, "data.date "+err.Error())
		} else {
			ev.Timestamp = ts
		}
	}

	if len(problems) > 0 {
		return ChangeEvent{}, &ValidationError{Problems: problems}
	}
	return ev, nil
}

func parseCoordinate(s string, limit float64) (float64, error) {
	if s == "" {
		return 0, errors.New("is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, errors.New("must be a number")
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("must be within ±%g", limit)
	}
	return v, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("has unrecognised format %q", s)
}
