package asset

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var received = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func TestParseEnvelope(t *testing.T) {
	body := []byte(`{"data": {
		"sn_nema": "103441045",
		"old_sn": "103000001",
		"date": "2026-02-27T10:15:00+0200",
		"latitude": "32.0301",
		"longitude": 34.8512,
		"picture": "IMG_0001.jpg",
		"note": "pole leaning",
		"type_switches": "A",
		"lamp_type": null,
		"svg": "replaced after storm",
		"ogc_fid": 417
	}}`)

	ev, err := ParseEnvelope(body, received)
	require.NoError(t, err)

	assert.Equal(t, int64(417), ev.FeatureID)
	assert.Equal(t, "103441045", ev.RawSerial)
	assert.Equal(t, "103000001", ev.RawPreviousSerial)
	assert.InDelta(t, 32.0301, ev.Latitude, 1e-9)
	assert.InDelta(t, 34.8512, ev.Longitude, 1e-9)
	assert.Equal(t, "IMG_0001.jpg", ev.PictureRef)
	assert.Equal(t, "pole leaning", ev.Notes)
	assert.Equal(t, "A", ev.SwitchType)
	assert.Empty(t, ev.LampType)
	assert.Equal(t, "replaced after storm", ev.StatusReason)
	assert.True(t, ev.Timestamp.Equal(time.Date(2026, 2, 27, 8, 15, 0, 0, time.UTC)))
}

func TestParseEnvelope_DateFallbacks(t *testing.T) {
	tests := []struct {
		date string
		want time.Time
	}{
		{"", received},
		{"2026-02-27T10:15:00Z", time.Date(2026, 2, 27, 10, 15, 0, 0, time.UTC)},
		{"2026-02-27 10:15:00", time.Date(2026, 2, 27, 10, 15, 0, 0, time.UTC)},
		{"2026-02-27", time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			body := []byte(`{"data":{"sn_nema":"402198765","latitude":32,"longitude":34,"ogc_fid":"9","date":"` + tt.date + `"}}`)
			ev, err := ParseEnvelope(body, received)
			require.NoError(t, err)
			assert.True(t, ev.Timestamp.Equal(tt.want), "got %v", ev.Timestamp)
			assert.Equal(t, int64(9), ev.FeatureID)
		})
	}
}

func TestParseEnvelope_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		problem string
	}{
		{"not json", `{`, "not valid JSON"},
		{"missing data", `{"other": 1}`, "data is required"},
		{"missing serial", `{"data":{"latitude":1,"longitude":1,"ogc_fid":1}}`, "sn_nema is required"},
		{"bad latitude", `{"data":{"sn_nema":"1","latitude":"north","longitude":1,"ogc_fid":1}}`, "latitude must be a number"},
		{"nan latitude", `{"data":{"sn_nema":"10344104","latitude":"NaN","longitude":1,"ogc_fid":1}}`, "latitude must be a number"},
		{"nan longitude", `{"data":{"sn_nema":"10344104","latitude":1,"longitude":"nan","ogc_fid":1}}`, "longitude must be a number"},
		{"infinite longitude", `{"data":{"sn_nema":"10344104","latitude":1,"longitude":"+Inf","ogc_fid":1}}`, "longitude must be within"},
		{"latitude out of range", `{"data":{"sn_nema":"1","latitude":91,"longitude":1,"ogc_fid":1}}`, "latitude must be within"},
		{"missing longitude", `{"data":{"sn_nema":"1","latitude":1,"ogc_fid":1}}`, "longitude is required"},
		{"missing feature", `{"data":{"sn_nema":"1","latitude":1,"longitude":1}}`, "ogc_fid is required"},
		{"fractional feature", `{"data":{"sn_nema":"1","latitude":1,"longitude":1,"ogc_fid":1.5}}`, "ogc_fid must be an integer"},
		{"bad date", `{"data":{"sn_nema":"1","latitude":1,"longitude":1,"ogc_fid":1,"date":"yesterday"}}`, "unrecognised format"},
		{"object field", `{"data":{"sn_nema":{"x":1},"latitude":1,"longitude":1,"ogc_fid":1}}`, "not valid JSON"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body), received)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPayload))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestParseEnvelope_CollectsAllProblems(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"data":{}}`), received)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Problems, 4)
}
