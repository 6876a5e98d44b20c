package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/isd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() isd.Record {
	temp := -1.5
	return isd.Record{
		Control: isd.ControlData{
			USAFID:    "720534",
			WBANID:    "00161",
			Timestamp: time.Date(2018, 9, 22, 1, 15, 0, 0, time.UTC),
		},
		Mandatory: isd.MandatoryData{
			AirTemperature: isd.TemperatureObservation{TemperatureC: &temp, QualityCode: "1"},
		},
	}
}

func TestSerializeToMessage(t *testing.T) {
	msg, err := serializeToMessage(testRecord())
	require.NoError(t, err)

	assert.Equal(t, "720534-00161-201809220115", string(msg.Key))

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "station_id", msg.Headers[0].Key)
	assert.Equal(t, "720534", string(msg.Headers[0].Value))
	assert.Equal(t, "observed_at", msg.Headers[1].Key)
	assert.Equal(t, "2018-09-22T01:15:00Z", string(msg.Headers[1].Value))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	control, ok := payload["control"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "720534", control["usaf_id"])
}

func TestSerializeToMessage_DerivedFahrenheit(t *testing.T) {
	msg, err := serializeToMessage(testRecord())
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"temperature_f":29.3`)
}
