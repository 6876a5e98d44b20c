package isd_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/isd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLine builds a valid 105-character mandatory section, one field per
// element so individual offsets stay readable in overrides.
func testLine(overrides map[int]string) string {
	fields := []string{
		"0185",         // [0:4)   total_variable_characters
		"720534",       // [4:10)  usaf_id
		"00161",        // [10:15) wban_id
		"201809220115", // [15:27) timestamp
		"4",            // [27:28) data_source_flag
		"+40017",       // [28:34) latitude
		"-105050",      // [34:41) longitude
		"FM-15",        // [41:46) report_type_code
		"+1564",        // [46:51) elevation
		"99999",        // [51:56) call_letter_id (missing)
		"V020",         // [56:60) qc_process_name
		"060",          // [60:63) wind direction
		"1",            // [63:64) wind direction quality
		"N",            // [64:65) wind type
		"0015",         // [65:69) wind speed
		"1",            // [69:70) wind speed quality
		"22000",        // [70:75) ceiling height (unlimited)
		"5",            // [75:76) ceiling quality
		"9",            // [76:77) ceiling determination (missing)
		"N",            // [77:78) cavok
		"016093",       // [78:84) visibility distance
		"1",            // [84:85) visibility quality
		"9",            // [85:86) variability (missing)
		"9",            // [86:87) variability quality
		"-0015",        // [87:92) air temperature
		"1",            // [92:93) air temperature quality
		"-0094",        // [93:98) dew point
		"1",            // [98:99) dew point quality
		"99999",        // [99:104) sea level pressure (missing)
		"9",            // [104:105) pressure quality
	}
	for i, v := range overrides {
		fields[i] = v
	}
	return strings.Join(fields, "")
}

func TestParseLine_ControlData(t *testing.T) {
	rec, err := isd.ParseLine(testLine(nil))
	require.NoError(t, err)

	c := rec.Control
	assert.Equal(t, 185, c.TotalVariableCharacters)
	assert.Equal(t, "720534", c.USAFID)
	assert.Equal(t, "00161", c.WBANID)
	assert.Equal(t, time.Date(2018, time.September, 22, 1, 15, 0, 0, time.UTC), c.Timestamp)

	require.NotNil(t, c.DataSourceFlag)
	assert.Equal(t, "4", *c.DataSourceFlag)
	require.NotNil(t, c.Latitude)
	assert.InDelta(t, 40.017, *c.Latitude, 1e-9)
	require.NotNil(t, c.Longitude)
	assert.InDelta(t, -105.05, *c.Longitude, 1e-9)
	require.NotNil(t, c.ReportTypeCode)
	assert.Equal(t, "FM-15", *c.ReportTypeCode)
	require.NotNil(t, c.Elevation)
	assert.Equal(t, 1564, *c.Elevation)
	assert.Nil(t, c.CallLetterID)
	assert.Equal(t, "V020", c.QCProcessName)
}

func TestParseLine_MandatoryData(t *testing.T) {
	rec, err := isd.ParseLine(testLine(nil))
	require.NoError(t, err)
	m := rec.Mandatory

	t.Run("wind", func(t *testing.T) {
		require.NotNil(t, m.Wind.DirectionAngle)
		assert.Equal(t, 60, *m.Wind.DirectionAngle)
		assert.Equal(t, "1", m.Wind.DirectionQualityCode)
		require.NotNil(t, m.Wind.TypeCode)
		assert.Equal(t, "N", *m.Wind.TypeCode)
		require.NotNil(t, m.Wind.SpeedRate)
		assert.InDelta(t, 1.5, *m.Wind.SpeedRate, 1e-9)
		assert.Equal(t, "1", m.Wind.SpeedQualityCode)
	})

	t.Run("ceiling", func(t *testing.T) {
		// 22000 is the unlimited-ceiling sentinel, not a missing value.
		require.NotNil(t, m.Ceiling.CeilingHeight)
		assert.Equal(t, 22000, *m.Ceiling.CeilingHeight)
		assert.Equal(t, "5", m.Ceiling.CeilingQualityCode)
		assert.Nil(t, m.Ceiling.CeilingDeterminationCode)
		require.NotNil(t, m.Ceiling.CAVOKCode)
		assert.Equal(t, "N", *m.Ceiling.CAVOKCode)
	})

	t.Run("visibility", func(t *testing.T) {
		require.NotNil(t, m.Visibility.Distance)
		assert.Equal(t, 16093, *m.Visibility.Distance)
		assert.Equal(t, "1", m.Visibility.DistanceQualityCode)
		assert.Nil(t, m.Visibility.VariabilityCode)
		// Quality codes pass through raw; "9" is a literal code here.
		assert.Equal(t, "9", m.Visibility.VariabilityQualityCode)
	})

	t.Run("temperatures", func(t *testing.T) {
		require.NotNil(t, m.AirTemperature.TemperatureC)
		assert.InDelta(t, -1.5, *m.AirTemperature.TemperatureC, 1e-9)
		require.NotNil(t, m.AirTemperature.TemperatureF())
		assert.InDelta(t, 29.3, *m.AirTemperature.TemperatureF(), 1e-9)
		assert.Equal(t, "1", m.AirTemperature.QualityCode)

		require.NotNil(t, m.DewPoint.TemperatureC)
		assert.InDelta(t, -9.4, *m.DewPoint.TemperatureC, 1e-9)
		assert.InDelta(t, 15.08, *m.DewPoint.TemperatureF(), 1e-9)
	})

	t.Run("pressure", func(t *testing.T) {
		assert.Nil(t, m.SeaLevelPressure.Pressure)
		assert.Equal(t, "9", m.SeaLevelPressure.QualityCode)
	})

	assert.Empty(t, rec.Additional)
}

func TestParseLine_MissingTemperatureHasNoFahrenheit(t *testing.T) {
	rec, err := isd.ParseLine(testLine(map[int]string{24: "+9999"}))
	require.NoError(t, err)
	assert.Nil(t, rec.Mandatory.AirTemperature.TemperatureC)
	assert.Nil(t, rec.Mandatory.AirTemperature.TemperatureF())
}

func TestParseLine_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"short line", "0185720534"},
		{"usaf id with space", testLine(map[int]string{1: "72 534"})},
		{"wban id with letter", testLine(map[int]string{2: "0016a"})},
		{"day out of range", testLine(map[int]string{3: "201809310115"})},
		{"non-numeric wind speed", testLine(map[int]string{14: "00a5"})},
		{"non-numeric elevation", testLine(map[int]string{8: "+15b4"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := isd.ParseLine(tt.line)
			require.Error(t, err)
			var ferr *isd.FormatError
			assert.ErrorAs(t, err, &ferr)
		})
	}
}

func TestParseLine_IgnoresAdditionalSection(t *testing.T) {
	line := testLine(nil) + "ADD+GA1..." // trailing variable section
	rec, err := isd.ParseLine(line)
	require.NoError(t, err)
	assert.Equal(t, "720534", rec.Control.USAFID)
}

func TestRecordJSON_IncludesDerivedFahrenheit(t *testing.T) {
	rec, err := isd.ParseLine(testLine(nil))
	require.NoError(t, err)

	data, err := json.Marshal(rec.Mandatory.AirTemperature)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"temperature_c":-1.5`)
	assert.Contains(t, string(data), `"temperature_f":29.3`)
}
