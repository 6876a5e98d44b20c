package isd

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// mandatoryLength is the fixed length of the control + mandatory sections.
// The variable additional section, when present, follows it.
const mandatoryLength = 105

// timestampLayout matches the 12-character YYYYMMDDHHMM token. The token
// carries no zone; ISD times are always UTC.
const timestampLayout = "200601021504"

var (
	usafIDRe = regexp.MustCompile(`^\w{6}$`)
	wbanIDRe = regexp.MustCompile(`^\d{5}$`)
)

// FormatError reports a line that violates the ISD wire format. It is
// fatal for the file containing the line: the caller aborts rather than
// skipping.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("isd: field %s: invalid value %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("isd: field %s: invalid value %q", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(field, value string, err error) *FormatError {
	return &FormatError{Field: field, Value: value, Err: err}
}

// ParseLine decodes one ISD line into a Record. It is a pure function of
// the input text. Offsets are 0-indexed half-open byte ranges into the
// 105-character fixed portion; anything beyond it is the undecoded
// additional section and is ignored.
func ParseLine(line string) (Record, error) {
	if len(line) < mandatoryLength {
		return Record{}, &FormatError{
			Field: "line",
			Value: line,
			Err:   fmt.Errorf("length %d, want at least %d", len(line), mandatoryLength),
		}
	}

	control, err := parseControl(line)
	if err != nil {
		return Record{}, err
	}
	mandatory, err := parseMandatory(line)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Control:    control,
		Mandatory:  mandatory,
		Additional: []AdditionalData{},
	}, nil
}

func parseControl(line string) (ControlData, error) {
	var c ControlData

	// Required int; the missing sentinel does not apply here.
	total, err := strconv.Atoi(strings.TrimSpace(line[0:4]))
	if err != nil {
		return c, formatErr("total_variable_characters", line[0:4], err)
	}
	c.TotalVariableCharacters = total

	c.USAFID = line[4:10]
	if !usafIDRe.MatchString(c.USAFID) {
		return c, formatErr("usaf_id", c.USAFID, nil)
	}
	c.WBANID = line[10:15]
	if !wbanIDRe.MatchString(c.WBANID) {
		return c, formatErr("wban_id", c.WBANID, nil)
	}

	ts, err := time.Parse(timestampLayout, line[15:27])
	if err != nil {
		return c, formatErr("timestamp", line[15:27], err)
	}
	c.Timestamp = ts.UTC()

	c.DataSourceFlag = decodeText(line[27:28])

	if c.Latitude, err = decodeScaled(line[28:34], 1000); err != nil {
		return c, formatErr("latitude", line[28:34], err)
	}
	if c.Longitude, err = decodeScaled(line[34:41], 1000); err != nil {
		return c, formatErr("longitude", line[34:41], err)
	}
	c.ReportTypeCode = decodeText(line[41:46])
	if c.Elevation, err = decodeInt(line[46:51]); err != nil {
		return c, formatErr("elevation", line[46:51], err)
	}
	c.CallLetterID = decodeText(line[51:56])

	c.QCProcessName = line[56:60]

	return c, nil
}

func parseMandatory(line string) (MandatoryData, error) {
	var m MandatoryData
	var err error

	if m.Wind.DirectionAngle, err = decodeInt(line[60:63]); err != nil {
		return m, formatErr("wind.direction_angle", line[60:63], err)
	}
	m.Wind.DirectionQualityCode = line[63:64]
	m.Wind.TypeCode = decodeText(line[64:65])
	if m.Wind.SpeedRate, err = decodeScaled(line[65:69], 10); err != nil {
		return m, formatErr("wind.speed_rate", line[65:69], err)
	}
	m.Wind.SpeedQualityCode = line[69:70]

	if m.Ceiling.CeilingHeight, err = decodeInt(line[70:75]); err != nil {
		return m, formatErr("ceiling.ceiling_height", line[70:75], err)
	}
	m.Ceiling.CeilingQualityCode = line[75:76]
	m.Ceiling.CeilingDeterminationCode = decodeText(line[76:77])
	m.Ceiling.CAVOKCode = decodeText(line[77:78])

	if m.Visibility.Distance, err = decodeInt(line[78:84]); err != nil {
		return m, formatErr("visibility.distance", line[78:84], err)
	}
	m.Visibility.DistanceQualityCode = line[84:85]
	m.Visibility.VariabilityCode = decodeText(line[85:86])
	m.Visibility.VariabilityQualityCode = line[86:87]

	if m.AirTemperature.TemperatureC, err = decodeScaled(line[87:92], 10); err != nil {
		return m, formatErr("air_temperature.temperature_c", line[87:92], err)
	}
	m.AirTemperature.QualityCode = line[92:93]

	if m.DewPoint.TemperatureC, err = decodeScaled(line[93:98], 10); err != nil {
		return m, formatErr("dew_point.temperature_c", line[93:98], err)
	}
	m.DewPoint.QualityCode = line[98:99]

	if m.SeaLevelPressure.Pressure, err = decodeScaled(line[99:104], 10); err != nil {
		return m, formatErr("sea_level_pressure.pressure", line[99:104], err)
	}
	m.SeaLevelPressure.QualityCode = line[104:105]

	return m, nil
}
