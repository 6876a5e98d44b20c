// Package isd decodes NOAA Integrated Surface Dataset (ISD) records.
//
// Each observation is one fixed-width line: a 105-character mandatory
// section followed by a variable-length additional section. Fields are
// positional, missing values are encoded as runs of 9s at the field's
// width, and several numeric fields carry an implicit scaling factor.
package isd

import (
	"encoding/json"
	"time"
)

// ControlData is the control section of an ISD record: station identity,
// observation time, and positioning metadata.
type ControlData struct {
	// TotalVariableCharacters is the length of the variable section; the
	// full record length equals 105 plus this value.
	TotalVariableCharacters int `json:"total_variable_characters"`

	// USAFID is the Air Force Master Station Catalog identifier. US
	// stations fall between 720000 and 799999.
	USAFID string `json:"usaf_id"`

	// WBANID is the Weather Bureau Army-Navy identifier.
	WBANID string `json:"wban_id"`

	// Timestamp is the observation time, always UTC.
	Timestamp time.Time `json:"timestamp"`

	DataSourceFlag *string  `json:"data_source_flag"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	ReportTypeCode *string  `json:"report_type_code"`

	// Elevation relative to Mean Sea Level, in meters.
	Elevation *int `json:"elevation"`

	CallLetterID  *string `json:"call_letter_id"`
	QCProcessName string  `json:"qc_process_name"`
}

// WindObservation is the wind speed and direction group.
type WindObservation struct {
	// DirectionAngle is the clockwise angle in degrees between true north
	// and the direction the wind is blowing from.
	DirectionAngle       *int    `json:"direction_angle"`
	DirectionQualityCode string  `json:"direction_quality_code"`
	TypeCode             *string `json:"type_code"`

	// SpeedRate is the horizontal wind speed in meters per second.
	SpeedRate        *float64 `json:"speed_rate"`
	SpeedQualityCode string   `json:"speed_quality_code"`
}

// SkyConditionObservation is the ceiling group.
type SkyConditionObservation struct {
	// CeilingHeight is the lowest opaque cloud layer height in meters AGL.
	// Unlimited ceiling is coded as 22000; that is a real value, not a
	// missing sentinel.
	CeilingHeight            *int    `json:"ceiling_height"`
	CeilingQualityCode       string  `json:"ceiling_quality_code"`
	CeilingDeterminationCode *string `json:"ceiling_determination_code"`

	// CAVOKCode is "Y" when ceiling-and-visibility-OK was reported, "N"
	// when not, nil when missing.
	CAVOKCode *string `json:"cavok_code"`
}

// VisibilityObservation is the horizontal visibility group.
type VisibilityObservation struct {
	// Distance in meters; values above 160km are capped at 160000.
	Distance            *int   `json:"distance"`
	DistanceQualityCode string `json:"distance_quality_code"`

	// VariabilityCode is "V" when the reported visibility is variable,
	// "N" when not, nil when missing.
	VariabilityCode        *string `json:"variability_code"`
	VariabilityQualityCode string  `json:"variability_quality_code"`
}

// TemperatureObservation covers both the air temperature and dew point
// groups, which share a layout.
type TemperatureObservation struct {
	TemperatureC *float64 `json:"temperature_c"`
	QualityCode  string   `json:"quality_code"`
}

// TemperatureF converts the observation to degrees Fahrenheit. It is
// derived, never stored: nil exactly when TemperatureC is nil.
func (o TemperatureObservation) TemperatureF() *float64 {
	if o.TemperatureC == nil {
		return nil
	}
	f := *o.TemperatureC*1.8 + 32
	return &f
}

// MarshalJSON includes the derived Fahrenheit value alongside the stored
// Celsius one, matching the flattened column layout.
func (o TemperatureObservation) MarshalJSON() ([]byte, error) {
	type plain TemperatureObservation
	return json.Marshal(struct {
		plain
		TemperatureF *float64 `json:"temperature_f"`
	}{plain(o), o.TemperatureF()})
}

// PressureObservation is the sea-level pressure group, in hectopascals
// relative to Mean Sea Level.
type PressureObservation struct {
	Pressure    *float64 `json:"pressure"`
	QualityCode string   `json:"quality_code"`
}

// MandatoryData groups the six observation sections present in every
// record.
type MandatoryData struct {
	Wind             WindObservation         `json:"wind"`
	Ceiling          SkyConditionObservation `json:"ceiling"`
	Visibility       VisibilityObservation   `json:"visibility"`
	AirTemperature   TemperatureObservation  `json:"air_temperature"`
	DewPoint         TemperatureObservation  `json:"dew_point"`
	SeaLevelPressure PressureObservation     `json:"sea_level_pressure"`
}

// AdditionalData is a decoded optional-section group. The additional
// section is not decoded yet; the slice on Record is reserved and always
// empty.
type AdditionalData struct{}

// Record is one decoded ISD observation. Records are immutable once
// parsed.
type Record struct {
	Control    ControlData      `json:"control"`
	Mandatory  MandatoryData    `json:"mandatory"`
	Additional []AdditionalData `json:"additional"`
}
