package fetch

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/isd"
	"github.com/couchcryptid/isd-ingest/internal/timeseries"
)

// TableOptions selects and shapes the columns of a fetched table. The
// zero value returns every mandatory field at the original observation
// times, quality codes included, in UTC.
type TableOptions struct {
	// Fields limits the output to these mandatory groups (wind, ceiling,
	// visibility, air_temperature, dew_point, sea_level_pressure). Nil
	// keeps all of them.
	Fields []string
	// Exclude drops these mandatory groups. Applied after Fields.
	Exclude []string
	// Period rolls the table up to this bucket width, e.g. "h" or
	// "15min". Empty keeps the original observation times.
	Period string
	// Policy aligns rolled-up values to bucket labels. Defaults to
	// ending. Ignored without a Period.
	Policy timeseries.Policy
	// NoUpsample skips the minute-level upsampling step before a rollup
	// and buckets the raw samples directly.
	NoUpsample bool
	// IncludeControl adds the control section fields as columns.
	IncludeControl bool
	// DropQualityCodes removes every quality code column.
	DropQualityCodes bool
	// TempScale keeps only one temperature scale, "C" or "F". Empty
	// keeps both.
	TempScale string
	// Timezone converts the index for display, e.g. "US/Mountain".
	// Bucketing always happens in UTC first. Empty means UTC.
	Timezone string
}

// mandatoryGroups lists the observation groups in output order.
var mandatoryGroups = []string{
	"wind", "ceiling", "visibility", "air_temperature", "dew_point", "sea_level_pressure",
}

// aggregableColumns are the columns that survive a rollup: continuous
// quantities where a bucket mean is meaningful.
var aggregableColumns = map[string]bool{
	"wind.speed_rate":               true,
	"ceiling.ceiling_height":        true,
	"visibility.distance":           true,
	"air_temperature.temperature_c": true,
	"air_temperature.temperature_f": true,
	"dew_point.temperature_c":       true,
	"dew_point.temperature_f":       true,
	"sea_level_pressure.pressure":   true,
}

// FetchTable fetches the station's records and flattens them into a
// time-indexed table, one column per selected field. With a Period it
// then applies the rollup engine to the aggregable columns. All option
// validation happens before any I/O.
func (f *Fetcher) FetchTable(ctx context.Context, usafID string, years []int, opts TableOptions) (timeseries.Table, error) {
	plan, err := buildPlan(opts)
	if err != nil {
		return timeseries.Table{}, err
	}

	records, err := f.FetchRecords(ctx, usafID, years)
	if err != nil {
		return timeseries.Table{}, err
	}

	table := buildTable(records, plan.cols)

	if !plan.period.IsZero() {
		table = table.Filter(func(name string) bool { return aggregableColumns[name] })
		table, err = timeseries.Rollup(table, plan.period, plan.policy, plan.upsample)
		if err != nil {
			return timeseries.Table{}, err
		}
	}

	if plan.loc != nil {
		table = table.In(plan.loc)
	}
	return table, nil
}

type tablePlan struct {
	cols     []columnSpec
	period   timeseries.Period
	policy   timeseries.Policy
	upsample bool
	loc      *time.Location
}

func buildPlan(opts TableOptions) (tablePlan, error) {
	plan := tablePlan{upsample: !opts.NoUpsample}

	groups, err := selectGroups(opts.Fields, opts.Exclude)
	if err != nil {
		return plan, err
	}

	if opts.IncludeControl {
		plan.cols = append(plan.cols, controlColumns()...)
	}
	for _, g := range groups {
		plan.cols = append(plan.cols, groupColumns(g)...)
	}

	if opts.DropQualityCodes {
		kept := plan.cols[:0]
		for _, c := range plan.cols {
			if !c.quality {
				kept = append(kept, c)
			}
		}
		plan.cols = kept
	}

	switch strings.ToLower(opts.TempScale) {
	case "":
	case "c":
		plan.cols = dropMatching(plan.cols, "temperature_f")
	case "f":
		plan.cols = dropMatching(plan.cols, "temperature_c")
	default:
		return plan, &timeseries.ConfigError{Msg: "temp scale must be C or F, got " + opts.TempScale}
	}

	if opts.Period != "" {
		if plan.period, err = timeseries.ParsePeriod(opts.Period); err != nil {
			return plan, err
		}
		plan.policy = timeseries.PolicyEnding
		if opts.Policy != "" {
			if plan.policy, err = timeseries.ParsePolicy(string(opts.Policy)); err != nil {
				return plan, err
			}
		}
	}

	if opts.Timezone != "" && opts.Timezone != "UTC" {
		if plan.loc, err = time.LoadLocation(opts.Timezone); err != nil {
			return plan, &timeseries.ConfigError{Msg: "unknown timezone " + opts.Timezone}
		}
	}
	return plan, nil
}

func selectGroups(fields, exclude []string) ([]string, error) {
	known := map[string]bool{}
	for _, g := range mandatoryGroups {
		known[g] = true
	}
	for _, g := range append(append([]string{}, fields...), exclude...) {
		if !known[g] {
			return nil, &timeseries.ConfigError{Msg: "unknown field group " + g}
		}
	}

	include := map[string]bool{}
	if fields == nil {
		for _, g := range mandatoryGroups {
			include[g] = true
		}
	} else {
		for _, g := range fields {
			include[g] = true
		}
	}
	for _, g := range exclude {
		delete(include, g)
	}

	var out []string
	for _, g := range mandatoryGroups {
		if include[g] {
			out = append(out, g)
		}
	}
	return out, nil
}

func dropMatching(cols []columnSpec, substr string) []columnSpec {
	kept := cols[:0]
	for _, c := range cols {
		if !strings.Contains(c.name, substr) {
			kept = append(kept, c)
		}
	}
	return kept
}

// columnSpec describes one output column and how to read it off a
// record. Exactly one of float and str is set.
type columnSpec struct {
	name    string
	quality bool
	float   func(r isd.Record) float64
	str     func(r isd.Record) string
}

func buildTable(records []isd.Record, cols []columnSpec) timeseries.Table {
	t := timeseries.Table{Index: make([]time.Time, len(records))}
	for i, rec := range records {
		t.Index[i] = rec.Control.Timestamp
	}

	for _, spec := range cols {
		c := timeseries.Column{Name: spec.name}
		if spec.float != nil {
			c.Floats = make([]float64, len(records))
			for i, rec := range records {
				c.Floats[i] = spec.float(rec)
			}
		} else {
			c.Strings = make([]string, len(records))
			for i, rec := range records {
				c.Strings[i] = spec.str(rec)
			}
		}
		t.Cols = append(t.Cols, c)
	}
	return t
}

func floatOf(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func floatOfInt(p *int) float64 {
	if p == nil {
		return math.NaN()
	}
	return float64(*p)
}

func stringOf(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func controlColumns() []columnSpec {
	return []columnSpec{
		{name: "total_variable_characters", float: func(r isd.Record) float64 {
			return float64(r.Control.TotalVariableCharacters)
		}},
		{name: "usaf_id", str: func(r isd.Record) string { return r.Control.USAFID }},
		{name: "wban_id", str: func(r isd.Record) string { return r.Control.WBANID }},
		{name: "data_source_flag", str: func(r isd.Record) string { return stringOf(r.Control.DataSourceFlag) }},
		{name: "latitude", float: func(r isd.Record) float64 { return floatOf(r.Control.Latitude) }},
		{name: "longitude", float: func(r isd.Record) float64 { return floatOf(r.Control.Longitude) }},
		{name: "report_type_code", str: func(r isd.Record) string { return stringOf(r.Control.ReportTypeCode) }},
		{name: "elevation", float: func(r isd.Record) float64 { return floatOfInt(r.Control.Elevation) }},
		{name: "call_letter_id", str: func(r isd.Record) string { return stringOf(r.Control.CallLetterID) }},
		{name: "qc_process_name", str: func(r isd.Record) string { return r.Control.QCProcessName }},
	}
}

func groupColumns(group string) []columnSpec {
	switch group {
	case "wind":
		return []columnSpec{
			{name: "wind.direction_angle", float: func(r isd.Record) float64 { return floatOfInt(r.Mandatory.Wind.DirectionAngle) }},
			{name: "wind.direction_quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.Wind.DirectionQualityCode }},
			{name: "wind.type_code", str: func(r isd.Record) string { return stringOf(r.Mandatory.Wind.TypeCode) }},
			{name: "wind.speed_rate", float: func(r isd.Record) float64 { return floatOf(r.Mandatory.Wind.SpeedRate) }},
			{name: "wind.speed_quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.Wind.SpeedQualityCode }},
		}
	case "ceiling":
		return []columnSpec{
			{name: "ceiling.ceiling_height", float: func(r isd.Record) float64 { return floatOfInt(r.Mandatory.Ceiling.CeilingHeight) }},
			{name: "ceiling.ceiling_quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.Ceiling.CeilingQualityCode }},
			{name: "ceiling.ceiling_determination_code", str: func(r isd.Record) string { return stringOf(r.Mandatory.Ceiling.CeilingDeterminationCode) }},
			{name: "ceiling.cavok_code", str: func(r isd.Record) string { return stringOf(r.Mandatory.Ceiling.CAVOKCode) }},
		}
	case "visibility":
		return []columnSpec{
			{name: "visibility.distance", float: func(r isd.Record) float64 { return floatOfInt(r.Mandatory.Visibility.Distance) }},
			{name: "visibility.distance_quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.Visibility.DistanceQualityCode }},
			{name: "visibility.variability_code", str: func(r isd.Record) string { return stringOf(r.Mandatory.Visibility.VariabilityCode) }},
			{name: "visibility.variability_quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.Visibility.VariabilityQualityCode }},
		}
	case "air_temperature":
		return []columnSpec{
			{name: "air_temperature.temperature_c", float: func(r isd.Record) float64 { return floatOf(r.Mandatory.AirTemperature.TemperatureC) }},
			{name: "air_temperature.temperature_f", float: func(r isd.Record) float64 { return floatOf(r.Mandatory.AirTemperature.TemperatureF()) }},
			{name: "air_temperature.quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.AirTemperature.QualityCode }},
		}
	case "dew_point":
		return []columnSpec{
			{name: "dew_point.temperature_c", float: func(r isd.Record) float64 { return floatOf(r.Mandatory.DewPoint.TemperatureC) }},
			{name: "dew_point.temperature_f", float: func(r isd.Record) float64 { return floatOf(r.Mandatory.DewPoint.TemperatureF()) }},
			{name: "dew_point.quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.DewPoint.QualityCode }},
		}
	case "sea_level_pressure":
		return []columnSpec{
			{name: "sea_level_pressure.pressure", float: func(r isd.Record) float64 { return floatOf(r.Mandatory.SeaLevelPressure.Pressure) }},
			{name: "sea_level_pressure.quality_code", quality: true, str: func(r isd.Record) string { return r.Mandatory.SeaLevelPressure.QualityCode }},
		}
	}
	return nil
}
