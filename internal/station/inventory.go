package station

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// MinYear is the oldest station-year tracked in the inventory. Older
// files exist on the archive but are too sparse to grade usefully.
const MinYear = 2005

// monthColumns maps the inventory's 3-letter month headers to month
// numbers, in calendar order.
var monthColumns = [12]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

const historyDateLayout = "20060102"

// ParseHistory reads the NOAA isd-history.csv file and returns one
// Station per US station with usable coordinates. When a USAF
// identifier appears under several WBAN identifiers, the row with the
// latest END date wins and the older WBAN identifiers are collected
// into WBANIDs.
func ParseHistory(r io.Reader) ([]Station, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read history header: %w", err)
	}
	col, err := columnIndex(header, "USAF", "WBAN", "STATION NAME", "CTRY", "STATE", "ICAO", "LAT", "LON", "ELEV(M)", "END")
	if err != nil {
		return nil, err
	}

	type candidate struct {
		st    Station
		end   time.Time
		ctry  string
		order int
	}
	best := map[string]*candidate{}
	wbans := map[string][]string{}
	var order []string

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history line %d: %w", line, err)
		}

		usaf := rec[col["USAF"]]
		wban := rec[col["WBAN"]]
		wbans[usaf] = append(wbans[usaf], wban)

		end, _ := time.Parse(historyDateLayout, rec[col["END"]])

		c := &candidate{
			st: Station{
				USAFID:       usaf,
				RecentWBANID: wban,
				Name:         rec[col["STATION NAME"]],
				ICAOCode:     rec[col["ICAO"]],
				State:        rec[col["STATE"]],
			},
			end:  end,
			ctry: rec[col["CTRY"]],
		}
		c.st.Latitude = parseCoordinate(rec[col["LAT"]])
		c.st.Longitude = parseCoordinate(rec[col["LON"]])
		if elev := parseCoordinate(rec[col["ELEV(M)"]]); elev != 0 {
			c.st.Elevation = &elev
		}

		prev, seen := best[usaf]
		if !seen {
			order = append(order, usaf)
			best[usaf] = c
		} else if end.After(prev.end) {
			best[usaf] = c
		}
	}

	var stations []Station
	for _, usaf := range order {
		c := best[usaf]
		if usaf == "999999" || c.ctry != "US" || c.st.Latitude == 0 || c.st.Longitude == 0 {
			continue
		}
		c.st.WBANIDs = wbans[usaf]
		stations = append(stations, c.st)
	}
	return stations, nil
}

// parseCoordinate reads a signed decimal, tolerating the "+" prefix the
// history file puts on positive values. Unparseable or absent values
// come back as 0, which the caller treats as missing.
func parseCoordinate(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "+"), 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseInventory reads the NOAA isd-inventory.csv file and returns one
// FileCount per station-year at or after MinYear. keep filters by USAF
// identifier; nil keeps everything. now bounds the report: months after
// it are ignored, and the month containing it only counts its elapsed
// hours, so a fresh year is not graded low for data it could not have
// yet.
func ParseInventory(r io.Reader, keep func(usafID string) bool, now time.Time) ([]FileCount, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read inventory header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	cols := append([]string{"usaf", "wban", "year"}, monthColumns[:]...)
	col, err := columnIndex(header, cols...)
	if err != nil {
		return nil, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var out []FileCount
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read inventory line %d: %w", line, err)
		}

		fc := FileCount{
			USAFID: rec[col["usaf"]],
			WBANID: rec[col["wban"]],
		}
		if fc.Year, err = strconv.Atoi(rec[col["year"]]); err != nil {
			return nil, fmt.Errorf("inventory line %d: year %q: %w", line, rec[col["year"]], err)
		}
		if fc.Year < MinYear || (keep != nil && !keep(fc.USAFID)) {
			continue
		}

		var hoursInYear float64
		for m := 0; m < 12; m++ {
			n, err := strconv.Atoi(strings.TrimSpace(rec[col[monthColumns[m]]]))
			if err != nil {
				return nil, fmt.Errorf("inventory line %d: %s count %q: %w", line, monthColumns[m], rec[col[monthColumns[m]]], err)
			}
			fc.MonthCounts[m] = n

			monthStart := time.Date(fc.Year, time.Month(m+1), 1, 0, 0, 0, 0, time.UTC)
			if monthStart.After(today) {
				continue
			}
			fc.Count += n
			if n == 0 {
				fc.NZeroMonths++
			}
			if fc.Year == today.Year() && time.Month(m+1) == today.Month() {
				hoursInYear += today.Sub(monthStart).Hours()
			} else {
				hoursInYear += float64(daysInMonth(fc.Year, time.Month(m+1))) * 24
			}
		}

		fc.Quality = gradeQuality(fc.Count, hoursInYear, fc.NZeroMonths)
		out = append(out, fc)
	}
	return out, nil
}

// gradeQuality grades a station-year against the hours it could have
// reported. Hourly stations report about once per hour, so a count near
// the hour total means dense coverage.
func gradeQuality(count int, hoursInYear float64, nZeroMonths int) Quality {
	switch {
	case float64(count) >= 0.9*hoursInYear && nZeroMonths == 0:
		return QualityHigh
	case float64(count) >= 0.5*hoursInYear && nZeroMonths <= 2:
		return QualityMedium
	default:
		return QualityLow
	}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func columnIndex(header []string, names ...string) (map[string]int, error) {
	col := make(map[string]int, len(names))
	for i, h := range header {
		col[h] = i
	}
	for _, name := range names {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}
