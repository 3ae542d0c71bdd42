package xlmap

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Header labels of the geocoding columns.
const (
	LabelLatitude  = "Широта"
	LabelLongitude = "Долгота"
	LabelAddress   = "Адрес"
)

const missingGeoColumnsStatus = "Ошибка: не найдены все обязательные колонки ('Широта', 'Долгота', 'Адрес'). Геокодинг пропущен."

// labelResolver matches header labels exactly, ignoring case and whitespace.
type labelResolver struct{}

func (labelResolver) FindColumns(headers []string, wanted map[string]string) map[string]int {
	found := make(map[string]int, len(wanted))
	for name, label := range wanted {
		key := foldLabel(label)
		for i, h := range headers {
			if foldLabel(h) == key {
				found[name] = i + 1
				break
			}
		}
	}
	return found
}

func foldLabel(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// geoColumns are the 1-based indices of the geocoding columns.
type geoColumns struct {
	lat, lon, addr int
}

// applyPostProcessing runs the geocoding pass selected by the bundle on the
// template's active sheet. Missing geocoding columns skip the pass with a
// status message; they never fail the task.
func (r *run) applyPostProcessing() {
	fn := r.bundle.postFunction()
	if fn != PostAddressToCoords && fn != PostCoordsToAddress {
		if fn != PostNone {
			r.log.Warn("unknown post-processing function", zap.String("function", fn))
		}
		r.log.Info("post-processing not requested", zap.String("function", fn))
		return
	}

	sheet := r.tpl.ActiveSheet()
	cols, ok := r.findGeoColumns(sheet)
	if !ok {
		r.log.Error("geocoding columns not found", zap.String("sheet", sheet))
		r.setStatus(missingGeoColumnsStatus)
		r.warn(missingGeoColumnsStatus)
		return
	}
	maxRow, err := r.tpl.MaxRow(sheet)
	if err != nil {
		r.log.Warn("geocoding skipped", zap.Error(err))
		return
	}

	var count int
	switch fn {
	case PostAddressToCoords:
		r.log.Info("geocoding addresses to coordinates", zap.Int("rows", maxRow-r.tStart))
		count = r.addressesToCoords(sheet, cols, maxRow)
	case PostCoordsToAddress:
		r.log.Info("geocoding coordinates to addresses", zap.Int("rows", maxRow-r.tStart))
		count = r.coordsToAddresses(sheet, cols, maxRow)
	}
	msg := fmt.Sprintf("Геокодинг '%s' завершен: %d записей.", fn, count)
	r.log.Info("geocoding finished", zap.String("function", fn), zap.Int("matched", count))
	r.setStatus(msg)
}

func (r *run) findGeoColumns(sheet string) (geoColumns, bool) {
	headers, err := r.tpl.RowValues(sheet, r.tStart)
	if err != nil {
		return geoColumns{}, false
	}
	found := r.opts.columns.FindColumns(headers, map[string]string{
		"lat":  LabelLatitude,
		"lon":  LabelLongitude,
		"addr": LabelAddress,
	})
	cols := geoColumns{lat: found["lat"], lon: found["lon"], addr: found["addr"]}
	return cols, cols.lat > 0 && cols.lon > 0 && cols.addr > 0
}

func (r *run) addressesToCoords(sheet string, cols geoColumns, maxRow int) int {
	if r.opts.geocoder == nil {
		return 0
	}
	var count int
	for row := r.tStart + 1; row <= maxRow; row++ {
		v, err := r.tpl.Value(sheet, NewCellRef(sheet, row, cols.addr))
		if err != nil {
			continue
		}
		addr, ok := v.(string)
		if !ok || strings.TrimSpace(addr) == "" {
			continue
		}
		latText, lonText, ok := r.opts.geocoder.Coords(addr)
		if !ok {
			continue
		}
		lat, latOK := toNumber(latText)
		lon, lonOK := toNumber(lonText)
		if !latOK || !lonOK {
			r.log.Warn("geocoded coordinates are not numbers",
				zap.String("lat", latText), zap.String("lon", lonText))
			continue
		}
		latErr := r.tpl.SetValue(sheet, NewCellRef(sheet, row, cols.lat), roundTo(lat, r.opts.rounding))
		lonErr := r.tpl.SetValue(sheet, NewCellRef(sheet, row, cols.lon), roundTo(lon, r.opts.rounding))
		if latErr != nil || lonErr != nil {
			r.log.Warn("coordinates not written", zap.Int("row", row))
			continue
		}
		count++
	}
	return count
}

// coordsToAddresses fills empty address cells from the nearest indexed
// address to the row's coordinates.
func (r *run) coordsToAddresses(sheet string, cols geoColumns, maxRow int) int {
	if r.opts.geocoder == nil {
		return 0
	}
	var count int
	for row := r.tStart + 1; row <= maxRow; row++ {
		cur, err := r.tpl.Value(sheet, NewCellRef(sheet, row, cols.addr))
		if err != nil || (cur != nil && strings.TrimSpace(valueText(cur)) != "") {
			continue
		}
		lat, ok := r.numberAt(sheet, row, cols.lat)
		if !ok {
			continue
		}
		lon, ok := r.numberAt(sheet, row, cols.lon)
		if !ok {
			continue
		}
		addr, ok := r.opts.geocoder.Address(lat, lon)
		if !ok {
			continue
		}
		if err := r.tpl.SetValue(sheet, NewCellRef(sheet, row, cols.addr), addr); err != nil {
			r.log.Warn("address not written", zap.Int("row", row), zap.Error(err))
			continue
		}
		count++
	}
	return count
}

func (r *run) numberAt(sheet string, row, col int) (float64, bool) {
	v, err := r.tpl.Value(sheet, NewCellRef(sheet, row, col))
	if err != nil || v == nil {
		return 0, false
	}
	return toNumber(v)
}

func roundTo(x float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(x*p) / p
}
