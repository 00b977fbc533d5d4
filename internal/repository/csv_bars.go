package repository

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"TrendPull/internal/domain/models"
	"TrendPull/pkg/util"
)

// timeHeaders are accepted names for the timestamp column, in priority order.
var timeHeaders = []string{"timestamp", "datetime", "date", "time", "t", "bucket"}

var priceHeaders = []string{"open", "high", "low", "close", "volume"}

// ReadBarsFile opens path and reads it with ReadBars.
func ReadBarsFile(path, symbol string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	defer f.Close()
	return ReadBars(f, symbol)
}

// ReadBars parses a headered OHLCV CSV. Header names are matched case-insensitively.
// A missing required column, an unparseable cell or a file without data rows is a
// *models.SchemaError; ordering is checked later by the lag stage.
func ReadBars(r io.Reader, symbol string) ([]models.Bar, error) {
	cr := csv.NewReader(decodeBOM(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &models.SchemaError{Column: "timestamp", Row: -1, Reason: "empty input"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var bars []models.Bar
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		b, err := parseBar(rec, idx, row)
		if err != nil {
			return nil, err
		}
		b.Symbol = symbol
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, &models.SchemaError{Column: "timestamp", Row: -1, Reason: "empty input"}
	}
	return bars, nil
}

func headerIndex(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	idx := make(map[string]int, 6)
	for _, name := range timeHeaders {
		if i, ok := pos[name]; ok {
			idx["timestamp"] = i
			break
		}
	}
	if _, ok := idx["timestamp"]; !ok {
		return nil, &models.SchemaError{Column: "timestamp", Row: -1, Reason: "required column not found"}
	}
	for _, name := range priceHeaders {
		i, ok := pos[name]
		if !ok {
			return nil, &models.SchemaError{Column: name, Row: -1, Reason: "required column not found"}
		}
		idx[name] = i
	}
	return idx, nil
}

func parseBar(rec []string, idx map[string]int, row int) (models.Bar, error) {
	cell := func(name string) (string, error) {
		i := idx[name]
		if i >= len(rec) {
			return "", &models.SchemaError{Column: name, Row: row, Reason: "short record"}
		}
		return strings.TrimSpace(strings.Trim(rec[i], `"`)), nil
	}
	num := func(name string) (float64, error) {
		s, err := cell(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, &models.SchemaError{Column: name, Row: row, Reason: fmt.Sprintf("not a number: %q", s)}
		}
		return v, nil
	}

	ts, err := cell("timestamp")
	if err != nil {
		return models.Bar{}, err
	}
	t, ok := util.ParseTime(ts)
	if !ok {
		return models.Bar{}, &models.SchemaError{Column: "timestamp", Row: row, Reason: fmt.Sprintf("unparseable time %q", ts)}
	}
	b := models.Bar{Time: t}
	dst := []*float64{&b.Open, &b.High, &b.Low, &b.Close, &b.Volume}
	for i, name := range priceHeaders {
		if *dst[i], err = num(name); err != nil {
			return models.Bar{}, err
		}
	}
	return b, nil
}

// decodeBOM transcodes UTF-16 input to UTF-8. Exports from spreadsheet tools
// sometimes arrive that way.
func decodeBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	b, _ := br.Peek(2)
	if len(b) == 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		return transform.NewReader(br, dec)
	}
	return br
}
