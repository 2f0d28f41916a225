package exchange

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/nap4595/CustomPlaceDB/pkg/models"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

// utf8BOM keeps Excel from mangling Korean text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportCSV renders every list as its own section. Each section opens
// with a "=== name ===" marker row and its own header, because custom
// field columns differ per list.
func ExportCSV(lists *models.Lists) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	first := true
	var outerErr error

	lists.Range(func(id string, l *models.List) bool {
		if !first {
			// Blank line between sections.
			if err := w.Write([]string{""}); err != nil {
				outerErr = err
				return false
			}
		}
		first = false

		if err := w.Write([]string{"=== " + l.Name + " ==="}); err != nil {
			outerErr = err
			return false
		}

		if len(l.Places) == 0 {
			if err := w.Write([]string{"저장된 장소가 없습니다."}); err != nil {
				outerErr = err
				return false
			}
			return true
		}

		header := []string{"장소명", "카테고리", "별점", "플랫폼"}
		for _, f := range l.CustomFields {
			header = append(header, f.Name)
		}
		header = append(header, "URL")
		if err := w.Write(header); err != nil {
			outerErr = err
			return false
		}

		for _, p := range l.Places {
			row := []string{p.Name, p.Category, ratingString(p.Rating), platformString(p.Platform)}
			for _, f := range l.CustomFields {
				row = append(row, p.CustomValues[f.Name])
			}
			row = append(row, p.URL)
			if err := w.Write(row); err != nil {
				outerErr = err
				return false
			}
		}
		return true
	})

	if outerErr != nil {
		return nil, outerErr
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func ratingString(r *float64) string {
	if r == nil {
		return ""
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

// platformString writes the raw tag. Records predating platform
// detection have no tag and count as naver.
func platformString(t platform.Tag) string {
	if t == "" {
		return "네이버"
	}
	return string(t)
}
