package exchange

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nap4595/CustomPlaceDB/pkg/models"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

func sampleLists() *models.Lists {
	rating := 4.5
	lists := models.NewLists()
	lists.Set("1000", &models.List{
		Name: "맛집",
		CustomFields: []models.CustomField{
			{Name: "메모", Type: models.FieldText},
			{Name: "재방문", Type: models.FieldSelect, Options: []string{"예", "아니오"}},
		},
		Places: []*models.Place{{
			ID:       "100",
			Name:     "공원칼국수",
			Platform: platform.Naver,
			Category: "칼국수",
			Rating:   &rating,
			URL:      "https://map.naver.com/v5/entry/place/100",
			CustomValues: map[string]string{
				"메모":  "점심, 웨이팅 있음",
				"재방문": "예",
			},
		}},
	})
	lists.Set("2000", &models.List{
		Name:   "카페",
		Places: []*models.Place{},
	})
	return lists
}

func TestExportImportRoundTrip(t *testing.T) {
	data, err := ExportJSON(sampleLists())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Version != FormatVersion {
		t.Errorf("version = %s", env.Version)
	}
	if env.ExportDate.IsZero() {
		t.Error("exportDate missing")
	}

	lists, err := ImportJSON(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := lists.IDs(); len(got) != 2 || got[0] != "1000" || got[1] != "2000" {
		t.Errorf("ids = %v", got)
	}
	l, _ := lists.Get("1000")
	if l.Places[0].CustomValues["메모"] != "점심, 웨이팅 있음" {
		t.Errorf("customValues = %v", l.Places[0].CustomValues)
	}
}

func TestImportBareMapping(t *testing.T) {
	raw := `{"1000":{"name":"맛집","customFields":[],"places":[]}}`

	lists, err := ImportJSON([]byte(raw))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	l, ok := lists.Get("1000")
	if !ok || l.Name != "맛집" {
		t.Errorf("list = %+v", l)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	cases := []string{
		`not json`,
		`[1,2,3]`,
		`{"lists":{"1":{"name":""}}}`,
		`{"lists":{"1":{"name":"ok","places":[{"id":""}]}}}`,
		`{"lists":{"1":{"name":"ok","customFields":[{"name":"등급","type":"select"}],"places":[]}}}`,
		`{"lists":{"1":{"name":"ok","customFields":[{"name":"등급","type":"select","options":[]}],"places":[]}}}`,
	}
	for _, raw := range cases {
		if _, err := ImportJSON([]byte(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestMergeRenamesCollisions(t *testing.T) {
	existing := sampleLists()

	incoming := models.NewLists()
	incoming.Set("1000", &models.List{Name: "맛집", Places: []*models.Place{}})
	incoming.Set("9000", &models.List{Name: "새로운목록", Places: []*models.Place{}})

	merged := Merge(existing, incoming)

	if merged.Len() != 4 {
		t.Fatalf("len = %d", merged.Len())
	}

	var names []string
	merged.Range(func(id string, l *models.List) bool {
		names = append(names, l.Name)
		return true
	})
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "맛집 (1)") {
		t.Errorf("collision not renamed: %v", names)
	}
	if !strings.Contains(joined, "새로운목록") {
		t.Errorf("clean name should survive: %v", names)
	}

	// Incoming ids never clobber existing ones.
	if l, ok := merged.Get("1000"); !ok || l.Name != "맛집" {
		t.Errorf("existing list touched: %+v", l)
	}
}

func TestMergePicksSmallestSuffix(t *testing.T) {
	existing := models.NewLists()
	existing.Set("1", &models.List{Name: "목록"})
	existing.Set("2", &models.List{Name: "목록 (1)"})

	incoming := models.NewLists()
	incoming.Set("9", &models.List{Name: "목록"})

	merged := Merge(existing, incoming)

	found := false
	merged.Range(func(id string, l *models.List) bool {
		if l.Name == "목록 (2)" {
			found = true
		}
		return true
	})
	if !found {
		t.Error("expected 목록 (2)")
	}
}

func TestMergeLeavesInputsAlone(t *testing.T) {
	existing := sampleLists()
	incoming := models.NewLists()
	incoming.Set("9000", &models.List{Name: "맛집"})

	Merge(existing, incoming)

	if l, _ := incoming.Get("9000"); l.Name != "맛집" {
		t.Errorf("incoming mutated: %s", l.Name)
	}
	if existing.Len() != 2 {
		t.Errorf("existing mutated: %d", existing.Len())
	}
}

func TestExportCSV(t *testing.T) {
	data, err := ExportCSV(sampleLists())
	if err != nil {
		t.Fatalf("exportCSV: %v", err)
	}

	if data[0] != 0xEF || data[1] != 0xBB || data[2] != 0xBF {
		t.Error("missing UTF-8 BOM")
	}

	text := string(data[3:])
	lines := strings.Split(strings.TrimSpace(text), "\n")

	if !strings.Contains(lines[0], "=== 맛집 ===") {
		t.Errorf("line 0 = %s", lines[0])
	}
	if got := strings.TrimSpace(lines[1]); got != "장소명,카테고리,별점,플랫폼,메모,재방문,URL" {
		t.Errorf("header = %s", got)
	}
	if !strings.Contains(lines[2], "공원칼국수") || !strings.Contains(lines[2], "4.5") {
		t.Errorf("row = %s", lines[2])
	}
	if !strings.Contains(lines[2], ",naver,") {
		t.Errorf("platform column should carry the raw tag: %s", lines[2])
	}
	// The memo contains a comma, so it must be quoted.
	if !strings.Contains(lines[2], `"점심, 웨이팅 있음"`) {
		t.Errorf("comma value should be quoted: %s", lines[2])
	}

	if !strings.Contains(text, "=== 카페 ===") {
		t.Error("second section missing")
	}
	// A list without places gets a placeholder row instead of a header.
	if !strings.Contains(text, "저장된 장소가 없습니다.") {
		t.Error("empty list placeholder missing")
	}
}

func TestExportCSVEmptyRating(t *testing.T) {
	lists := models.NewLists()
	lists.Set("1", &models.List{
		Name: "목록",
		Places: []*models.Place{{
			ID:       "1",
			Name:     "무평점",
			Platform: platform.Kakao,
			Category: "카페",
			URL:      "https://place.map.kakao.com/1",
		}},
	})

	data, err := ExportCSV(lists)
	if err != nil {
		t.Fatalf("exportCSV: %v", err)
	}
	if !strings.Contains(string(data), "무평점,카페,,kakao") {
		t.Errorf("nil rating should render empty: %s", data)
	}
}
