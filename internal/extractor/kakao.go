package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nap4595/CustomPlaceDB/pkg/models"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

const kakaoPlaceHost = "place.map.kakao.com"

var kakaoPlaceIDRegex = regexp.MustCompile(`place\.map\.kakao\.com/(\d+)`)

// Rating selectors, most specific first: the chained form matches the
// current markup, the bare class survived an older revision.
var kakaoRatingSelectors = []string{
	"div.unit_info > a.link_info > span.starred_grade > span.num_star",
	".num_star",
}

// Kakao extracts places from place.map.kakao.com straight out of the
// live DOM; no remote fetch is needed. The visible text nodes carry
// screen-reader label prefixes that must be stripped.
type Kakao struct{}

func NewKakao() *Kakao {
	return &Kakao{}
}

func (e *Kakao) Platform() platform.Tag {
	return platform.Kakao
}

func (e *Kakao) CanExtract(p Page) bool {
	if p.URL == nil || platform.Detect(p.URL) != platform.Kakao {
		return false
	}
	return strings.Contains(p.URL.Hostname(), kakaoPlaceHost)
}

func (e *Kakao) Extract(ctx context.Context, p Page) (*models.Place, error) {
	if p.URL == nil || p.Doc == nil {
		return nil, nil
	}

	name := labelText(p.Doc, ".tit_place", "장소명")
	if name == "" {
		name = placeholderName
	}
	category := labelText(p.Doc, ".info_cate", "장소 카테고리")
	if category == "" {
		category = placeholderCategory
	}

	// DOM extraction can succeed on pages without a numeric id in the
	// URL; fall back to a time-derived id so the place is still
	// addressable.
	id := kakaoPlaceID(p.URL.String())
	if id == "" {
		id = strconv.FormatInt(time.Now().UnixMilli(), 10)
	}

	return &models.Place{
		ID:           id,
		Name:         name,
		Platform:     platform.Kakao,
		Category:     category,
		Rating:       extractKakaoRating(p.Doc),
		URL:          p.URL.String(),
		CustomValues: map[string]string{},
	}, nil
}

func kakaoPlaceID(rawURL string) string {
	if matches := kakaoPlaceIDRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// labelText reads an element's text and strips the screen-reader label
// prefix Kakao nests inside it.
func labelText(doc *goquery.Document, selector, label string) string {
	text := doc.Find(selector).First().Text()
	return strings.TrimSpace(strings.Replace(text, label, "", 1))
}

func extractKakaoRating(doc *goquery.Document) *float64 {
	for _, sel := range kakaoRatingSelectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text == "" {
			continue
		}
		if rating, err := strconv.ParseFloat(text, 64); err == nil {
			return &rating
		}
	}
	return nil
}
