package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nap4595/CustomPlaceDB/internal/fetchproxy"
	"github.com/nap4595/CustomPlaceDB/pkg/models"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

var (
	naverPlaceIDRegex = regexp.MustCompile(`/place/(\d+)`)
	naverRatingRegex  = regexp.MustCompile(`별점(\d+\.?\d*)`)
)

// Selector fallback chains for the pcmap detail page. The markup has
// churned between revisions; first non-empty match wins.
var (
	naverNameSelectors     = []string{"#_title .GHAhO", ".GHAhO", ".LylZZ .GHAhO"}
	naverCategorySelectors = []string{"#_title .lnJFt", ".lnJFt", ".LylZZ .lnJFt"}
	naverRatingSelector    = ".PXMot.LXIwF"
)

// Naver extracts places from map.naver.com. The map page itself is a
// shell, so the place id is taken from the URL and the detail markup
// is fetched from pcmap.place.naver.com through the fetch proxy.
type Naver struct {
	proxy fetchproxy.Proxy
}

func NewNaver(proxy fetchproxy.Proxy) *Naver {
	return &Naver{proxy: proxy}
}

func (e *Naver) Platform() platform.Tag {
	return platform.Naver
}

func (e *Naver) CanExtract(p Page) bool {
	if p.URL == nil || platform.Detect(p.URL) != platform.Naver {
		return false
	}
	return naverPlaceIDRegex.MatchString(p.URL.String())
}

func (e *Naver) Extract(ctx context.Context, p Page) (*models.Place, error) {
	if p.URL == nil {
		return nil, nil
	}
	id := placeIDFromPath(p.URL.String())
	if id == "" {
		return nil, nil
	}

	detailURL := fmt.Sprintf("https://pcmap.place.naver.com/place/%s", id)
	result, err := e.proxy.Fetch(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("fetch place info: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("fetch place info: %s", result.Error)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.Data))
	if err != nil {
		return nil, fmt.Errorf("parse place html: %w", err)
	}

	name := firstText(doc, naverNameSelectors)
	if name == "" {
		name = placeholderName
	}
	category := firstText(doc, naverCategorySelectors)
	if category == "" {
		category = placeholderCategory
	}

	return &models.Place{
		ID:           id,
		Name:         name,
		Platform:     platform.Naver,
		Category:     category,
		Rating:       extractNaverRating(doc),
		URL:          p.URL.String(),
		CustomValues: map[string]string{},
	}, nil
}

func placeIDFromPath(rawURL string) string {
	if matches := naverPlaceIDRegex.FindStringSubmatch(rawURL); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// extractNaverRating parses the localized "별점4.5" badge text.
func extractNaverRating(doc *goquery.Document) *float64 {
	text := strings.TrimSpace(doc.Find(naverRatingSelector).First().Text())
	matches := naverRatingRegex.FindStringSubmatch(text)
	if len(matches) < 2 {
		return nil
	}
	rating, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return nil
	}
	return &rating
}
