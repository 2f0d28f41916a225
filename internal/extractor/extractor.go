// Package extractor turns a map-site page into a normalized place
// record. Each supported platform gets one strategy; the factory
// dispatches on the detected platform tag.
package extractor

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nap4595/CustomPlaceDB/pkg/models"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

const (
	placeholderName     = "이름 없음"
	placeholderCategory = "카테고리 없음"
)

// Page is the extractor's view of the current browser page: its URL
// and, when available, the parsed live DOM.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// Extractor is one platform's extraction strategy.
//
// CanExtract must be cheap and side-effect-free; it runs on every URL
// poll tick. Extract may suspend for a remote fetch. A nil place with
// a nil error means the page had no extractable place; a non-nil error
// is logged by the caller and presented as a generic failure, never
// propagated raw.
type Extractor interface {
	Platform() platform.Tag
	CanExtract(p Page) bool
	Extract(ctx context.Context, p Page) (*models.Place, error)
}

// firstText walks an ordered selector fallback chain and returns the
// first non-empty trimmed text match.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
