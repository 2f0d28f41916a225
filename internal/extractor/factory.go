package extractor

import (
	"fmt"

	"github.com/nap4595/CustomPlaceDB/internal/fetchproxy"
	"github.com/nap4595/CustomPlaceDB/pkg/platform"
)

// ErrUnsupportedPlatform is returned for tags without a registered
// extractor, including unknown.
var ErrUnsupportedPlatform = fmt.Errorf("unsupported platform")

// Factory resolves the extractor for a platform tag. Adding a platform
// means one new strategy type and one new case here.
type Factory struct {
	proxy fetchproxy.Proxy
}

func NewFactory(proxy fetchproxy.Proxy) *Factory {
	return &Factory{proxy: proxy}
}

// Get returns the extractor for the given tag.
func (f *Factory) Get(tag platform.Tag) (Extractor, error) {
	switch tag {
	case platform.Naver:
		return NewNaver(f.proxy), nil
	case platform.Kakao:
		return NewKakao(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, tag)
	}
}

// ForPage detects the page's platform and returns its extractor.
func (f *Factory) ForPage(p Page) (Extractor, error) {
	return f.Get(platform.Detect(p.URL))
}
