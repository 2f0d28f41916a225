package platform

import (
	"net/url"
	"strings"
)

// Tag identifies the map site a place was scraped from.
type Tag string

const (
	Naver   Tag = "naver"
	Kakao   Tag = "kakao"
	Unknown Tag = "unknown"
)

const defaultColor = "#666666"

var displayNames = map[Tag]string{
	Naver: "네이버지도",
	Kakao: "카카오맵",
}

var colors = map[Tag]string{
	Naver: "#03c75a",
	Kakao: "#FFE300",
}

// Detect classifies a page URL by hostname and path. Pure lookup, no I/O.
func Detect(u *url.URL) Tag {
	if u == nil {
		return Unknown
	}

	host := u.Hostname()
	switch {
	case strings.Contains(host, "naver.com") && (strings.Contains(u.Path, "/map") || strings.Contains(host, "map.naver.com")):
		return Naver
	case strings.Contains(host, "kakao.com"):
		return Kakao
	default:
		return Unknown
	}
}

// DetectString parses raw and classifies it; unparseable input is Unknown.
func DetectString(raw string) Tag {
	u, err := url.Parse(raw)
	if err != nil {
		return Unknown
	}
	return Detect(u)
}

func Supported() []Tag {
	return []Tag{Naver, Kakao}
}

// DisplayName returns the localized site name, falling back to the tag itself.
func DisplayName(t Tag) string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// Color returns the brand color for a platform, neutral gray for unknown tags.
func Color(t Tag) string {
	if c, ok := colors[t]; ok {
		return c
	}
	return defaultColor
}

// IsMapSite reports whether the URL belongs to one of the supported map
// hosts. Used by shortcut and context-menu entry points before any
// extraction is attempted.
func IsMapSite(raw string) bool {
	for _, host := range []string{"map.naver.com", "map.kakao.com", "place.map.kakao.com"} {
		if strings.Contains(raw, host) {
			return true
		}
	}
	return false
}
