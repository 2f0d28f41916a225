package prefs

import (
	"context"
	"fmt"

	"github.com/nap4595/CustomPlaceDB/internal/storage"
)

// DefaultTheme applies until the user picks another one.
const DefaultTheme = "theme1"

// Colors is a theme palette.
type Colors struct {
	Main   string `json:"main"`
	Sub    string `json:"sub"`
	Accent string `json:"accent"`
	Border string `json:"border"`
}

var themeOrder = []string{"theme1", "theme2", "theme3", "theme4", "theme5"}

var themeColors = map[string]Colors{
	"theme1": {Main: "#3E3F29", Sub: "#F8F7F3", Accent: "#BCA88D", Border: "#7D8D86"},
	"theme2": {Main: "#1C352D", Sub: "#F9F6F3", Accent: "#A6B28B", Border: "#F5C9B0"},
	"theme3": {Main: "#8AA624", Sub: "#FFFFF0", Accent: "#DBE4C9", Border: "#FEA405"},
	"theme4": {Main: "#663399", Sub: "#F8F4FF", Accent: "#9966CC", Border: "#D1C4E9"},
	"theme5": {Main: "#5B6BC0", Sub: "#E8EAF6", Accent: "#9FA8DA", Border: "#7986CB"},
}

// Themes returns the theme ids in display order.
func Themes() []string {
	return append([]string(nil), themeOrder...)
}

// ThemeColors returns the palette for a theme id, falling back to the
// default palette for unknown ids.
func ThemeColors(theme string) Colors {
	if c, ok := themeColors[theme]; ok {
		return c
	}
	return themeColors[DefaultTheme]
}

// Valid reports whether theme is a known theme id.
func Valid(theme string) bool {
	_, ok := themeColors[theme]
	return ok
}

// Prefs persists user preferences. Currently that is just the theme.
type Prefs struct {
	backend storage.Store
}

func New(backend storage.Store) *Prefs {
	return &Prefs{backend: backend}
}

// Theme returns the stored theme, or the default when nothing is stored
// or the stored value is no longer a known theme.
func (p *Prefs) Theme(ctx context.Context) string {
	data, err := p.backend.Get(ctx, storage.KeyTheme)
	if err != nil {
		return DefaultTheme
	}
	theme := string(data)
	if !Valid(theme) {
		return DefaultTheme
	}
	return theme
}

// SetTheme stores the theme. Unknown ids are rejected.
func (p *Prefs) SetTheme(ctx context.Context, theme string) error {
	if !Valid(theme) {
		return fmt.Errorf("unknown theme: %s", theme)
	}
	return p.backend.Set(ctx, storage.KeyTheme, []byte(theme))
}

// WatchTheme delivers the theme id after every change.
func (p *Prefs) WatchTheme(ctx context.Context) (<-chan string, error) {
	raw, err := p.backend.Watch(ctx, storage.KeyTheme)
	if err != nil {
		return nil, err
	}

	out := make(chan string, 4)
	go func() {
		defer close(out)
		for data := range raw {
			theme := string(data)
			if !Valid(theme) {
				continue
			}
			select {
			case out <- theme:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
