package fetchproxy

import (
	"context"

	"github.com/nap4595/CustomPlaceDB/internal/bus"
)

// BusProxy relays fetches over the message bus to the background
// process, which owns the outbound HTTP client. View sessions use this
// so only one component talks to the outside world.
type BusProxy struct {
	bus *bus.Bus
}

func NewBusProxy(b *bus.Bus) *BusProxy {
	return &BusProxy{bus: b}
}

func (p *BusProxy) Fetch(ctx context.Context, url string) (*Result, error) {
	var result Result
	if err := p.bus.Request(ctx, bus.ActionFetchPlaceInfo, map[string]string{"url": url}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
