package browser

import (
	"context"
	"time"

	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

// LocationFunc reads the tab's current URL.
type LocationFunc func(ctx context.Context) (string, error)

// Poller watches a tab's URL on a fixed interval. Map sites are single
// page apps, navigation rarely fires load events, so polling is the
// reliable way to notice the user moved to another place.
type Poller struct {
	interval time.Duration
	location LocationFunc
	onChange func(oldURL, newURL string)
}

func NewPoller(interval time.Duration, location LocationFunc, onChange func(oldURL, newURL string)) *Poller {
	return &Poller{
		interval: interval,
		location: location,
		onChange: onChange,
	}
}

// Run polls until the context ends. Read errors are logged and the
// poll continues; a flaky tab should not kill the session.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last, err := p.location(ctx)
	if err != nil {
		logger.Log.Debug().Err(err).Msg("initial location read failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, err := p.location(ctx)
			if err != nil {
				logger.Log.Debug().Err(err).Msg("location read failed")
				continue
			}
			if current != last {
				old := last
				last = current
				p.onChange(old, current)
			}
		}
	}
}
