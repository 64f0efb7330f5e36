package tui

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultRefreshInterval = 30 * time.Second

// Poller asks for a full refresh on start and then every Interval. The
// fetches themselves happen in the action runner.
type Poller struct {
	Interval time.Duration
	Pub      message.Publisher
	// Ready, when set, delays the first refresh until it is closed. The
	// in-memory bus drops messages published before its handlers subscribe.
	Ready <-chan struct{}
}

func (p *Poller) Run(ctx context.Context) error {
	if p.Pub == nil {
		return errors.New("missing Publisher")
	}
	if p.Interval <= 0 {
		p.Interval = DefaultRefreshInterval
	}

	if p.Ready != nil {
		select {
		case <-ctx.Done():
			return nil
		case <-p.Ready:
		}
	}

	t := time.NewTicker(p.Interval)
	defer t.Stop()

	for {
		if err := PublishAction(p.Pub, ActionRequest{Kind: ActionRefresh}); err != nil {
			log.Warn().Err(err).Msg("publish refresh")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}
