package tui

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	gochannel "github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Bus carries registry events, UI messages and UI action requests between
// the poller, the action runner and the bubbletea program. Everything stays
// in process.
type Bus struct {
	Router     *message.Router
	Publisher  message.Publisher
	Subscriber message.Subscriber

	runOnce sync.Once
}

func NewInMemoryBus() (*Bus, error) {
	logger := zerologAdapter{l: log.Logger.With().Str("component", "bus").Logger()}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 1024}, logger)

	r, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, errors.Wrap(err, "new watermill router")
	}
	// handler panics become errors
	r.AddMiddleware(middleware.Recoverer)

	return &Bus{Router: r, Publisher: pubsub, Subscriber: pubsub}, nil
}

// Handle subscribes fn to topic. Messages are acked whatever fn returns;
// undecodable payloads are logged and dropped.
func (b *Bus) Handle(name, topic string, fn func(ctx context.Context, env Envelope) error) {
	b.Router.AddConsumerHandler(name, topic, b.Subscriber, func(msg *message.Message) error {
		defer msg.Ack()
		env, err := DecodeEnvelope(msg.Payload)
		if err != nil {
			log.Warn().Err(err).Str("handler", name).Msg("dropping message")
			return nil
		}
		ctx := msg.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := fn(ctx, env); err != nil {
			log.Debug().Err(err).Str("handler", name).Str("type", env.Type).Msg("handler failed")
		}
		return nil
	})
}

// Run blocks until ctx is cancelled. Calling it twice is a no-op.
func (b *Bus) Run(ctx context.Context) error {
	var runErr error
	b.runOnce.Do(func() {
		go func() {
			<-ctx.Done()
			_ = b.Router.Close()
		}()
		runErr = b.Router.Run(ctx)
	})
	return runErr
}

// zerologAdapter routes watermill's own logging into zerolog. Info is demoted
// to debug.
type zerologAdapter struct {
	l zerolog.Logger
}

var _ watermill.LoggerAdapter = zerologAdapter{}

func withFields(e *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

func (a zerologAdapter) Error(msg string, err error, fields watermill.LogFields) {
	withFields(a.l.Error().Err(err), fields).Msg(msg)
}

func (a zerologAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.l.Debug(), fields).Msg(msg)
}

func (a zerologAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.l.Debug(), fields).Msg(msg)
}

func (a zerologAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.l.Trace(), fields).Msg(msg)
}

func (a zerologAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	c := a.l.With()
	for k, v := range fields {
		c = c.Interface(k, v)
	}
	return zerologAdapter{l: c.Logger()}
}
