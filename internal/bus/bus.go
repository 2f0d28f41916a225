package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

// Actions exchanged between view agents and the background service.
const (
	ActionFetchPlaceInfo      = "fetchPlaceInfo"
	ActionGetCurrentPlaceData = "getCurrentPlaceData"
	ActionAddPlace            = "addPlace"
	ActionShowNotification    = "showNotification"
)

const subjectPrefix = "placedb.views."

// Request is the wire envelope for a view message.
type Request struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the wire envelope for a reply. Exactly one of Data and
// Error is meaningful depending on Success.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Handler processes one request payload and returns the reply data.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Bus is a thin request/reply layer over core NATS. Each action gets
// its own subject; handlers join a queue group so running several
// background instances stays safe.
type Bus struct {
	nc   *nats.Conn
	subs []*nats.Subscription
}

func Connect(url string) (*Bus, error) {
	log := logger.Log

	opts := []nats.Option{
		nats.Name("customplacedb"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Warn().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Error().Err(err).Msg("nats disconnected")
			}
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Info().Str("url", url).Msg("nats connected")
	return &Bus{nc: nc}, nil
}

// Handle registers h for an action. Instances sharing a group split the
// load; a group of its own makes an instance answer independently. The
// reply is sent exactly once, carrying either the handler's data or its
// error.
func (b *Bus) Handle(action, group string, h Handler) error {
	sub, err := b.nc.QueueSubscribe(subjectPrefix+action, group, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var req Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			respond(msg, Response{Success: false, Error: "malformed request: " + err.Error()})
			return
		}

		data, err := h(ctx, req.Payload)
		if err != nil {
			logger.Log.Error().Err(err).Str("action", action).Msg("handler failed")
			respond(msg, Response{Success: false, Error: err.Error()})
			return
		}

		encoded, err := json.Marshal(data)
		if err != nil {
			respond(msg, Response{Success: false, Error: "encode reply: " + err.Error()})
			return
		}
		respond(msg, Response{Success: true, Data: encoded})
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", action, err)
	}

	b.subs = append(b.subs, sub)
	return nil
}

func respond(msg *nats.Msg, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error().Err(err).Msg("encode response failed")
		return
	}
	if err := msg.Respond(data); err != nil {
		logger.Log.Error().Err(err).Msg("respond failed")
	}
}

// Request sends an action and decodes the successful reply into out.
// A handler error comes back as a plain error; out may be nil when the
// caller only cares about success.
func (b *Bus) Request(ctx context.Context, action string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	body, err := json.Marshal(Request{Action: action, Payload: encoded})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	msg, err := b.nc.RequestWithContext(ctx, subjectPrefix+action, body)
	if err != nil {
		return fmt.Errorf("request %s: %w", action, err)
	}

	var resp Response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("%s: %s", action, resp.Error)
	}
	if out != nil {
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}

// Listen registers fn for fire-and-forget messages sent with Notify.
func (b *Bus) Listen(action string, fn func(payload json.RawMessage)) error {
	sub, err := b.nc.Subscribe(subjectPrefix+action, func(msg *nats.Msg) {
		var req Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			logger.Log.Debug().Err(err).Str("action", action).Msg("malformed notification")
			return
		}
		fn(req.Payload)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", action, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Notify publishes an action without waiting for a reply.
func (b *Bus) Notify(action string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	body, err := json.Marshal(Request{Action: action, Payload: encoded})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return b.nc.Publish(subjectPrefix+action, body)
}

func (b *Bus) Close() {
	for _, sub := range b.subs {
		_ = sub.Unsubscribe()
	}
	b.nc.Close()
}
