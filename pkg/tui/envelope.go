package tui

import (
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
)

// Envelope is the JSON body of every bus message: a type from topics.go and
// the payload for that type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, errors.Wrap(err, "unmarshal envelope")
	}
	if env.Type == "" {
		return Envelope{}, errors.New("envelope without type")
	}
	return env, nil
}

// payloadOf decodes the payload of env as a T.
func payloadOf[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 {
		return v, errors.Errorf("%s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, errors.Wrapf(err, "unmarshal %s payload", env.Type)
	}
	return v, nil
}

func publish(pub message.Publisher, topic, typ string, payload any) error {
	if pub == nil {
		return errors.New("missing publisher")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s payload", typ)
	}
	body, err := json.Marshal(Envelope{Type: typ, Payload: raw})
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	if err := pub.Publish(topic, message.NewMessage(watermill.NewUUID(), body)); err != nil {
		return errors.Wrapf(err, "publish %s", typ)
	}
	return nil
}
