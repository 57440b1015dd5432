// Package protocol defines the wire envelope every message rides in, the
// closed catalog of message types, and the failure taxonomy surfaced to
// clients. It knows nothing about transports or handlers.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// Version is the only protocol version this server speaks.
const Version = 1

// Envelope wraps every inbound and outbound message.
// Replies answering a specific request carry ReplyTo = <requesting id>.
type Envelope struct {
	V       int             `json:"v"`
	T       Type            `json:"t"`
	Id      string          `json:"id"`
	Ts      int64           `json:"ts"`
	ReplyTo string          `json:"reply_to,omitempty"`
	Body    json.RawMessage `json:"body,omitempty"`
}

// Decode parses an inbound frame and validates envelope shape. Body
// contents are validated later by the owning handler.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.T == "" {
		return nil, errors.New("missing message type")
	}
	if env.V != 0 && env.V != Version {
		return nil, errors.New("unsupported protocol version")
	}
	return &env, nil
}

// DecodeBody unmarshals an envelope body into the handler's request struct.
// A missing body decodes as the zero value so handlers validate fields, not
// presence.
func DecodeBody(env *Envelope, dst any) error {
	if len(env.Body) == 0 {
		return nil
	}
	return json.Unmarshal(env.Body, dst)
}

// Reply builds an envelope answering the request env.
func Reply(env *Envelope, t Type, body any) []byte {
	return marshal(&Envelope{
		V:       Version,
		T:       t,
		Id:      newId(t),
		Ts:      time.Now().UnixMilli(),
		ReplyTo: env.Id,
		Body:    mustBody(body),
	})
}

// Event builds a server-initiated envelope with no reply_to.
func Event(t Type, body any) []byte {
	return marshal(&Envelope{
		V:    Version,
		T:    t,
		Id:   newId(t),
		Ts:   time.Now().UnixMilli(),
		Body: mustBody(body),
	})
}

// ErrorBody is the body of every error envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorReply builds an error envelope addressed at the request env. env may
// be nil when the inbound frame never parsed.
func ErrorReply(env *Envelope, f *Failure) []byte {
	out := &Envelope{
		V:    Version,
		T:    TypeError,
		Id:   newId(TypeError),
		Ts:   time.Now().UnixMilli(),
		Body: mustBody(ErrorBody{Code: f.Code, Message: f.Message}),
	}
	if env != nil {
		out.ReplyTo = env.Id
	}
	return marshal(out)
}

func marshal(env *Envelope) []byte {
	raw, err := json.Marshal(env)
	if err != nil {
		// outbound envelopes are built from our own structs; a marshal
		// failure is a programming error
		panic(err)
	}
	return raw
}

func mustBody(body any) json.RawMessage {
	if body == nil {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return raw
}
