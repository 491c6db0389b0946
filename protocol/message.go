package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sharad1666/GD-AI-App/domain"
)

// Inbound message kinds.
const (
	KindJoin       = "join"
	KindOffer      = "offer"
	KindAnswer     = "answer"
	KindICE        = "ice"
	KindSpeaking   = "speaking"
	KindTranscript = "transcript"
	KindLeave      = "leave"
)

// ErrMalformed marks a frame that failed to decode or is missing a required
// field. The handler drops such frames without side effects.
var ErrMalformed = errors.New("malformed message")

// Message is an inbound signaling frame. Relay payloads (offer, answer,
// candidate) are kept as raw JSON so they pass through byte-for-byte.
type Message struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`
	To     string `json:"to,omitempty"`

	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	IsSpeaking *bool `json:"isSpeaking,omitempty"`

	UserName string `json:"userName,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Decode parses a frame and validates the required fields for its kind.
// Unknown kinds decode successfully and are ignored by the handler.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch msg.Type {
	case KindJoin:
		if msg.RoomID == "" || msg.Name == "" {
			return Message{}, fmt.Errorf("%w: join requires roomId and name", ErrMalformed)
		}
	case KindOffer:
		if msg.To == "" || len(msg.Offer) == 0 {
			return Message{}, fmt.Errorf("%w: offer requires to and offer", ErrMalformed)
		}
	case KindAnswer:
		if msg.To == "" || len(msg.Answer) == 0 {
			return Message{}, fmt.Errorf("%w: answer requires to and answer", ErrMalformed)
		}
	case KindICE:
		if msg.To == "" || len(msg.Candidate) == 0 {
			return Message{}, fmt.Errorf("%w: ice requires to and candidate", ErrMalformed)
		}
	case KindSpeaking:
		if msg.RoomID == "" || msg.IsSpeaking == nil {
			return Message{}, fmt.Errorf("%w: speaking requires roomId and isSpeaking", ErrMalformed)
		}
	case KindTranscript:
		if msg.RoomID == "" || msg.UserName == "" || msg.Text == "" {
			return Message{}, fmt.Errorf("%w: transcript requires roomId, userName and text", ErrMalformed)
		}
	}
	return msg, nil
}

// Payload returns the relay payload field for offer/answer/ice messages.
func (m Message) Payload() json.RawMessage {
	switch m.Type {
	case KindOffer:
		return m.Offer
	case KindAnswer:
		return m.Answer
	case KindICE:
		return m.Candidate
	}
	return nil
}

type existingUsers struct {
	Type  string          `json:"type"`
	Users []domain.Member `json:"users"`
}

type newUser struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

type userLeft struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type speaking struct {
	Type       string `json:"type"`
	UserID     string `json:"userId"`
	IsSpeaking bool   `json:"isSpeaking"`
}

type relay struct {
	Type      string          `json:"type"`
	From      string          `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// EncodeExistingUsers builds the member-list reply sent to a joiner. The
// users field is always present, as an empty array for the first member.
func EncodeExistingUsers(users []domain.Member) []byte {
	if users == nil {
		users = []domain.Member{}
	}
	return mustMarshal(existingUsers{Type: "existing-users", Users: users})
}

// EncodeNewUser builds the presence event broadcast on join.
func EncodeNewUser(id, name string) []byte {
	return mustMarshal(newUser{Type: "new-user", ID: id, Name: name})
}

// EncodeUserLeft builds the presence event broadcast on leave/disconnect.
func EncodeUserLeft(id string) []byte {
	return mustMarshal(userLeft{Type: "user-left", ID: id})
}

// EncodeSpeaking builds the speaking-indicator broadcast.
func EncodeSpeaking(userID string, isSpeaking bool) []byte {
	return mustMarshal(speaking{Type: "speaking", UserID: userID, IsSpeaking: isSpeaking})
}

// EncodeRelay builds an offer/answer/ice forward with the sender stamped as
// from and the original payload preserved verbatim.
func EncodeRelay(kind, from string, payload json.RawMessage) []byte {
	r := relay{Type: kind, From: from}
	switch kind {
	case KindOffer:
		r.Offer = payload
	case KindAnswer:
		r.Answer = payload
	case KindICE:
		r.Candidate = payload
	}
	return mustMarshal(r)
}

// mustMarshal encodes an outbound message. Outbound shapes contain no
// unmarshalable values, so a failure here is a programming error.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
