package ws

import (
	"soundboard/internal/catalog"
)

type MessageType string

const (
	// MsgConfig carries the front-end configuration, sent once per connection.
	MsgConfig MessageType = "config"
	// MsgLogin tells the client the Twitch side still needs a login.
	MsgLogin MessageType = "login"
	// MsgReady tells the client the trigger source is authenticated.
	MsgReady MessageType = "ready"
	// MsgPlay instructs the client to play a cue.
	MsgPlay MessageType = "play"
)

type Message struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// FrontEndConfig is the client-safe slice of the server configuration.
// Field names match the overlay wire format.
type FrontEndConfig struct {
	MIDIIn string        `json:"MIDI_IN"`
	Sounds []catalog.Cue `json:"SOUNDS"`
}
