// Package midi binds a named MIDI input port and forwards note-on events to
// the dispatcher. Channels are 0-based on the wire and 1-based everywhere
// else in this program; the conversion happens here, at the boundary.
package midi

import (
	"fmt"
	"log"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// NoteHandler receives note-on events. channel is 1-based (1-16).
type NoteHandler func(note, channel int)

type Listener struct {
	drv  *rtmididrv.Driver
	in   drivers.In
	stop func()
}

// channelNumber converts the driver's 0-based channel to the 1-based
// numbering used by the cue catalog.
func channelNumber(ch uint8) int {
	return int(ch) + 1
}

// ListInputs returns the names of the available MIDI input ports.
func ListInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// Open connects to the named input port and starts listening for note-on
// events. Call Close when done.
func Open(portName string, onNote NoteHandler) (*Listener, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, err
	}

	var found drivers.In
	for _, in := range ins {
		if in.String() == portName {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI input %q not found", portName)
	}
	if err := found.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("open %q: %w", portName, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		if msg.GetNoteStart(&ch, &key, &vel) {
			onNote(int(key), channelNumber(ch))
		}
	}, midi.HandleError(func(listenErr error) {
		log.Printf("MIDI listener error on %q: %v", portName, listenErr)
	}))
	if err != nil {
		_ = found.Close()
		drv.Close()
		return nil, fmt.Errorf("listen %q: %w", portName, err)
	}

	log.Printf("MIDI port %s open.", portName)
	return &Listener{drv: drv, in: found, stop: stop}, nil
}

func (l *Listener) Close() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
	if l.in != nil {
		_ = l.in.Close()
		l.in = nil
	}
	if l.drv != nil {
		l.drv.Close()
		l.drv = nil
	}
}
