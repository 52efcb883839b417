// Package dispatch normalizes raw trigger events against the cue catalog and
// fans every match out to the push channel.
package dispatch

import (
	"log"

	"soundboard/internal/catalog"
)

// RedemptionEvent is a channel-point redemption received from Twitch.
type RedemptionEvent struct {
	RewardID    string
	UserName    string
	RewardTitle string
}

// NoteEvent is a MIDI note-on. Channel is 1-based; the MIDI boundary
// normalizes the driver's 0-based channel before building one of these.
type NoteEvent struct {
	Note    int
	Channel int
}

// Broadcaster pushes a matched cue to every connected session.
type Broadcaster interface {
	BroadcastPlay(cue catalog.Cue)
}

type Dispatcher struct {
	catalog     *catalog.Catalog
	broadcaster Broadcaster
}

func New(cat *catalog.Catalog, broadcaster Broadcaster) *Dispatcher {
	return &Dispatcher{catalog: cat, broadcaster: broadcaster}
}

// HandleRedemption plays every cue bound to the redeemed reward. A miss is
// not an error; it is only logged.
func (d *Dispatcher) HandleRedemption(ev RedemptionEvent) {
	log.Printf("%s redeemed %s", ev.UserName, ev.RewardTitle)

	matches := d.catalog.MatchReward(ev.RewardID)
	if len(matches) == 0 {
		log.Printf("No sound bound to reward %s.", ev.RewardID)
		return
	}
	for _, cue := range matches {
		d.broadcaster.BroadcastPlay(cue)
	}
}

// HandleNote plays every cue bound to the note, honoring wildcard channels.
func (d *Dispatcher) HandleNote(ev NoteEvent) {
	log.Printf("Note ON %d on channel %d.", ev.Note, ev.Channel)

	matches := d.catalog.MatchNote(ev.Note, ev.Channel)
	if len(matches) == 0 {
		log.Printf("No sound bound to note %d.", ev.Note)
		return
	}
	for _, cue := range matches {
		d.broadcaster.BroadcastPlay(cue)
	}
}
