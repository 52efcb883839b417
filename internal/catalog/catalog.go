package catalog

// Cue maps one or more trigger conditions to the assets played when it fires.
// All fields are optional; a cue with no trigger or no asset is inert but not
// rejected. JSON field names match the push-channel wire format.
type Cue struct {
	RewardID string `json:"rewardId,omitempty" yaml:"rewardId"`
	Note     *int   `json:"note,omitempty" yaml:"note"`
	Channel  *int   `json:"channel,omitempty" yaml:"channel"`
	Sound    string `json:"sound,omitempty" yaml:"sound"`
	GIF      string `json:"gif,omitempty" yaml:"gif"`
	Video    string `json:"video,omitempty" yaml:"video"`
}

// AssetName returns the name used in diagnostic logs for this cue.
func (c Cue) AssetName() string {
	if c.Sound != "" {
		return c.Sound
	}
	return c.Video
}

// AssetPaths returns every asset path the cue references, in play order.
func (c Cue) AssetPaths() []string {
	var paths []string
	for _, p := range []string{c.Sound, c.GIF, c.Video} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Catalog is the immutable set of configured cues. It is built once at load
// time and replaced wholesale on reconfiguration, never mutated.
type Catalog struct {
	cues []Cue
}

func New(cues []Cue) *Catalog {
	copied := make([]Cue, len(cues))
	copy(copied, cues)
	return &Catalog{cues: copied}
}

// Cues returns the full cue list, for the front-end config message.
func (c *Catalog) Cues() []Cue {
	out := make([]Cue, len(c.cues))
	copy(out, c.cues)
	return out
}

func (c *Catalog) Len() int {
	return len(c.cues)
}

// MatchReward returns every cue whose reward ID equals id (case-sensitive).
// All matches are returned; one redemption may fan out to several cues.
func (c *Catalog) MatchReward(id string) []Cue {
	var matches []Cue
	for _, cue := range c.cues {
		if cue.RewardID != "" && cue.RewardID == id {
			matches = append(matches, cue)
		}
	}
	return matches
}

// MatchNote returns every cue whose note equals note and whose channel is
// either unset (any channel) or equal to channel. channel is 1-based.
func (c *Catalog) MatchNote(note, channel int) []Cue {
	var matches []Cue
	for _, cue := range c.cues {
		if cue.Note == nil || *cue.Note != note {
			continue
		}
		if cue.Channel != nil && *cue.Channel != channel {
			continue
		}
		matches = append(matches, cue)
	}
	return matches
}
