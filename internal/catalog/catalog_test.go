package catalog

import (
	"testing"
)

func intp(v int) *int {
	return &v
}

func assertCueAssets(t *testing.T, matches []Cue, wantSounds ...string) {
	t.Helper()
	if len(matches) != len(wantSounds) {
		t.Fatalf("expected %d matches, got %d", len(wantSounds), len(matches))
	}
	for i, want := range wantSounds {
		if matches[i].Sound != want {
			t.Errorf("match[%d]: expected sound %q, got %q", i, want, matches[i].Sound)
		}
	}
}

func TestMatchReward(t *testing.T) {
	cat := New([]Cue{
		{RewardID: "r1", Sound: "a.mp3"},
		{RewardID: "r2", Sound: "b.mp3"},
		{RewardID: "r1", Sound: "c.mp3"},
		{Note: intp(36), Sound: "d.mp3"},
	})

	tests := []struct {
		name       string
		rewardID   string
		wantSounds []string
	}{
		{"SingleMatch", "r2", []string{"b.mp3"}},
		{"FanOut", "r1", []string{"a.mp3", "c.mp3"}},
		{"NoMatch", "r9", nil},
		{"CaseSensitive", "R1", nil},
		{"EmptyIDNeverMatchesUnsetField", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCueAssets(t, cat.MatchReward(tt.rewardID), tt.wantSounds...)
		})
	}
}

func TestMatchNote(t *testing.T) {
	cat := New([]Cue{
		{Note: intp(36), Channel: intp(10), GIF: "b.gif", Sound: "drum.mp3"},
		{Note: intp(36), Sound: "any-channel.mp3"},
		{Note: intp(40), Channel: intp(1), Sound: "snare.mp3"},
		{RewardID: "r1", Sound: "reward-only.mp3"},
	})

	tests := []struct {
		name       string
		note       int
		channel    int
		wantSounds []string
	}{
		{"ExactChannel", 36, 10, []string{"drum.mp3", "any-channel.mp3"}},
		{"WildcardChannelOnly", 36, 3, []string{"any-channel.mp3"}},
		{"WrongChannel", 40, 2, nil},
		{"UnknownNote", 99, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertCueAssets(t, cat.MatchNote(tt.note, tt.channel), tt.wantSounds...)
		})
	}
}

func TestMatchNoteZero(t *testing.T) {
	// Note 0 is a valid MIDI note and must be matchable.
	cat := New([]Cue{{Note: intp(0), Sound: "low.mp3"}})
	assertCueAssets(t, cat.MatchNote(0, 1), "low.mp3")
}

func TestCatalogImmutable(t *testing.T) {
	cues := []Cue{{RewardID: "r1", Sound: "a.mp3"}}
	cat := New(cues)

	cues[0].Sound = "mutated.mp3"
	if got := cat.MatchReward("r1")[0].Sound; got != "a.mp3" {
		t.Errorf("catalog shared the caller's slice: sound = %q", got)
	}

	out := cat.Cues()
	out[0].Sound = "mutated.mp3"
	if got := cat.MatchReward("r1")[0].Sound; got != "a.mp3" {
		t.Errorf("Cues() exposed internal storage: sound = %q", got)
	}
}

func TestAssetName(t *testing.T) {
	tests := []struct {
		name string
		cue  Cue
		want string
	}{
		{"SoundWins", Cue{Sound: "a.mp3", Video: "v.mp4"}, "a.mp3"},
		{"VideoFallback", Cue{Video: "v.mp4"}, "v.mp4"},
		{"InertCue", Cue{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cue.AssetName(); got != tt.want {
				t.Errorf("AssetName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssetPaths(t *testing.T) {
	cue := Cue{Sound: "a.mp3", GIF: "b.gif"}
	paths := cue.AssetPaths()
	if len(paths) != 2 || paths[0] != "a.mp3" || paths[1] != "b.gif" {
		t.Errorf("AssetPaths() = %v, want [a.mp3 b.gif]", paths)
	}

	if paths := (Cue{}).AssetPaths(); len(paths) != 0 {
		t.Errorf("inert cue AssetPaths() = %v, want empty", paths)
	}
}
