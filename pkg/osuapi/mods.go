package osuapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Mods is a bit set of gameplay modifiers using the legacy osu! mod values.
type Mods uint32

const (
	ModNoMod       Mods = 0
	ModNoFail      Mods = 1
	ModEasy        Mods = 2
	ModTouchDevice Mods = 4
	ModHidden      Mods = 8
	ModHardRock    Mods = 16
	ModSuddenDeath Mods = 32
	ModDoubleTime  Mods = 64
	ModRelax       Mods = 128
	ModHalfTime    Mods = 256
	ModFlashlight  Mods = 1024
	ModSpunOut     Mods = 4096
	ModFadeIn      Mods = 1 << 20
	ModScoreV2     Mods = 1 << 29
	ModMirror      Mods = 1 << 30

	// Nightcore and Perfect imply their base mod; the wire format still
	// carries a single acronym for the combination.
	ModNightcore Mods = 512 | ModDoubleTime
	ModPerfect   Mods = 16384 | ModSuddenDeath
)

// modAcronyms maps each mod to its 2-letter acronym in encode priority
// order. Combinations (NC, PF) come before their base mod so that encoding
// collapses them into a single acronym.
var modAcronyms = []struct {
	mod     Mods
	acronym string
}{
	{ModNoFail, "NF"},
	{ModEasy, "EZ"},
	{ModTouchDevice, "TD"},
	{ModHidden, "HD"},
	{ModNightcore, "NC"},
	{ModDoubleTime, "DT"},
	{ModRelax, "RX"},
	{ModHalfTime, "HT"},
	{ModFlashlight, "FL"},
	{ModHardRock, "HR"},
	{ModPerfect, "PF"},
	{ModSuddenDeath, "SD"},
	{ModSpunOut, "SO"},
	{ModFadeIn, "FD"},
	{ModScoreV2, "V2"},
	{ModMirror, "MR"},
}

var acronymMods = func() map[string]Mods {
	m := make(map[string]Mods, len(modAcronyms)+1)
	m["NM"] = ModNoMod
	for _, e := range modAcronyms {
		m[e.acronym] = e.mod
	}
	return m
}()

// Contains reports whether every bit of m is set in v. For combinations
// this tests the full pattern: a set holding only DT does not contain NC.
func (v Mods) Contains(m Mods) bool {
	return v&m == m
}

// String encodes the set as concatenated acronyms in fixed priority order.
// The empty set encodes as "NM". Combinations emit only their own acronym:
// NC suppresses DT and PF suppresses SD.
func (v Mods) String() string {
	if v == ModNoMod {
		return "NM"
	}

	var sb strings.Builder
	rest := v
	for _, e := range modAcronyms {
		if rest.Contains(e.mod) {
			sb.WriteString(e.acronym)
			rest &^= e.mod
		}
	}

	return sb.String()
}

// ParseMod decodes a single acronym, case-insensitively. Unknown acronyms
// are an error.
func ParseMod(s string) (Mods, error) {
	mod, ok := acronymMods[strings.ToUpper(s)]
	if !ok {
		return ModNoMod, newDecodeError(fmt.Errorf("unknown mod acronym %q", s), []byte(s))
	}
	return mod, nil
}

// ParseMods leniently decodes a concatenated acronym string by cutting it
// into 2-character chunks. Unrecognized chunks are dropped, not errored;
// an odd-length trailing chunk is malformed input and is dropped as well.
func ParseMods(s string) Mods {
	s = strings.ToUpper(s)

	mods := ModNoMod
	for len(s) > 0 {
		n := 2
		if len(s) < n {
			n = len(s)
		}
		if mod, ok := acronymMods[s[:n]]; ok {
			mods |= mod
		}
		s = s[n:]
	}

	return mods
}

// ParseModList unions ParseMod over every element. Any unknown element
// fails the whole decode.
func ParseModList(list []string) (Mods, error) {
	mods := ModNoMod
	for _, s := range list {
		mod, err := ParseMod(s)
		if err != nil {
			return ModNoMod, err
		}
		mods |= mod
	}
	return mods, nil
}

// UnmarshalJSON accepts the two wire shapes the API uses for mods: an
// array of acronym strings (strict per element) or a single concatenated
// string (lenient).
func (v *Mods) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		mods, err := ParseModList(list)
		if err != nil {
			return err
		}
		*v = mods
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return newDecodeError(fmt.Errorf("mods: expected string or array of strings"), data)
	}

	*v = ParseMods(s)
	return nil
}

// MarshalJSON encodes the set as its acronym string.
func (v Mods) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}
