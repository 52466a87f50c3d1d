package osuapi

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampFormat is the only wire format the API emits, always UTC.
const timestampFormat = "2006-01-02T15:04:05Z"

// Timestamp is a UTC time decoded from the API's fixed wire format.
// Any other shape is a hard decode error, there is no fallback format.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return newDecodeError(fmt.Errorf("timestamp: expected string"), data)
	}

	parsed, err := time.Parse(timestampFormat, s)
	if err != nil {
		return newDecodeError(fmt.Errorf("timestamp: parse %q: %w", s, err), data)
	}

	t.Time = parsed.UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(timestampFormat))
}

// Beatmap holds the per-difficulty fields used by the exporter.
type Beatmap struct {
	Version string `json:"version"`
}

// Beatmapset holds the descriptive fields of a mapset.
type Beatmapset struct {
	Artist        string `json:"artist"`
	ArtistUnicode string `json:"artist_unicode"`
	Creator       string `json:"creator"`
	Source        string `json:"source"`
	Title         string `json:"title"`
	TitleUnicode  string `json:"title_unicode"`
}

// Score is one entry of a user's best scores.
type Score struct {
	ID         int64      `json:"id"`
	BestID     int64      `json:"best_id"`
	UserID     int64      `json:"user_id"`
	Accuracy   float64    `json:"accuracy"`
	Mods       Mods       `json:"mods"`
	Score      int64      `json:"score"`
	PP         float64    `json:"pp"`
	CreatedAt  Timestamp  `json:"created_at"`
	Replay     bool       `json:"replay"`
	Beatmapset Beatmapset `json:"beatmapset"`
	Beatmap    Beatmap    `json:"beatmap"`
}

// User is the compact user object embedded in ranking entries.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// RankingEntry is one row of the performance leaderboard.
type RankingEntry struct {
	PP         float64 `json:"pp"`
	GlobalRank int     `json:"global_rank"`
	User       User    `json:"user"`
}

type rankingResponse struct {
	Ranking []RankingEntry `json:"ranking"`
	Total   int            `json:"total"`
}

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	AccessToken string `json:"access_token"`
}

type apiErrorBody struct {
	Error string `json:"error"`
}

// Ranking selects which performance leaderboard to page through: the
// global one or a single country's.
type Ranking struct {
	country string
}

// GlobalRanking selects the global performance leaderboard.
func GlobalRanking() Ranking {
	return Ranking{}
}

// CountryRanking selects the performance leaderboard for a 2-letter
// country code.
func CountryRanking(code string) Ranking {
	return Ranking{country: code}
}

// Country returns the selected country code, or "" for the global
// leaderboard.
func (r Ranking) Country() string {
	return r.country
}
