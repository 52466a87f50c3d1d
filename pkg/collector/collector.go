// Package collector fans out per-user score fetches for a ranked user list
// and funnels the surviving scores into a single output channel.
package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/486c/osu-topscores-scrapper/pkg/osuapi"
)

// Prometheus metrics for collector runs.
var (
	collectorRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "osu_collector_rows_total",
		Help: "Total output rows emitted across collector runs",
	})

	collectorUserFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "osu_collector_user_failures_total",
		Help: "Total per-user fetches that failed and contributed zero rows",
	})
)

// rowBuffer is the output channel capacity. Dispatch does not wait for
// drains, so a bounded channel cannot deadlock a slow consumer.
const rowBuffer = 64

// Window is a time window with strictly exclusive bounds on both ends:
// a score survives iff From < created_at < To.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls strictly inside the window. Timestamps
// equal to either bound are excluded.
func (w Window) Contains(t time.Time) bool {
	return t.After(w.From) && t.Before(w.To)
}

// Row is the denormalized projection of one score joined with its owner's
// ranking entry. CountryRank is the 1-based position in the fetched
// ranking list.
type Row struct {
	Username    string  `csv:"username"`
	PP          float64 `csv:"pp"`
	Date        string  `csv:"date"`
	Replay      bool    `csv:"replay"`
	Map         string  `csv:"map"`
	Difficulty  string  `csv:"diff"`
	ScoreLink   string  `csv:"score_link"`
	Mods        string  `csv:"mods"`
	CountryRank int     `csv:"country_rank"`
	GlobalRank  int     `csv:"global_rank"`
	TotalPP     float64 `csv:"total_pp"`
}

// ScoreSource is the part of the API client the collector needs.
type ScoreSource interface {
	GetUserBestScores(ctx context.Context, userID int64) ([]osuapi.Score, error)
}

// RankingSource extends ScoreSource with paginated ranking retrieval.
type RankingSource interface {
	ScoreSource
	GetRanking(ctx context.Context, ranking osuapi.Ranking, pages int) ([]osuapi.RankingEntry, error)
}

// Collector runs fan-out passes over a ranked user list. A Collector is
// stateless between runs and safe for concurrent use.
type Collector struct {
	source ScoreSource
	logger zerolog.Logger
}

// New creates a collector reading scores from source.
func New(source ScoreSource) *Collector {
	return &Collector{
		source: source,
		logger: log.With().Str("component", "collector").Logger(),
	}
}

// Collect spawns one goroutine per ranking entry. Each goroutine fetches
// that user's best scores, filters them by window, and emits one Row per
// surviving score. Units are fully independent: a failed fetch is logged,
// counted, and contributes zero rows without affecting any other unit.
//
// The returned channel is closed only once every unit has finished; rows
// within one user's contribution preserve service order, rows of different
// users interleave arbitrarily.
func (c *Collector) Collect(ctx context.Context, entries []osuapi.RankingEntry, window Window) <-chan Row {
	rows := make(chan Row, rowBuffer)

	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func(rank int, entry osuapi.RankingEntry) {
			defer wg.Done()
			c.collectUser(ctx, rank, entry, window, rows)
		}(i+1, entry)
	}

	go func() {
		wg.Wait()
		close(rows)
	}()

	return rows
}

// collectUser is one fan-out unit: fetch, filter, emit.
func (c *Collector) collectUser(ctx context.Context, rank int, entry osuapi.RankingEntry, window Window, rows chan<- Row) {
	scores, err := c.source.GetUserBestScores(ctx, entry.User.ID)
	if err != nil {
		collectorUserFailuresTotal.Inc()
		c.logger.Warn().
			Err(err).
			Int64("user_id", entry.User.ID).
			Str("username", entry.User.Username).
			Msg("User fetch failed, skipping")
		return
	}

	emitted := 0
	for _, score := range scores {
		if !window.Contains(score.CreatedAt.Time) {
			continue
		}

		rows <- newRow(rank, entry, score)
		collectorRowsTotal.Inc()
		emitted++
	}

	c.logger.Debug().
		Int64("user_id", entry.User.ID).
		Str("username", entry.User.Username).
		Int("scores", len(scores)).
		Int("rows", emitted).
		Msg("Processed user")
}

// newRow joins one score with its owner's ranking entry.
func newRow(rank int, entry osuapi.RankingEntry, score osuapi.Score) Row {
	return Row{
		Username:    entry.User.Username,
		PP:          score.PP,
		Date:        score.CreatedAt.Format("2006-01-02 15:04:05"),
		Replay:      score.Replay,
		Map:         fmt.Sprintf("%s - %s", score.Beatmapset.Artist, score.Beatmapset.Title),
		Difficulty:  score.Beatmap.Version,
		ScoreLink:   fmt.Sprintf("https://osu.ppy.sh/scores/osu/%d", score.ID),
		Mods:        score.Mods.String(),
		CountryRank: rank,
		GlobalRank:  entry.GlobalRank,
		TotalPP:     entry.PP,
	}
}

// Run is the consumer-facing entry point: fetch enough ranking pages to
// cover amount users, fan out over the first amount entries, and drain
// every row into a slice. Ranking failures abort the run; per-user
// failures inside the fan-out do not.
func Run(ctx context.Context, source RankingSource, ranking osuapi.Ranking, amount int, window Window) ([]Row, error) {
	pages := (amount + osuapi.RankingPageSize - 1) / osuapi.RankingPageSize

	entries, err := source.GetRanking(ctx, ranking, pages)
	if err != nil {
		return nil, fmt.Errorf("fetch ranking: %w", err)
	}

	if len(entries) > amount {
		entries = entries[:amount]
	}

	log.Info().
		Int("users", len(entries)).
		Int("pages", pages).
		Msg("Starting fan-out")

	collected := make([]Row, 0, len(entries))
	for row := range New(source).Collect(ctx, entries, window) {
		collected = append(collected, row)
	}

	return collected, nil
}
