// Command topscores exports the best recent scores of ranked osu! players
// within a date window to a CSV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/486c/osu-topscores-scrapper/pkg/collector"
	"github.com/486c/osu-topscores-scrapper/pkg/export"
	"github.com/486c/osu-topscores-scrapper/pkg/logging"
	"github.com/486c/osu-topscores-scrapper/pkg/osuapi"
)

const dateFormat = "02-01-2006"

func main() {
	from := flag.String("from", "", "start date (DD-MM-YYYY), e.g. 01-05-2023")
	to := flag.String("to", "", "end date (DD-MM-YYYY), e.g. 01-06-2023")
	amount := flag.Int("amount", 200, "amount of ranked users to process")
	country := flag.String("country", "by", "2-letter country code, empty for the global leaderboard")
	out := flag.String("o", "output.csv", "output CSV path")
	level := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	cfg := logging.DefaultConfig()
	cfg.Level = *level
	logging.Setup(cfg)
	logger := logging.NewLogger("topscores")

	// .env is optional; real environment variables win either way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn().Err(err).Msg("Failed to load .env")
	}

	if *from == "" || *to == "" {
		logger.Fatal().Msg("-from and -to are required")
	}

	fromDate, err := time.Parse(dateFormat, *from)
	if err != nil {
		logger.Fatal().Err(err).Str("from", *from).Msg("Invalid -from date")
	}
	toDate, err := time.Parse(dateFormat, *to)
	if err != nil {
		logger.Fatal().Err(err).Str("to", *to).Msg("Invalid -to date")
	}

	clientID, err := strconv.Atoi(os.Getenv("CLIENT_ID"))
	if err != nil {
		logger.Fatal().Msg("CLIENT_ID must be set to the numeric OAuth client id")
	}
	clientSecret := os.Getenv("CLIENT_SECRET")

	// Optional Prometheus exposition for long runs.
	if addr := os.Getenv("OSU_METRICS_ADDR"); addr != "" {
		go serveMetrics(addr)
	}

	ctx := context.Background()

	api, err := osuapi.New(ctx, osuapi.DefaultConfig(clientID, clientSecret))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create osu! API client")
	}

	ranking := osuapi.GlobalRanking()
	if *country != "" {
		ranking = osuapi.CountryRanking(*country)
	}

	window := collector.Window{From: fromDate.UTC(), To: toDate.UTC()}

	start := time.Now()
	rows, err := collector.Run(ctx, api, ranking, *amount, window)
	if err != nil {
		logger.Fatal().Err(err).Msg("Collection failed")
	}

	if err := export.WriteFile(*out, rows); err != nil {
		logger.Fatal().Err(err).Str("path", *out).Msg("Failed to write output")
	}

	logger.Info().
		Int("rows", len(rows)).
		Str("path", *out).
		Dur("duration", time.Since(start)).
		Msg("Export complete")
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})

	log.Info().Str("addr", addr).Msg("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn().Err(err).Msg("Metrics server stopped")
	}
}
