package osuapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/486c/osu-topscores-scrapper/internal/testutil"
)

// newTestClient builds a client against the mock server.
func newTestClient(t *testing.T, mock *testutil.MockOsu) *Client {
	t.Helper()

	cfg := DefaultConfig(123, "secret")
	cfg.BaseURL = mock.BaseURL()
	cfg.TokenURL = mock.TokenURL()

	client, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return client
}

func TestNew_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no client id", Config{ClientSecret: "secret"}},
		{"no client secret", Config{ClientID: 123}},
		{"nothing", Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != ErrorKindMissingCredential {
				t.Errorf("error kind = %q, want %q", KindOf(err), ErrorKindMissingCredential)
			}
		})
	}
}

func TestNew_OAuthExchange(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	var tokenRequest map[string]string
	mock.SetHandler("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &tokenRequest); err != nil {
			t.Errorf("token request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testutil.TokenBody))
	})

	newTestClient(t, mock)

	if mock.TokenCount() != 1 {
		t.Errorf("token requests = %d, want exactly 1", mock.TokenCount())
	}

	want := map[string]string{
		"client_id":     "123",
		"client_secret": "secret",
		"grant_type":    "client_credentials",
		"scope":         "public",
	}
	for key, value := range want {
		if tokenRequest[key] != value {
			t.Errorf("token request %s = %q, want %q", key, tokenRequest[key], value)
		}
	}
}

func TestNew_OAuthFailure(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	mock.SetResponse("/oauth/token", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       `{"error": "invalid client"}`,
	})

	cfg := DefaultConfig(123, "wrong")
	cfg.BaseURL = mock.BaseURL()
	cfg.TokenURL = mock.TokenURL()

	_, err := New(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected construction to fail")
	}
	if KindOf(err) != ErrorKindBadRequest {
		t.Errorf("error kind = %q, want %q", KindOf(err), ErrorKindBadRequest)
	}
}

func TestNew_OAuthTransportFailure(t *testing.T) {
	cfg := DefaultConfig(123, "secret")
	cfg.TokenURL = "http://127.0.0.1:1/oauth/token"

	_, err := New(context.Background(), cfg)
	if err == nil {
		t.Fatal("expected construction to fail")
	}
	if KindOf(err) != ErrorKindTransport {
		t.Errorf("error kind = %q, want %q", KindOf(err), ErrorKindTransport)
	}
}

func TestGet_RequestHeaders(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	mock.SetUserBestResponse(7, testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       "[]",
	})

	client := newTestClient(t, mock)

	if _, err := client.GetUserBestScores(context.Background(), 7); err != nil {
		t.Fatalf("GetUserBestScores failed: %v", err)
	}

	header := mock.LastHeader()
	if got := header.Get("Authorization"); got != "Bearer test-token" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer test-token")
	}
	if got := header.Get("Accept"); got != "application/json" {
		t.Errorf("Accept = %q, want %q", got, "application/json")
	}
	if got := header.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want %q", got, "application/json")
	}
	if got := header.Get("User-Agent"); got != "osu-topscores-scrapper/0.1.0" {
		t.Errorf("User-Agent = %q, want %q", got, "osu-topscores-scrapper/0.1.0")
	}
}

func TestGet_NoToken(t *testing.T) {
	// A client that lost its token surfaces missing_credential on every
	// call; it never re-authenticates.
	client := &Client{
		httpClient: http.DefaultClient,
		config:     DefaultConfig(123, "secret"),
	}

	_, err := client.GetUserBestScores(context.Background(), 7)
	if KindOf(err) != ErrorKindMissingCredential {
		t.Errorf("error kind = %q, want %q", KindOf(err), ErrorKindMissingCredential)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"400 bad request", http.StatusBadRequest, `{"error": "bad cursor"}`, ErrorKindBadRequest, ""},
		{"429 rate limited", http.StatusTooManyRequests, `{"error": "slow down"}`, ErrorKindRateLimited, ""},
		{"429 empty body", http.StatusTooManyRequests, "", ErrorKindRateLimited, ""},
		{"429 malformed body", http.StatusTooManyRequests, "<html>busy</html>", ErrorKindRateLimited, ""},
		{"503 unavailable", http.StatusServiceUnavailable, "", ErrorKindServiceUnavailable, ""},
		{"other status with error body", http.StatusUnauthorized, `{"error": "token expired"}`, ErrorKindAPI, "token expired"},
		{"other status with undecodable body", http.StatusInternalServerError, "<html>boom</html>", ErrorKindDecode, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockOsu()
			defer mock.Close()

			mock.SetUserBestResponse(7, testutil.MockResponse{
				StatusCode: tt.status,
				Body:       tt.body,
			})

			client := newTestClient(t, mock)

			_, err := client.GetUserBestScores(context.Background(), 7)
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tt.wantKind {
				t.Errorf("error kind = %q, want %q", KindOf(err), tt.wantKind)
			}
			if tt.wantMsg != "" {
				var apiErr *Error
				errors.As(err, &apiErr)
				if apiErr.Message != tt.wantMsg {
					t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
				}
			}
		})
	}
}

func TestStatusClassification_DecodeKeepsRawBody(t *testing.T) {
	raw := "<html>service is down\x00</html>"

	mock := testutil.NewMockOsu()
	defer mock.Close()
	mock.SetUserBestResponse(7, testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       raw,
	})

	client := newTestClient(t, mock)

	_, err := client.GetUserBestScores(context.Background(), 7)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Kind != ErrorKindDecode {
		t.Fatalf("error kind = %q, want %q", apiErr.Kind, ErrorKindDecode)
	}
	if string(apiErr.Body) != raw {
		t.Errorf("Body = %q, want original bytes byte-for-byte", apiErr.Body)
	}
}

func TestSuccessWithUndecodableBody(t *testing.T) {
	// A 200 whose body does not match the schema is a decode error with
	// the body preserved, never an API error.
	raw := `{"unexpected": "shape"}`

	mock := testutil.NewMockOsu()
	defer mock.Close()
	mock.SetUserBestResponse(7, testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       raw,
	})

	client := newTestClient(t, mock)

	_, err := client.GetUserBestScores(context.Background(), 7)

	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if apiErr.Kind != ErrorKindDecode {
		t.Errorf("error kind = %q, want %q", apiErr.Kind, ErrorKindDecode)
	}
	if string(apiErr.Body) != raw {
		t.Errorf("Body = %q, want %q", apiErr.Body, raw)
	}
}

func TestGetUserBestScores(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	mock.SetHandler("/users/7/scores/best", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("mode"); got != "osu" {
			t.Errorf("mode = %q, want %q", got, "osu")
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want %q", got, "100")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "[%s, %s]",
			testutil.ScoreBody(1, 7, `["HD", "DT"]`, "2023-05-10T08:00:00Z"),
			testutil.ScoreBody(2, 7, `["NC"]`, "2023-05-11T09:30:00Z"),
		)
	})

	client := newTestClient(t, mock)

	scores, err := client.GetUserBestScores(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetUserBestScores failed: %v", err)
	}

	if len(scores) != 2 {
		t.Fatalf("len(scores) = %d, want 2", len(scores))
	}
	if scores[0].ID != 1 || scores[1].ID != 2 {
		t.Errorf("score order = (%d, %d), want service order (1, 2)", scores[0].ID, scores[1].ID)
	}
	if scores[0].Mods != ModHidden|ModDoubleTime {
		t.Errorf("scores[0].Mods = %v, want HDDT", scores[0].Mods)
	}
	if scores[1].Mods != ModNightcore {
		t.Errorf("scores[1].Mods = %v, want NC", scores[1].Mods)
	}
}

func TestGetRanking_Pagination(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	var pagesSeen []string
	mock.SetHandler("/rankings/osu/performance", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("cursor[page]")
		pagesSeen = append(pagesSeen, page)

		if got := r.URL.Query().Get("country"); got != "by" {
			t.Errorf("country = %q, want %q", got, "by")
		}

		// Two users per page, ids derived from the page number.
		base := int64(0)
		fmt.Sscanf(page, "%d", &base)
		base *= 100

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testutil.RankingBody(
			testutil.RankingEntryBody(base+1, fmt.Sprintf("user%d", base+1), int(base+1), 9000),
			testutil.RankingEntryBody(base+2, fmt.Sprintf("user%d", base+2), int(base+2), 8000),
		))
	})

	client := newTestClient(t, mock)

	entries, err := client.GetRanking(context.Background(), CountryRanking("by"), 3)
	if err != nil {
		t.Fatalf("GetRanking failed: %v", err)
	}

	wantPages := []string{"1", "2", "3"}
	if len(pagesSeen) != len(wantPages) {
		t.Fatalf("pages requested = %v, want %v", pagesSeen, wantPages)
	}
	for i, page := range wantPages {
		if pagesSeen[i] != page {
			t.Errorf("page request %d = %q, want %q (sequential order)", i, pagesSeen[i], page)
		}
	}

	wantIDs := []int64{101, 102, 201, 202, 301, 302}
	if len(entries) != len(wantIDs) {
		t.Fatalf("len(entries) = %d, want %d", len(entries), len(wantIDs))
	}
	for i, id := range wantIDs {
		if entries[i].User.ID != id {
			t.Errorf("entries[%d].User.ID = %d, want %d (page order preserved)", i, entries[i].User.ID, id)
		}
	}
}

func TestGetRanking_Global(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	mock.SetHandler("/rankings/osu/performance", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["country"]; ok {
			t.Error("global ranking must not send a country parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testutil.RankingBody(
			testutil.RankingEntryBody(1, "mrekk", 1, 30000),
		))
	})

	client := newTestClient(t, mock)

	entries, err := client.GetRanking(context.Background(), GlobalRanking(), 1)
	if err != nil {
		t.Fatalf("GetRanking failed: %v", err)
	}
	if len(entries) != 1 || entries[0].User.Username != "mrekk" {
		t.Errorf("entries = %+v, want single entry for mrekk", entries)
	}
}

func TestGetRanking_PageFailureAborts(t *testing.T) {
	mock := testutil.NewMockOsu()
	defer mock.Close()

	requests := 0
	mock.SetHandler("/rankings/osu/performance", func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("cursor[page]") == "2" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, testutil.RankingBody(
			testutil.RankingEntryBody(1, "user1", 1, 9000),
		))
	})

	client := newTestClient(t, mock)

	_, err := client.GetRanking(context.Background(), GlobalRanking(), 3)
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != ErrorKindRateLimited {
		t.Errorf("error kind = %q, want %q", KindOf(err), ErrorKindRateLimited)
	}
	if !strings.Contains(err.Error(), "page 2") {
		t.Errorf("error = %q, should name the failing page", err)
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2 (no page after the failure)", requests)
	}
}
