package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/touchline/internal/adapters/http/api"
	"github.com/okian/touchline/internal/adapters/repository"
	service "github.com/okian/touchline/internal/app"
	"github.com/okian/touchline/internal/domain/types"
	"github.com/okian/touchline/internal/synth"
	"github.com/okian/touchline/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func leagueServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := repository.NewMemoryStoreFrom(synth.League())
	if err != nil {
		t.Fatal(err)
	}
	svc := service.New(service.WithStore(store), service.WithWorkerCount(2))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Stop)

	server := api.NewServer(svc)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	ts := httptest.NewServer(server.Handler(mux))
	t.Cleanup(ts.Close)
	return ts
}

func TestRun(t *testing.T) {
	Convey("Given a server over the sample league", t, func() {
		ts := leagueServer(t)
		ctx := context.Background()

		Convey("A probe finds consistent answers and writes a report", func() {
			out := filepath.Join(t.TempDir(), "reports", "probe.json")
			rep, err := Run(ctx, Config{
				BaseURL:    ts.URL,
				Pairs:      30,
				Repeats:    3,
				Workers:    4,
				BatchSize:  10,
				Seed:       3,
				Timeout:    5 * time.Second,
				OutputFile: out,
			})
			So(err, ShouldBeNil)
			So(rep.People, ShouldEqual, 8)
			So(rep.Requests, ShouldEqual, 90)
			So(rep.Found+rep.NotFound+rep.Failed, ShouldEqual, 90)
			So(rep.Found, ShouldBeGreaterThan, 0)
			So(rep.Mismatches, ShouldEqual, 0)
			So(rep.BatchMismatches, ShouldEqual, 0)
			So(rep.Latency.MaxMs, ShouldBeGreaterThanOrEqualTo, rep.Latency.P50Ms)

			data, err := os.ReadFile(out)
			So(err, ShouldBeNil)
			var saved Report
			So(json.Unmarshal(data, &saved), ShouldBeNil)
			So(saved.Requests, ShouldEqual, 90)
		})

		Convey("An explicit people count below two is rejected", func() {
			_, err := Run(ctx, Config{BaseURL: ts.URL, People: 1, Timeout: time.Second})
			So(errors.Is(err, ErrTooFewPeople), ShouldBeTrue)
		})
	})

	Convey("Given a server whose health route fails", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		_, err := Run(context.Background(), Config{BaseURL: ts.URL, Timeout: time.Second})
		So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
	})

	Convey("Given a server that answers differently every time", t, func() {
		var calls atomic.Int64
		mux := http.NewServeMux()
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {})
		mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]int{"people": 5})
		})
		mux.HandleFunc("/path", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(types.Result{Found: true, Steps: []types.Step{}, TotalSteps: int(calls.Add(1))})
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()

		rep, err := Run(context.Background(), Config{BaseURL: ts.URL, Pairs: 6, Repeats: 2, Workers: 2, Timeout: time.Second})
		So(errors.Is(err, ErrNondeterministic), ShouldBeTrue)
		So(rep.Mismatches, ShouldEqual, 6)
		So(rep.Mismatched, ShouldHaveLength, 6)
	})
}

func TestGeneratePairs(t *testing.T) {
	Convey("Pairs are seeded, distinct and in range", t, func() {
		a := generatePairs(9, 5, 200, 4)
		b := generatePairs(9, 5, 200, 4)
		So(a, ShouldResemble, b)
		for _, p := range a {
			So(p.Source, ShouldNotEqual, p.Target)
			So(p.Source, ShouldBeBetweenOrEqual, int64(1), int64(5))
			So(p.Target, ShouldBeBetweenOrEqual, int64(1), int64(5))
			So(p.MaxDepth, ShouldEqual, 4)
		}
		So(generatePairs(10, 5, 200, 4), ShouldNotResemble, a)
	})
}

func TestVerification(t *testing.T) {
	Convey("Agreement ignores timing and transient failures", t, func() {
		step := types.Step{FromPersonID: 1, ToPersonID: 8, Kind: "club_teammates", VenueName: "Riverside FC", Period: "in 2010"}
		a := types.Result{Found: true, Steps: []types.Step{step}, TotalSteps: 1, SearchTimeMs: 2, Score: 1050}
		b := a
		b.SearchTimeMs = 9000
		b.Score = 1000
		timeout := types.Failed(types.ErrorTimeout, "deadline", 10000)

		So(agree([]types.Result{a, b, timeout}), ShouldBeTrue)
		So(agree([]types.Result{timeout}), ShouldBeTrue)

		c := a
		c.Steps = []types.Step{{FromPersonID: 1, ToPersonID: 8, Kind: "national_teammates", VenueName: "Northland", Period: "in 2010"}}
		So(agree([]types.Result{a, c}), ShouldBeFalse)
	})

	Convey("Percentiles use the nearest rank", t, func() {
		samples := make([]time.Duration, 0, 100)
		for i := 100; i >= 1; i-- {
			samples = append(samples, time.Duration(i)*time.Millisecond)
		}
		l := summarize(samples)
		So(l.P50Ms, ShouldEqual, 50.0)
		So(l.P95Ms, ShouldEqual, 95.0)
		So(l.P99Ms, ShouldEqual, 99.0)
		So(l.MaxMs, ShouldEqual, 100.0)
		So(summarize(nil), ShouldResemble, Latency{})
	})
}
