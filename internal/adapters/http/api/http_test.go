package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/touchline/internal/adapters/repository"
	service "github.com/okian/touchline/internal/app"
	"github.com/okian/touchline/internal/domain/search"
	"github.com/okian/touchline/internal/domain/types"
	"github.com/okian/touchline/internal/synth"
)

type mockDependencies struct {
	result  types.Result
	lastReq search.Request

	batch    []types.Result
	batchErr error
	batchReq []search.Request

	people    []types.Person
	peopleErr error
	lastQuery string
	lastLimit int

	person    types.PersonDetail
	personErr error

	stats    repository.Stats
	statsErr error
}

func (m *mockDependencies) FindPath(_ context.Context, req search.Request) types.Result {
	m.lastReq = req
	return m.result
}

func (m *mockDependencies) Batch(_ context.Context, reqs []search.Request) ([]types.Result, error) {
	m.batchReq = reqs
	return m.batch, m.batchErr
}

func (m *mockDependencies) SearchPeople(_ context.Context, q string, limit int) ([]types.Person, error) {
	m.lastQuery, m.lastLimit = q, limit
	return m.people, m.peopleErr
}

func (m *mockDependencies) Person(_ context.Context, _ int64) (types.PersonDetail, error) {
	return m.person, m.personErr
}

func (m *mockDependencies) GetStats() map[string]any {
	return map[string]any{"started": true}
}

func (m *mockDependencies) StoreStats(context.Context) (repository.Stats, error) {
	return m.stats, m.statsErr
}

func serve(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func newMux(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	NewServer(deps).Register(context.Background(), mux)
	return mux
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{result: types.Result{Found: true, Steps: []types.Step{}}}
		mux := newMux(deps)

		Convey("Then the health endpoint serves metrics", func() {
			w := serve(mux, "GET", "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint is accessible", func() {
			So(serve(mux, "GET", "/stats", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the path endpoint is accessible", func() {
			So(serve(mux, "GET", "/path?source=1&target=2", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then unknown routes are not found", func() {
			So(serve(mux, "GET", "/transfers", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPathHandler_HandlePath(t *testing.T) {
	Convey("Given a path handler", t, func() {
		deps := &mockDependencies{result: types.Result{Found: true, TotalSteps: 1, Steps: []types.Step{{FromPersonID: 1, ToPersonID: 2}}}}
		mux := newMux(deps)

		Convey("When searching with query parameters", func() {
			w := serve(mux, "GET", "/path?source=1&target=2&maxDepth=3", "")

			Convey("Then the request reaches the service and the result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq, ShouldResemble, search.Request{SourceID: 1, TargetID: 2, MaxDepth: 3})

				var res types.Result
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.Found, ShouldBeTrue)
				So(res.TotalSteps, ShouldEqual, 1)
			})
		})

		Convey("When searching with a JSON body", func() {
			w := serve(mux, "POST", "/path", `{"sourcePersonId": 4, "targetPersonId": 9}`)

			Convey("Then the body is decoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastReq, ShouldResemble, search.Request{SourceID: 4, TargetID: 9})
			})
		})

		Convey("When the query is malformed", func() {
			w := serve(mux, "GET", "/path?source=abc&target=2", "")

			Convey("Then an invalid_request result is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				var res types.Result
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.Error, ShouldEqual, types.ErrorInvalidRequest)
				So(res.Message, ShouldContainSubstring, "source")
			})
		})

		Convey("When the body misses a field or has an unknown one", func() {
			missing := serve(mux, "POST", "/path", `{"sourcePersonId": 4}`)
			unknown := serve(mux, "POST", "/path", `{"sourcePersonId": 4, "targetPersonId": 9, "depth": 2}`)
			negative := serve(mux, "POST", "/path", `{"sourcePersonId": 4, "targetPersonId": 9, "maxDepth": -1}`)

			Convey("Then each is rejected", func() {
				So(missing.Code, ShouldEqual, http.StatusBadRequest)
				So(unknown.Code, ShouldEqual, http.StatusBadRequest)
				So(negative.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.lastReq, ShouldResemble, search.Request{})
			})
		})

		Convey("When an id is zero or negative", func() {
			query := serve(mux, "GET", "/path?source=0&target=2", "")
			body := serve(mux, "POST", "/path", `{"sourcePersonId": 4, "targetPersonId": -9}`)

			Convey("Then it is rejected as a non-positive id", func() {
				So(query.Code, ShouldEqual, http.StatusBadRequest)
				var res types.Result
				So(json.NewDecoder(query.Body).Decode(&res), ShouldBeNil)
				So(res.Error, ShouldEqual, types.ErrorInvalidRequest)
				So(res.Message, ShouldContainSubstring, "sourcePersonId must be a positive id")

				So(body.Code, ShouldEqual, http.StatusBadRequest)
				So(body.Body.String(), ShouldContainSubstring, "targetPersonId must be a positive id")
				So(deps.lastReq, ShouldResemble, search.Request{})
			})
		})

		Convey("When the method is not supported", func() {
			So(serve(mux, "PUT", "/path", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the result carries an error code", func() {
			cases := map[types.ErrorCode]int{
				types.ErrorSamePerson:     http.StatusBadRequest,
				types.ErrorInvalidRequest: http.StatusBadRequest,
				types.ErrorPersonNotFound: http.StatusNotFound,
				types.ErrorTimeout:        http.StatusGatewayTimeout,
				types.ErrorUnavailable:    http.StatusServiceUnavailable,
			}

			Convey("Then it maps to its status", func() {
				for code, status := range cases {
					deps.result = types.Failed(code, "x", 1)
					So(serve(mux, "GET", "/path?source=1&target=2", "").Code, ShouldEqual, status)
				}
			})
		})

		Convey("When no path exists", func() {
			deps.result = types.Result{Steps: []types.Step{}}
			w := serve(mux, "GET", "/path?source=1&target=2", "")

			Convey("Then the answer is still 200", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"found":false`)
			})
		})
	})
}

func TestPathHandler_HandleBatch(t *testing.T) {
	Convey("Given a batch handler", t, func() {
		deps := &mockDependencies{batch: []types.Result{{Found: true}, {Steps: []types.Step{}}}}
		mux := newMux(deps)
		body := `{"pairs": [{"sourcePersonId": 1, "targetPersonId": 2}, {"sourcePersonId": 3, "targetPersonId": 4, "maxDepth": 2}]}`

		Convey("When submitting pairs", func() {
			w := serve(mux, "POST", "/paths/batch", body)

			Convey("Then results are returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.batchReq, ShouldResemble, []search.Request{
					{SourceID: 1, TargetID: 2},
					{SourceID: 3, TargetID: 4, MaxDepth: 2},
				})
				var resp batchResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Results, ShouldHaveLength, 2)
				So(resp.Results[0].Found, ShouldBeTrue)
			})
		})

		Convey("When the pair list is empty", func() {
			So(serve(mux, "POST", "/paths/batch", `{"pairs": []}`).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a pair is incomplete", func() {
			w := serve(mux, "POST", "/paths/batch", `{"pairs": [{"sourcePersonId": 1}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(w.Body.String(), ShouldContainSubstring, "targetPersonId must be a positive id")
			So(deps.batchReq, ShouldBeNil)
		})

		Convey("When the service refuses the batch", func() {
			cases := map[error]int{
				fmt.Errorf("%w: 3 slots free", service.ErrQueueFull): http.StatusTooManyRequests,
				fmt.Errorf("%w: 200 pairs", service.ErrTooManyPairs): http.StatusBadRequest,
				service.ErrNotStarted:                                http.StatusServiceUnavailable,
				errors.New("boom"):                                   http.StatusInternalServerError,
			}

			Convey("Then the error maps to its status", func() {
				for err, status := range cases {
					deps.batchErr = err
					So(serve(mux, "POST", "/paths/batch", body).Code, ShouldEqual, status)
				}
			})
		})

		Convey("When the method is GET", func() {
			So(serve(mux, "GET", "/paths/batch", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestPeopleHandler(t *testing.T) {
	Convey("Given a people handler", t, func() {
		deps := &mockDependencies{
			people: []types.Person{{ID: 1, Name: "Alice Striker", Roles: []string{"player"}}},
			person: types.PersonDetail{Person: types.Person{ID: 5, Name: "Elena Boss"}, Stints: []types.Stint{}},
		}
		mux := newMux(deps)

		Convey("When searching people", func() {
			w := serve(mux, "GET", "/people/search?q=al&limit=5", "")

			Convey("Then the matches and count are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastQuery, ShouldEqual, "al")
				So(deps.lastLimit, ShouldEqual, 5)
				var resp peopleResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Count, ShouldEqual, 1)
				So(resp.People[0].Name, ShouldEqual, "Alice Striker")
			})
		})

		Convey("When the limit is invalid", func() {
			So(serve(mux, "GET", "/people/search?q=al&limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store is unavailable", func() {
			deps.peopleErr = fmt.Errorf("search people: %w", service.ErrUnavailable)
			So(serve(mux, "GET", "/people/search?q=al", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When reading a person", func() {
			w := serve(mux, "GET", "/people/5", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"name":"Elena Boss"`)
		})

		Convey("When the person id is malformed", func() {
			So(serve(mux, "GET", "/people/abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(serve(mux, "GET", "/people/", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the person does not exist", func() {
			deps.personErr = fmt.Errorf("person 9: %w", service.ErrNotFound)
			w := serve(mux, "GET", "/people/9", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)

			var resp errorResponse
			So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
			So(resp.Code, ShouldEqual, "not_found")
			So(resp.Message, ShouldStartWith, "api.get_person")
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		deps := &mockDependencies{stats: repository.Stats{People: 8, Managers: 3, Clubs: 2, NationalTeams: 2, Stints: 13}}
		mux := newMux(deps)

		Convey("When requesting stats", func() {
			w := serve(mux, "GET", "/stats", "")

			Convey("Then store counts and service stats are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body map[string]any
				So(json.NewDecoder(w.Body).Decode(&body), ShouldBeNil)
				So(body["people"], ShouldEqual, float64(8))
				So(body["managers"], ShouldEqual, float64(3))
				So(body["nationalTeams"], ShouldEqual, float64(2))
				So(body["service"], ShouldNotBeNil)
			})
		})

		Convey("When the store fails", func() {
			deps.statsErr = fmt.Errorf("stats: %w", service.ErrUnavailable)
			So(serve(mux, "GET", "/stats", "").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the method is POST", func() {
			So(serve(mux, "POST", "/stats", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(RequestID(r.Context())))
	})

	Convey("Given the request id middleware", t, func() {
		h := RequestIDMiddleware(ok, nil)

		Convey("When the caller sends no id", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))

			Convey("Then a fresh uuid is assigned and visible to the handler", func() {
				id := w.Header().Get(HeaderRequestID)
				_, err := uuid.Parse(id)
				So(err, ShouldBeNil)
				So(w.Body.String(), ShouldEqual, id)
			})
		})

		Convey("When the caller sends a valid id", func() {
			id := uuid.NewString()
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.Header.Set(HeaderRequestID, id)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is echoed", func() {
				So(w.Header().Get(HeaderRequestID), ShouldEqual, id)
			})
		})

		Convey("When the caller sends garbage", func() {
			req := httptest.NewRequest("GET", "/", http.NoBody)
			req.Header.Set(HeaderRequestID, "not-a-uuid")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is replaced", func() {
				So(w.Header().Get(HeaderRequestID), ShouldNotEqual, "not-a-uuid")
			})
		})
	})

	Convey("Given a rate limiter with a burst of one", t, func() {
		h := RateLimitMiddleware(ok, NewRateLimiter(0.001, 1))

		first := httptest.NewRecorder()
		h.ServeHTTP(first, httptest.NewRequest("GET", "/", http.NoBody))
		second := httptest.NewRecorder()
		h.ServeHTTP(second, httptest.NewRequest("GET", "/", http.NoBody))

		Convey("Then the second request is rejected", func() {
			So(first.Code, ShouldEqual, http.StatusOK)
			So(second.Code, ShouldEqual, http.StatusTooManyRequests)
			So(second.Body.String(), ShouldContainSubstring, "rate_limited")
		})
	})

	Convey("Given a non-positive rate", t, func() {
		Convey("Then no limiter is built and requests pass", func() {
			So(NewRateLimiter(0, 5), ShouldBeNil)
			w := httptest.NewRecorder()
			RateLimitMiddleware(ok, nil).ServeHTTP(w, httptest.NewRequest("GET", "/", http.NoBody))
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given op-tagged errors", t, func() {
		cause := errors.New("eof")

		Convey("Then kinds and causes are matchable", func() {
			So(errors.Is(NewKind("api.x", ErrBadRequest), ErrBadRequest), ShouldBeTrue)
			So(errors.Is(WrapKind("api.x", ErrBadRequest, cause), cause), ShouldBeTrue)
			So(errors.Is(Wrap("api.x", cause), cause), ShouldBeTrue)
			So(Wrap("api.x", nil), ShouldBeNil)
		})

		Convey("Then messages join op, kind and cause", func() {
			So(WrapKind("api.x", ErrBadRequest, cause).Error(), ShouldEqual, "api.x: bad request: eof")
			So(NewKind("api.x", ErrBackpressure).Error(), ShouldEqual, "api.x: backpressure")
		})
	})
}

func TestServer_EndToEnd(t *testing.T) {
	Convey("Given the API over a service serving the sample league", t, func() {
		store, err := repository.NewMemoryStoreFrom(synth.League())
		So(err, ShouldBeNil)
		svc := service.New(
			service.WithStore(store),
			service.WithWorkerCount(2),
			service.WithClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }),
		)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		server := NewServer(svc)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)
		h := server.Handler(mux)

		get := func(target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("GET", target, http.NoBody))
			return w
		}

		Convey("When asking for the manager bridge path", func() {
			first := get("/path?source=3&target=5")
			second := get("/path?source=3&target=5")

			Convey("Then the four-step path is returned identically each time", func() {
				So(first.Code, ShouldEqual, http.StatusOK)
				So(first.Body.String(), ShouldEqual, second.Body.String())

				var res types.Result
				So(json.NewDecoder(first.Body).Decode(&res), ShouldBeNil)
				So(res.TotalSteps, ShouldEqual, 4)
				So(res.Steps[0].FromPersonName, ShouldEqual, "Carla Winger")
				So(res.Steps[3].ToPersonName, ShouldEqual, "Elena Boss")
				So(res.StartPerson.Name, ShouldEqual, "Carla Winger")
				So(res.EndPerson.ID, ShouldEqual, int64(5))
			})
		})

		Convey("When asking for an unknown person", func() {
			So(get("/path?source=1&target=404").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When asking for the same person", func() {
			So(get("/path?source=2&target=2").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When submitting a batch", func() {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest("POST", "/paths/batch",
				strings.NewReader(`{"pairs": [{"sourcePersonId": 1, "targetPersonId": 5}, {"sourcePersonId": 1, "targetPersonId": 6}]}`)))

			Convey("Then each pair is answered", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var resp batchResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Results[0].TotalSteps, ShouldEqual, 2)
				So(resp.Results[1].Found, ShouldBeFalse)
			})
		})

		Convey("When searching and reading people", func() {
			matches := get("/people/search?q=boss")
			detail := get("/people/5")

			Convey("Then both resolve from the store", func() {
				So(matches.Body.String(), ShouldContainSubstring, `"count":1`)
				So(detail.Body.String(), ShouldContainSubstring, `"venueName":"Harbor United"`)
				So(get("/people/404").Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}
