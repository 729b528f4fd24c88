package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/stylematch/internal/adapters/http/api"
	"github.com/okian/stylematch/internal/adapters/mq/queue"
	"github.com/okian/stylematch/internal/adapters/repository"
	"github.com/okian/stylematch/internal/domain/matching"
	"github.com/okian/stylematch/internal/domain/model"
	"github.com/okian/stylematch/internal/domain/recommend"
	"github.com/okian/stylematch/internal/domain/types"
)

// Mock implementations for testing
type mockDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *mockDeduper) SeenAndRecord(_ context.Context, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[id] {
		return true
	}
	m.seen[id] = true
	return false
}

func (m *mockDeduper) Unrecord(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, id)
}

func (m *mockDeduper) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.seen))
}

type staticCatalog []model.ServiceOffering

func (c staticCatalog) FindOfferingsByStyleName(_ context.Context, name string) ([]model.ServiceOffering, error) {
	var out []model.ServiceOffering
	for _, o := range c {
		if o.StyleName == name {
			out = append(out, o)
		}
	}
	return out, nil
}

func (c staticCatalog) FindAllOfferings(_ context.Context) ([]model.ServiceOffering, error) {
	return c, nil
}

type mockDependencies struct {
	*mockDeduper
	recommender *recommend.Engine
	matcher     *matching.Engine

	enqueueErr error
	enqueued   []model.MatchOutcome

	published  []model.ServiceOffering
	publishErr error

	topN    []types.Entry
	topNErr error
	rank    types.Entry
	rankErr error
}

func newMockDependencies() *mockDependencies {
	catalog := staticCatalog{
		{
			ID:             "A",
			Stylist:        model.StylistCandidate{ID: "sa", EloRating: 1600, Latitude: 40.7, Longitude: -74.0},
			StyleName:      "bob",
			CostPerHour:    50,
			EstimatedHours: 1,
		},
		{
			ID:             "B",
			Stylist:        model.StylistCandidate{ID: "sb", EloRating: 1700, Latitude: 40.7, Longitude: -74.0},
			StyleName:      "bob",
			CostPerHour:    70,
			EstimatedHours: 1,
			AddOns:         []model.AddOn{{Name: "wash", Cost: 20}},
		},
	}
	return &mockDependencies{
		mockDeduper: &mockDeduper{},
		recommender: recommend.NewEngine(catalog),
		matcher:     matching.NewEngine(),
	}
}

func (m *mockDependencies) Recommend(ctx context.Context, q recommend.Query) (recommend.Page, error) {
	return m.recommender.Recommend(ctx, q)
}

func (m *mockDependencies) StableMatch(_ context.Context, customers []model.CustomerCandidate, stylists []matching.Stylist) ([]model.Pair, error) {
	if err := matching.Validate(customers, stylists); err != nil {
		return nil, err
	}
	return m.matcher.Match(customers, stylists).Pairs, nil
}

func (m *mockDependencies) Enqueue(_ context.Context, o model.MatchOutcome) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, o)
	return nil
}

func (m *mockDependencies) PublishOffering(_ context.Context, o model.ServiceOffering) (model.ServiceOffering, error) {
	if m.publishErr != nil {
		return model.ServiceOffering{}, m.publishErr
	}
	if err := o.Validate(); err != nil {
		return model.ServiceOffering{}, err
	}
	o.Stylist.EloRating = model.DefaultEloRating
	m.published = append(m.published, o)
	return o, nil
}

func (m *mockDependencies) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if m.topNErr != nil {
		return nil, m.topNErr
	}
	if n > len(m.topN) {
		return m.topN, nil
	}
	return m.topN[:n], nil
}

func (m *mockDependencies) Rank(_ context.Context, _ string) (types.Entry, error) {
	if m.rankErr != nil {
		return types.Entry{}, m.rankErr
	}
	return m.rank, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats(_ context.Context) map[string]any {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"workers": 4}}, api.WithMaxLeaderboardLimit(50), api.WithDefaultPageSize(1)).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux := newMux(newMockDependencies())

		Convey("Then health serves the metrics exposition", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("And stats returns the provider map", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"workers":4`)
		})

		Convey("And unknown paths are not found", func() {
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And wrong methods are not found", func() {
			So(do(mux, http.MethodPost, "/recommend", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/stable", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a nil mux", t, func() {
		server := api.NewServer(newMockDependencies(), &mockStatsProvider{})
		So(func() { server.Register(context.Background(), nil) }, ShouldPanic)
	})
}

func TestRecommendHandler(t *testing.T) {
	Convey("Given the recommend endpoint", t, func() {
		mux := newMux(newMockDependencies())

		Convey("When searching for bob", func() {
			w := do(mux, http.MethodGet, "/recommend?styleName=bob&latitude=40.7&longitude=-74.0&page=0&size=10", "")

			Convey("Then offerings come back ordered by Elo with total costs", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var page struct {
					Content []struct {
						ID        string  `json:"id"`
						TotalCost float64 `json:"totalCost"`
						Distance  float64 `json:"distance"`
					} `json:"content"`
					TotalElements int  `json:"totalElements"`
					TotalPages    int  `json:"totalPages"`
					Last          bool `json:"last"`
					UsedFallback  bool `json:"usedFallback"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &page), ShouldBeNil)
				So(len(page.Content), ShouldEqual, 2)
				So(page.Content[0].ID, ShouldEqual, "B")
				So(page.Content[0].TotalCost, ShouldEqual, 90.0)
				So(page.Content[1].TotalCost, ShouldEqual, 50.0)
				So(page.Content[0].Distance, ShouldAlmostEqual, 0.0, 1e-9)
				So(page.TotalElements, ShouldEqual, 2)
				So(page.TotalPages, ShouldEqual, 1)
				So(page.Last, ShouldBeTrue)
				So(page.UsedFallback, ShouldBeFalse)
			})
		})

		Convey("When the style is unknown", func() {
			w := do(mux, http.MethodGet, "/recommend?styleName=mullet&latitude=0&longitude=0", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"usedFallback":true`)
		})

		Convey("When the page is negative", func() {
			w := do(mux, http.MethodGet, "/recommend?styleName=bob&latitude=0&longitude=0&page=-1", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "bad_request")
		})

		Convey("When parameters are missing or malformed", func() {
			So(do(mux, http.MethodGet, "/recommend?latitude=0&longitude=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/recommend?styleName=bob&longitude=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/recommend?styleName=bob&latitude=x&longitude=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/recommend?styleName=bob&latitude=0&longitude=0&minCost=abc", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When size is omitted the configured default applies", func() {
			w := do(mux, http.MethodGet, "/recommend?styleName=bob&latitude=0&longitude=0", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"size":1`)
			So(w.Body.String(), ShouldContainSubstring, `"totalPages":2`)
		})

		Convey("When a cost window is given", func() {
			w := do(mux, http.MethodGet, "/recommend?styleName=bob&latitude=0&longitude=0&minCost=60", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"totalElements":1`)
		})
	})
}

func TestStableHandler(t *testing.T) {
	Convey("Given the stable endpoint", t, func() {
		mux := newMux(newMockDependencies())

		Convey("When FREE submits before PREMIUM for one stylist", func() {
			body := `{"customers":[{"id":"free","subscriptionTier":"FREE"},{"id":"prem","subscriptionTier":"premium"}],
				"stylists":[{"id":"s1","eloRating":1600,"costPerHour":50,"distance":2}]}`
			w := do(mux, http.MethodPost, "/stable", body)

			Convey("Then the PREMIUM customer gets the stylist", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var pairs []model.Pair
				So(json.Unmarshal(w.Body.Bytes(), &pairs), ShouldBeNil)
				So(pairs, ShouldResemble, []model.Pair{{CustomerID: "prem", StylistID: "s1"}})
			})
		})

		Convey("When either side is empty", func() {
			w := do(mux, http.MethodPost, "/stable", `{"customers":[],"stylists":[{"id":"s1"}]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})

		Convey("When a tier is unknown", func() {
			w := do(mux, http.MethodPost, "/stable", `{"customers":[{"id":"c","subscriptionTier":"GOLD"}],"stylists":[]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When ids repeat", func() {
			w := do(mux, http.MethodPost, "/stable", `{"customers":[{"id":"c","subscriptionTier":"VIP"},{"id":"c","subscriptionTier":"VIP"}],"stylists":[{"id":"s"}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When a stylist cost is negative", func() {
			w := do(mux, http.MethodPost, "/stable", `{"customers":[],"stylists":[{"id":"s","costPerHour":-1}]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the body is not JSON", func() {
			So(do(mux, http.MethodPost, "/stable", `{`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOutcomesHandler(t *testing.T) {
	Convey("Given the outcomes endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)
		body := `{"eventId":"evt-1","winnerId":"a","loserId":"b","ts":"2025-01-02T03:04:05Z"}`

		Convey("When a new outcome arrives", func() {
			w := do(mux, http.MethodPost, "/outcomes", body)

			Convey("Then it is accepted and enqueued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(len(deps.enqueued), ShouldEqual, 1)
				So(deps.enqueued[0].WinnerID, ShouldEqual, "a")
				So(deps.enqueued[0].OccurredAt.Year(), ShouldEqual, 2025)
			})

			Convey("And a replay is reported as duplicate", func() {
				w2 := do(mux, http.MethodPost, "/outcomes", body)
				So(w2.Code, ShouldEqual, http.StatusOK)
				So(w2.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(deps.enqueued), ShouldEqual, 1)
			})
		})

		Convey("When the event id is omitted", func() {
			w := do(mux, http.MethodPost, "/outcomes", `{"winnerId":"a","loserId":"b"}`)
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(deps.enqueued[0].EventID, ShouldNotBeEmpty)
		})

		Convey("When the queue is full", func() {
			deps.enqueueErr = queue.ErrFull
			w := do(mux, http.MethodPost, "/outcomes", body)

			Convey("Then backpressure is signalled and the id is released", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
				So(deps.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the queue is closed", func() {
			deps.enqueueErr = queue.ErrClosed
			So(do(mux, http.MethodPost, "/outcomes", body).Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the request is invalid", func() {
			So(do(mux, http.MethodPost, "/outcomes", `{"winnerId":"a"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/outcomes", `{"winnerId":"a","loserId":"a"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/outcomes", `{"winnerId":"a","loserId":"b","ts":"yesterday"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodPost, "/outcomes", `{"winnerId":"a","loserId":"b","extra":1}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestOfferingsHandler(t *testing.T) {
	Convey("Given the offerings endpoint", t, func() {
		deps := newMockDependencies()
		mux := newMux(deps)

		Convey("When a valid offering is published", func() {
			body := `{"stylist":{"id":"s-9","latitude":40.7,"longitude":-74},"styleName":"fade","costPerHour":30,"estimatedHours":0.5,"addOns":[{"name":"beard","cost":10}]}`
			w := do(mux, http.MethodPost, "/offerings", body)

			Convey("Then it is created with a generated id", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(len(deps.published), ShouldEqual, 1)
				So(deps.published[0].ID, ShouldNotBeEmpty)
				So(deps.published[0].AddOns, ShouldResemble, []model.AddOn{{Name: "beard", Cost: 10}})
				So(w.Body.String(), ShouldContainSubstring, `"styleName":"fade"`)
			})
		})

		Convey("When hours are zero", func() {
			w := do(mux, http.MethodPost, "/offerings", `{"stylist":{"id":"s"},"styleName":"fade","costPerHour":30,"estimatedHours":0}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the stylist is missing", func() {
			w := do(mux, http.MethodPost, "/offerings", `{"styleName":"fade","costPerHour":30,"estimatedHours":1}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store fails", func() {
			deps.publishErr = errors.New("disk full")
			w := do(mux, http.MethodPost, "/offerings", `{"stylist":{"id":"s"},"styleName":"fade","costPerHour":30,"estimatedHours":1}`)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestStylistHandlers(t *testing.T) {
	Convey("Given the stylist read endpoints", t, func() {
		deps := newMockDependencies()
		deps.topN = []types.Entry{
			{Rank: 1, StylistID: "a", EloRating: 1700},
			{Rank: 2, StylistID: "b", EloRating: 1600},
		}
		deps.rank = types.Entry{Rank: 2, StylistID: "b", EloRating: 1600}
		mux := newMux(deps)

		Convey("When asking for the top stylists", func() {
			w := do(mux, http.MethodGet, "/stylists/top?limit=1", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var entries []types.Entry
			So(json.Unmarshal(w.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldResemble, deps.topN[:1])
		})

		Convey("When no limit is given the default applies", func() {
			So(do(mux, http.MethodGet, "/stylists/top", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the limit is invalid or too large", func() {
			So(do(mux, http.MethodGet, "/stylists/top?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/stylists/top?limit=51", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "limit_exceeded")
		})

		Convey("When the store fails", func() {
			deps.topNErr = errors.New("boom")
			So(do(mux, http.MethodGet, "/stylists/top?limit=1", "").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When asking for one stylist", func() {
			w := do(mux, http.MethodGet, "/stylists/b", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"rank":2`)
		})

		Convey("When the stylist is unknown", func() {
			deps.rankErr = repository.ErrNotFound
			So(do(mux, http.MethodGet, "/stylists/ghost", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the id has extra segments", func() {
			So(do(mux, http.MethodGet, "/stylists/a/b", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestErrorHelpers(t *testing.T) {
	Convey("Given the wrapping helpers", t, func() {
		cause := errors.New("cause")

		So(api.Wrap("op", nil), ShouldBeNil)
		So(api.Wrap("op", cause).Error(), ShouldEqual, "op: cause")

		err := api.WrapKind("op", api.ErrBadRequest, cause)
		So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
		So(errors.Is(err, cause), ShouldBeTrue)

		So(errors.Is(api.NewKind("op", api.ErrBackpressure), api.ErrBackpressure), ShouldBeTrue)
		So(errors.Is(api.WrapKind("op", api.ErrNotFound, nil), api.ErrNotFound), ShouldBeTrue)
	})
}
