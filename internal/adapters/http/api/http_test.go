package api_test

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

	"github.com/okian/rtmonitor/internal/adapters/http/api"
	"github.com/okian/rtmonitor/internal/adapters/mq/queue"
	"github.com/okian/rtmonitor/internal/adapters/repository"
	service "github.com/okian/rtmonitor/internal/app"
	"github.com/okian/rtmonitor/internal/domain/estimate"
	"github.com/okian/rtmonitor/internal/domain/filter"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records the last selection and returns canned answers.
type mockDependencies struct {
	ready      bool
	evalErr    error
	reloadErr  error
	catalogErr error

	lastRegion       string
	lastMunicipality string
}

func (m *mockDependencies) Evaluate(ctx context.Context, region, municipality string) (estimate.Evaluation, error) {
	m.lastRegion, m.lastMunicipality = region, municipality
	if m.evalErr != nil {
		return estimate.Evaluation{}, m.evalErr
	}
	if region == "Amazonas" {
		return estimate.Evaluation{
			Status:   estimate.StatusNoData,
			Reason:   estimate.ReasonEmptySelection,
			Selector: filter.NewSelector(region, municipality),
		}, nil
	}
	return estimate.Evaluation{
		Status:   estimate.StatusOK,
		Selector: filter.NewSelector(region, municipality),
		Summary:  filter.Summary{Positives: 42, Recovered: 7},
	}, nil
}

func (m *mockDependencies) Regions(ctx context.Context) ([]string, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	return []string{"Antioquia", "Caldas"}, nil
}

func (m *mockDependencies) Municipalities(ctx context.Context, region string) ([]string, error) {
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	switch region {
	case "":
		return []string{"Envigado", "Manizales", "Medellín"}, nil
	case "Antioquia":
		return []string{"Envigado", "Medellín"}, nil
	}
	return nil, fmt.Errorf("%w: %s", repository.ErrUnknownRegion, region)
}

func (m *mockDependencies) Status(ctx context.Context) service.Status {
	if !m.ready {
		return service.Status{}
	}
	return service.Status{
		Ready:      true,
		SnapshotID: "snap-1",
		Source:     "file",
		LoadedAt:   time.Date(2020, time.May, 1, 12, 0, 0, 0, time.UTC),
		Records:    100,
		Regions:    2,
		Report:     linelist.Report{Records: 100, MissingIDs: 3},
	}
}

func (m *mockDependencies) RequestReload(ctx context.Context) (queue.Request, error) {
	if m.reloadErr != nil {
		return queue.Request{}, m.reloadErr
	}
	return queue.Request{ID: "req-1", Trigger: queue.TriggerManual, RequestedAt: time.Now()}, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newMux(deps *mockDependencies) *http.ServeMux {
	mux := http.NewServeMux()
	server := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true, "records": 100}})
	server.Register(context.Background(), mux)
	return mux
}

func serve(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		deps := &mockDependencies{ready: true}
		mux := newMux(deps)

		Convey("Then health reports a loaded snapshot", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["ready"], ShouldEqual, true)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then health serves metrics to scrapers", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
			req.Header.Set("Accept", "text/plain")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "# TYPE")
		})

		Convey("Then a caller-supplied request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("Then metrics are exposed", func() {
			serve(mux, http.MethodGet, "/stats")
			w := serve(mux, http.MethodGet, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "http_requests_total")
		})

		Convey("Then stats are served", func() {
			w := serve(mux, http.MethodGet, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["records"], ShouldEqual, 100.0)
		})

		Convey("Then status describes the snapshot", func() {
			w := serve(mux, http.MethodGet, "/status")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["snapshot_id"], ShouldEqual, "snap-1")
			So(body["ready"], ShouldEqual, true)
			So(body, ShouldNotContainKey, "last_reload_at")
		})

		Convey("Then unknown paths are not found", func() {
			w := serve(mux, http.MethodGet, "/forecast")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a server before the first snapshot", t, func() {
		mux := newMux(&mockDependencies{evalErr: service.ErrNotReady, catalogErr: service.ErrNotReady})

		Convey("Then health reports loading", func() {
			w := serve(mux, http.MethodGet, "/healthz")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode(w)["status"], ShouldEqual, "loading")
		})

		Convey("Then reads answer service unavailable", func() {
			for _, path := range []string{"/rt?region=Antioquia", "/regions", "/municipalities"} {
				w := serve(mux, http.MethodGet, path)
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(decode(w)["code"], ShouldEqual, "not_ready")
			}
		})
	})
}

func TestRtHandler(t *testing.T) {
	Convey("Given the rt endpoint", t, func() {
		deps := &mockDependencies{ready: true}
		mux := newMux(deps)

		Convey("When a region and municipality are requested", func() {
			w := serve(mux, http.MethodGet, "/rt?region=+Antioquia+&municipality=Medell%C3%ADn")

			Convey("Then the trimmed selection is evaluated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRegion, ShouldEqual, "Antioquia")
				So(deps.lastMunicipality, ShouldEqual, "Medellín")
				body := decode(w)
				So(body["status"], ShouldEqual, estimate.StatusOK)
				So(body["summary"].(map[string]any)["positives"], ShouldEqual, 42.0)
			})
		})

		Convey("When no selection is given", func() {
			w := serve(mux, http.MethodGet, "/rt")

			Convey("Then the whole country is evaluated", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRegion, ShouldBeEmpty)
				So(deps.lastMunicipality, ShouldBeEmpty)
			})
		})

		Convey("When the selection has no records", func() {
			w := serve(mux, http.MethodGet, "/rt?region=Amazonas")

			Convey("Then no data is reported with 200", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["status"], ShouldEqual, estimate.StatusNoData)
				So(body["reason"], ShouldEqual, estimate.ReasonEmptySelection)
			})
		})

		Convey("When the region is absurdly long", func() {
			w := serve(mux, http.MethodGet, "/rt?region="+strings.Repeat("x", 200))

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the method is not GET", func() {
			w := serve(mux, http.MethodPost, "/rt")

			Convey("Then it is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodGet)
			})
		})

		Convey("When the pipeline fails", func() {
			deps.evalErr = errors.New("boom")
			w := serve(mux, http.MethodGet, "/rt?region=Antioquia")

			Convey("Then an internal error is reported", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decode(w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldEqual, "api.get_rt: boom")
			})
		})
	})
}

func TestCatalogHandler(t *testing.T) {
	Convey("Given the catalog endpoints", t, func() {
		mux := newMux(&mockDependencies{ready: true})

		Convey("Then regions are listed", func() {
			w := serve(mux, http.MethodGet, "/regions")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["items"], ShouldResemble, []any{"Antioquia", "Caldas"})
		})

		Convey("Then municipalities of a region are listed", func() {
			w := serve(mux, http.MethodGet, "/municipalities?region=Antioquia")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["region"], ShouldEqual, "Antioquia")
			So(body["items"], ShouldResemble, []any{"Envigado", "Medellín"})
		})

		Convey("Then every municipality is listed without a region", func() {
			w := serve(mux, http.MethodGet, "/municipalities")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["items"], ShouldHaveLength, 3)
		})

		Convey("Then an unknown region is not found", func() {
			w := serve(mux, http.MethodGet, "/municipalities?region=Atlantis")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestReloadHandler(t *testing.T) {
	Convey("Given the reload endpoint", t, func() {
		deps := &mockDependencies{ready: true}
		mux := newMux(deps)

		Convey("When a reload is posted", func() {
			w := serve(mux, http.MethodPost, "/reload")

			Convey("Then it is queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "queued")
				So(body["request_id"], ShouldEqual, "req-1")
			})
		})

		Convey("When a reload is already pending", func() {
			deps.reloadErr = queue.ErrPending
			w := serve(mux, http.MethodPost, "/reload")

			Convey("Then it is merged into the pending one", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["status"], ShouldEqual, "pending")
				So(body, ShouldNotContainKey, "request_id")
			})
		})

		Convey("When the service is stopped", func() {
			deps.reloadErr = service.ErrNotStarted
			w := serve(mux, http.MethodPost, "/reload")

			Convey("Then it is unavailable", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When the method is GET", func() {
			w := serve(mux, http.MethodGet, "/reload")

			Convey("Then it is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
				So(w.Header().Get("Allow"), ShouldEqual, http.MethodPost)
			})
		})
	})
}

func TestKindError(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := errors.New("disk on fire")

		Convey("Then kinds and causes are both matchable", func() {
			err := api.WrapKind("api.op", api.ErrBadRequest, cause)
			So(errors.Is(err, api.ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: bad request: disk on fire")

			var kerr *api.KindError
			So(errors.As(err, &kerr), ShouldBeTrue)
			So(kerr.Op, ShouldEqual, "api.op")
		})

		Convey("Then NewKind and Wrap format their parts", func() {
			So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
			So(api.Wrap("api.op", cause).Error(), ShouldEqual, "api.op: disk on fire")
			So(api.Wrap("api.op", nil), ShouldBeNil)
		})
	})
}
