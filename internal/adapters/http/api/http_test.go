package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shalun/raidlogs/internal/adapters/http/api"
	"github.com/shalun/raidlogs/internal/adapters/repository"
	service "github.com/shalun/raidlogs/internal/app"
	"github.com/shalun/raidlogs/internal/domain/admission"
	"github.com/shalun/raidlogs/internal/domain/encounter"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps implements api.Dependencies and api.StatsProvider with canned
// responses per test.
type fakeDeps struct {
	uploadResult api.UploadResult
	uploadErr    error
	uploadToken  string

	recentRuns []repository.Run
	recentErr  error
	topRuns    []repository.Run
	topErr     error
	run        *repository.Run
	runErr     error
}

func (f *fakeDeps) Upload(_ context.Context, _ *encounter.Payload, token string) (api.UploadResult, error) {
	f.uploadToken = token
	return f.uploadResult, f.uploadErr
}

func (f *fakeDeps) SearchRecent(_ context.Context, _ repository.RecentFilter) ([]repository.Run, error) {
	return f.recentRuns, f.recentErr
}

func (f *fakeDeps) SearchTop(_ context.Context, _ repository.TopFilter) ([]repository.Run, error) {
	return f.topRuns, f.topErr
}

func (f *fakeDeps) GetRun(_ context.Context, _ string) (*repository.Run, error) {
	return f.run, f.runErr
}

func (f *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"dedupeSize": int64(0)}
}

func newTestMux(deps *fakeDeps, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, opts...).Register(context.Background(), mux)
	return mux
}

func postJSON(mux *http.ServeMux, path string, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Code, body.Message
}

const uploadBody = `{"bossId":3026,"areaId":3026,"members":[]}`

func TestUploadEndpoint(t *testing.T) {
	Convey("Given the upload endpoint", t, func() {
		Convey("When an upload is admitted", func() {
			deps := &fakeDeps{uploadResult: api.UploadResult{RunID: "ab2c3", URL: "https://runs.example.com/ab2c3"}}
			mux := newTestMux(deps)

			rec := postJSON(mux, "/upload", uploadBody, map[string]string{"X-Auth-Token": "some-upload-token"})

			Convey("Then the response carries the shareable location", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var resp struct {
					ID string `json:"id"`
				}
				So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.ID, ShouldEqual, "https://runs.example.com/ab2c3")
			})

			Convey("Then the token from the auth header reaches the pipeline", func() {
				So(deps.uploadToken, ShouldEqual, "some-upload-token")
			})

			Convey("Then a request correlation id is echoed", func() {
				So(rec.Header().Get("X-Request-Id"), ShouldNotBeEmpty)
			})
		})

		Convey("When a custom auth header is configured", func() {
			deps := &fakeDeps{}
			mux := newTestMux(deps, api.WithAuthHeader("X-Raid-Token"))

			postJSON(mux, "/upload", uploadBody, map[string]string{"X-Raid-Token": "custom-header-token"})

			Convey("Then the token is read from that header", func() {
				So(deps.uploadToken, ShouldEqual, "custom-header-token")
			})
		})

		Convey("When the body is not valid JSON", func() {
			mux := newTestMux(&fakeDeps{})
			rec := postJSON(mux, "/upload", `{"bossId":`, nil)

			Convey("Then it should answer 400 bad_request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the pipeline reports an unauthorized token", func() {
			mux := newTestMux(&fakeDeps{uploadErr: service.ErrUnauthorized})
			rec := postJSON(mux, "/upload", uploadBody, nil)

			Convey("Then it should answer 403 unauthorized", func() {
				So(rec.Code, ShouldEqual, http.StatusForbidden)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "unauthorized")
			})
		})

		Convey("When the pipeline reports a duplicate", func() {
			mux := newTestMux(&fakeDeps{uploadErr: service.ErrDuplicate})
			rec := postJSON(mux, "/upload", uploadBody, nil)

			Convey("Then it should answer 403 duplicate", func() {
				So(rec.Code, ShouldEqual, http.StatusForbidden)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "duplicate")
			})
		})

		Convey("When the pipeline rejects on an admission rule", func() {
			mux := newTestMux(&fakeDeps{
				uploadErr: &service.RejectedError{Reason: admission.ReasonTimeDiff},
			})
			rec := postJSON(mux, "/upload", uploadBody, nil)

			Convey("Then the reason becomes the machine-readable code", func() {
				So(rec.Code, ShouldEqual, http.StatusForbidden)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "time_diff_exceeded")
			})
		})

		Convey("When the payload fails structural validation", func() {
			mux := newTestMux(&fakeDeps{uploadErr: encounter.ErrBadClass})
			rec := postJSON(mux, "/upload", uploadBody, nil)

			Convey("Then it should answer 400 bad_request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "bad_request")
			})
		})

		Convey("When the pipeline fails internally", func() {
			mux := newTestMux(&fakeDeps{uploadErr: errors.New("disk I/O error at /var/lib/raidlogs.db")})
			rec := postJSON(mux, "/upload", uploadBody, nil)

			Convey("Then it should answer 500 internal_error", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "internal_error")
			})

			Convey("Then the store detail stays out of the response", func() {
				_, message := decodeError(t, rec)
				So(message, ShouldNotContainSubstring, "raidlogs.db")
				So(message, ShouldNotContainSubstring, "disk I/O")
				So(message, ShouldContainSubstring, "internal error")
			})
		})

		Convey("When the method is not POST", func() {
			mux := newTestMux(&fakeDeps{})
			req := httptest.NewRequest(http.MethodGet, "/upload", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should answer 404", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func sampleRun(runID string) repository.Run {
	return repository.Run{
		RunID:         runID,
		BossID:        3026,
		HuntingZoneID: 3026,
		Region:        "EU",
		PartyDps:      "71000000",
		Members: []repository.RunMember{
			{
				Member:   encounter.Member{PlayerClass: "Warrior", PlayerName: "Edgelord", PlayerID: 12},
				RoleType: "tank",
				Identity: &repository.PlayerIdentity{PlayerClass: "Warrior", PlayerName: "Edgelord", PlayerID: 12},
			},
		},
	}
}

func TestSearchEndpoints(t *testing.T) {
	Convey("Given the search endpoints", t, func() {
		Convey("When recent runs are requested", func() {
			deps := &fakeDeps{recentRuns: []repository.Run{sampleRun("aaa11"), sampleRun("bbb22")}}
			mux := newTestMux(deps)

			rec := postJSON(mux, "/search/recent", `{"region":"EU","excludeP2wConsums":true}`, nil)

			Convey("Then the runs come back with identities attached", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var runs []repository.Run
				So(json.Unmarshal(rec.Body.Bytes(), &runs), ShouldBeNil)
				So(len(runs), ShouldEqual, 2)
				So(runs[0].RunID, ShouldEqual, "aaa11")
				So(runs[0].Members[0].Identity, ShouldNotBeNil)
				So(strings.Contains(rec.Body.String(), `"userData"`), ShouldBeTrue)
			})
		})

		Convey("When the recent body is empty JSON", func() {
			deps := &fakeDeps{recentRuns: []repository.Run{}}
			mux := newTestMux(deps)
			rec := postJSON(mux, "/search/recent", `{}`, nil)

			Convey("Then an unconstrained query is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the recent search fails", func() {
			mux := newTestMux(&fakeDeps{recentErr: errors.New("disk I/O error at /var/lib/raidlogs.db")})
			rec := postJSON(mux, "/search/recent", `{}`, nil)

			Convey("Then only a generic internal error is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				code, message := decodeError(t, rec)
				So(code, ShouldEqual, "internal_error")
				So(message, ShouldNotContainSubstring, "raidlogs.db")
			})
		})

		Convey("When top runs are requested with a full selector", func() {
			deps := &fakeDeps{topRuns: []repository.Run{sampleRun("top01")}}
			mux := newTestMux(deps)

			rec := postJSON(mux, "/search/top",
				`{"region":"EU","huntingZoneId":3026,"bossId":3026,"playerClass":"Warrior"}`, nil)

			Convey("Then the runs come back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var runs []repository.Run
				So(json.Unmarshal(rec.Body.Bytes(), &runs), ShouldBeNil)
				So(len(runs), ShouldEqual, 1)
			})
		})

		Convey("When the top selector misses a required field", func() {
			mux := newTestMux(&fakeDeps{})
			rec := postJSON(mux, "/search/top", `{"region":"EU","bossId":3026}`, nil)

			Convey("Then it should answer 400 bad_request", func() {
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "bad_request")
			})
		})

		Convey("When a run is fetched by id", func() {
			run := sampleRun("ccc33")
			mux := newTestMux(&fakeDeps{run: &run})
			rec := postJSON(mux, "/search/id", `{"runId":"ccc33"}`, nil)

			Convey("Then the full document comes back", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got repository.Run
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got.RunID, ShouldEqual, "ccc33")
			})
		})

		Convey("When the run id is unknown", func() {
			mux := newTestMux(&fakeDeps{runErr: repository.ErrRunNotFound})
			rec := postJSON(mux, "/search/id", `{"runId":"zzzzz"}`, nil)

			Convey("Then it should answer 404 not_found", func() {
				So(rec.Code, ShouldEqual, http.StatusNotFound)
				code, _ := decodeError(t, rec)
				So(code, ShouldEqual, "not_found")
			})
		})

		Convey("When the run lookup fails internally", func() {
			mux := newTestMux(&fakeDeps{runErr: errors.New("disk I/O error at /var/lib/raidlogs.db")})
			rec := postJSON(mux, "/search/id", `{"runId":"ccc33"}`, nil)

			Convey("Then only a generic internal error is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
				code, message := decodeError(t, rec)
				So(code, ShouldEqual, "internal_error")
				So(message, ShouldNotContainSubstring, "raidlogs.db")
			})
		})

		Convey("When the run id is blank", func() {
			mux := newTestMux(&fakeDeps{})
			rec := postJSON(mux, "/search/id", `{"runId":"  "}`, nil)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStatsAndHealthEndpoints(t *testing.T) {
	Convey("Given the operational endpoints", t, func() {
		mux := newTestMux(&fakeDeps{})

		Convey("When stats are requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the provider's snapshot is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "dedupeSize")
			})
		})

		Convey("When health is requested", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then it should answer 200", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When a client supplies its own request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("X-Request-Id", "client-chosen-id")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			Convey("Then the same id is echoed back", func() {
				So(rec.Header().Get("X-Request-Id"), ShouldEqual, "client-chosen-id")
			})
		})
	})
}
