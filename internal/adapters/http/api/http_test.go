package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/sportselo/internal/adapters/http/api"
	service "github.com/okian/sportselo/internal/app"
	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/internal/domain/sports"
	"github.com/okian/sportselo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWith(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
}

// saturated reports backpressure for every submission.
type saturated struct {
	*service.Service
}

func (saturated) Submit(context.Context, model.Contest) (model.Ack, error) {
	return model.Ack{}, service.ErrBackpressure
}

func newService() *service.Service {
	reg, err := sports.NewRegistry([]sports.Sport{
		{ID: "formula-one", Name: "Formula One", Active: true, Kind: sports.KindMotorsport},
		{ID: "motogp", Name: "MotoGP", Active: false, Kind: sports.KindMotorsport},
		{ID: "boxing", Name: "Boxing", Active: true, Kind: sports.KindIndividual},
		{ID: "padel", Name: "Padel", Active: true, Kind: sports.KindTeam},
	})
	if err != nil {
		panic(err)
	}
	return service.New(service.WithRegistry(reg), service.WithWorkerCount(2), service.WithMaxPageSize(50))
}

func newMux(deps api.Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return mux
}

func do(mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeMap(rec *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(rec.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func raceBody(id, date string, order ...string) string {
	results := make([]string, len(order))
	for i, d := range order {
		results[i] = fmt.Sprintf(`{"competitorId":%q,"position":%d}`, d, i+1)
	}
	return fmt.Sprintf(`{"id":%q,"kind":"race","occurredOn":%q,"race":{"results":[%s]}}`,
		id, date, strings.Join(results, ","))
}

func TestContestsAPI(t *testing.T) {
	Convey("Given a running service behind the API", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })
		mux := newMux(svc)

		Convey("When a race is submitted", func() {
			rec := do(mux, http.MethodPost, "/api/v1/formula-one/contests",
				raceBody("bahrain-2024", "2024-03-02", "max_verstappen", "perez", "sainz"))

			Convey("Then it is accepted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				body := decodeMap(rec)
				So(body["status"], ShouldEqual, "accepted")
				So(body["contestId"], ShouldEqual, "bahrain-2024")
				So(body["duplicate"], ShouldEqual, false)
			})

			Convey("Then resubmitting it is acknowledged as a duplicate", func() {
				again := do(mux, http.MethodPost, "/api/v1/formula-one/contests",
					raceBody("bahrain-2024", "2024-03-02", "max_verstappen", "perez", "sainz"))
				So(again.Code, ShouldEqual, http.StatusOK)
				So(decodeMap(again)["duplicate"], ShouldEqual, true)
			})
		})

		Convey("When a race arrives dated before one already applied", func() {
			rec := do(mux, http.MethodPost, "/api/v1/formula-one/contests",
				raceBody("jeddah-2024", "2024-03-09", "max_verstappen", "perez"))
			So(rec.Code, ShouldEqual, http.StatusAccepted)
			applied := false
			for deadline := time.Now().Add(2 * time.Second); !applied && time.Now().Before(deadline); {
				applied = do(mux, http.MethodGet, "/api/v1/formula-one/drivers/max_verstappen", "").Code == http.StatusOK
				if !applied {
					time.Sleep(5 * time.Millisecond)
				}
			}
			So(applied, ShouldBeTrue)

			early := do(mux, http.MethodPost, "/api/v1/formula-one/contests",
				raceBody("bahrain-2024", "2024-03-02", "max_verstappen", "perez"))
			again := do(mux, http.MethodPost, "/api/v1/formula-one/contests",
				raceBody("bahrain-2024", "2024-03-02", "max_verstappen", "perez"))

			Convey("Then it is rejected every time rather than swallowed as a duplicate", func() {
				So(early.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeMap(early)["code"], ShouldEqual, "validation_error")
				So(again.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeMap(again)["code"], ShouldEqual, "validation_error")
			})
		})

		Convey("When pairwise and team contests use word outcomes", func() {
			bout := do(mux, http.MethodPost, "/api/v1/boxing/contests",
				`{"id":"rumble","kind":"pairwise","occurredOn":"1974-10-30T00:00:00Z","pairwise":{"a":"ali","b":"foreman","outcome":"win"}}`)
			match := do(mux, http.MethodPost, "/api/v1/padel/contests",
				`{"id":"final","kind":"team","occurredOn":"2024-05-01","team":{"teamA":["a","b"],"teamB":["c","d"],"outcome":0.5}}`)

			Convey("Then both are accepted", func() {
				So(bout.Code, ShouldEqual, http.StatusAccepted)
				So(match.Code, ShouldEqual, http.StatusAccepted)
			})
		})

		Convey("When submissions are malformed or invalid", func() {
			cases := []struct {
				path, body string
				status     int
				code       string
			}{
				{"/api/v1/formula-one/contests", `{"id":`, http.StatusBadRequest, "bad_request"},
				{"/api/v1/formula-one/contests", `{"id":"x","kind":"race","laps":3}`, http.StatusBadRequest, "bad_request"},
				{"/api/v1/formula-one/contests", `{"id":"x","kind":"race","occurredOn":"March 2nd"}`, http.StatusBadRequest, "bad_request"},
				{"/api/v1/formula-one/contests", raceBody("", "2024-03-02", "a", "b"), http.StatusBadRequest, "validation_error"},
				{"/api/v1/formula-one/contests", raceBody("solo", "2024-03-02", "a"), http.StatusBadRequest, "validation_error"},
				{"/api/v1/formula-one/contests", raceBody("twice", "2024-03-02", "a", "a"), http.StatusBadRequest, "validation_error"},
				{"/api/v1/motogp/contests", raceBody("inactive", "2024-03-02", "a", "b"), http.StatusBadRequest, "validation_error"},
				{"/api/v1/boxing/contests", raceBody("wrong-kind", "2024-03-02", "a", "b"), http.StatusBadRequest, "validation_error"},
				{"/api/v1/cricket/contests", raceBody("unknown", "2024-03-02", "a", "b"), http.StatusNotFound, "not_found"},
				{"/api/v1/boxing/contests", `{"id":"x","kind":"pairwise","occurredOn":"2024-01-01","pairwise":{"a":"a","b":"b","outcome":"forfeit"}}`, http.StatusBadRequest, "bad_request"},
				{"/api/v1/boxing/contests", `{"id":"x","kind":"pairwise","occurredOn":"2024-01-01","pairwise":{"a":"a","b":"b","outcome":0.7}}`, http.StatusBadRequest, "validation_error"},
			}

			Convey("Then each maps to its status and code", func() {
				for _, c := range cases {
					rec := do(mux, http.MethodPost, c.path, c.body)
					So(rec.Code, ShouldEqual, c.status)
					So(decodeMap(rec)["code"], ShouldEqual, c.code)
				}
			})
		})

		Convey("When the queue is saturated", func() {
			rec := do(newMux(saturated{svc}), http.MethodPost, "/api/v1/formula-one/contests",
				raceBody("late", "2024-03-02", "a", "b"))

			Convey("Then the client is told to back off", func() {
				So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decodeMap(rec)["code"], ShouldEqual, "backpressure")
			})
		})

		Convey("When the service has stopped", func() {
			So(svc.Stop(ctx), ShouldBeNil)
			rec := do(mux, http.MethodPost, "/api/v1/formula-one/contests", raceBody("late", "2024-03-02", "a", "b"))

			Convey("Then submissions are unavailable", func() {
				So(rec.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}

func TestDriversAPI(t *testing.T) {
	Convey("Given a season applied through the API", t, func() {
		svc := newService()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		mux := newMux(svc)

		put := do(mux, http.MethodPut, "/api/v1/formula-one/drivers/max_verstappen",
			`{"givenName":"Max","familyName":"Verstappen","code":"VER","permanentNumber":"1","nationality":"Dutch","registeredOn":"2024-01-01"}`)
		So(put.Code, ShouldEqual, http.StatusOK)

		rounds := [][]string{
			{"max_verstappen", "perez", "sainz"},
			{"max_verstappen", "sainz", "perez"},
			{"sainz", "max_verstappen", "perez"},
		}
		for i, order := range rounds {
			rec := do(mux, http.MethodPost, "/api/v1/formula-one/contests",
				raceBody(fmt.Sprintf("round-%d", i+1), fmt.Sprintf("2024-03-%02d", 2+7*i), order...))
			So(rec.Code, ShouldEqual, http.StatusAccepted)
		}
		// Stop drains the queue; reads keep working on the in-memory store.
		So(svc.Stop(ctx), ShouldBeNil)

		Convey("When listing the leaderboard with defaults", func() {
			rec := do(mux, http.MethodGet, "/api/v1/formula-one/drivers", "")

			Convey("Then drivers are ordered by highest rating", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(rec)
				So(body["totalElements"], ShouldEqual, 3.0)
				So(body["totalPages"], ShouldEqual, 1.0)
				So(body["page"], ShouldEqual, 0.0)
				So(body["pageSize"], ShouldEqual, 10.0)

				drivers := body["drivers"].([]any)
				So(drivers, ShouldHaveLength, 3)
				first := drivers[0].(map[string]any)
				So(first["id"], ShouldEqual, "max_verstappen")
				So(first["fullName"], ShouldResemble, map[string]any{"givenName": "Max", "familyName": "Verstappen"})
				So(first["lastRaceDate"], ShouldEqual, "2024-03-16T00:00:00Z")

				for _, d := range drivers {
					row := d.(map[string]any)
					cur := row["currentElo"].(float64)
					So(row["lowestElo"].(float64), ShouldBeLessThanOrEqualTo, cur)
					So(cur, ShouldBeLessThanOrEqualTo, row["highestElo"].(float64))
				}
			})
		})

		Convey("When paging and sorting explicitly", func() {
			rec := do(mux, http.MethodGet, "/api/v1/formula-one/drivers?page=1&pageSize=2&sortBy=id&sortOrder=asc", "")

			Convey("Then the requested slice is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(rec)
				drivers := body["drivers"].([]any)
				So(drivers, ShouldHaveLength, 1)
				So(drivers[0].(map[string]any)["id"], ShouldEqual, "sainz")
				So(body["totalPages"], ShouldEqual, 2.0)
			})
		})

		Convey("When paging parameters are invalid", func() {
			for _, q := range []string{"page=abc", "pageSize=x", "page=-1", "sortBy=wins", "sortOrder=up",
				"page=922337203685477581&pageSize=10"} {
				rec := do(mux, http.MethodGet, "/api/v1/formula-one/drivers?"+q, "")
				So(rec.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeMap(rec)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When fetching one driver", func() {
			rec := do(mux, http.MethodGet, "/api/v1/formula-one/drivers/max_verstappen", "")

			Convey("Then the full record is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(rec)
				So(body["code"], ShouldEqual, "VER")
				So(body["nationality"], ShouldEqual, "Dutch")
				So(body["permanentNumber"], ShouldEqual, "1")
				So(body["rank"], ShouldEqual, 1.0)
				record := body["eloRecord"].([]any)
				So(record, ShouldHaveLength, 4)
				So(record[0].(map[string]any)["value"], ShouldEqual, 1500.0)
				So(record[0].(map[string]any)["occurredOn"], ShouldEqual, "2024-01-01T00:00:00Z")
				So(body["lowestElo"].(map[string]any)["value"], ShouldEqual, 1500.0)
				So(body["currentElo"], ShouldResemble, record[3])
			})
		})

		Convey("When fetching unknown drivers or sports", func() {
			So(do(mux, http.MethodGet, "/api/v1/formula-one/drivers/schumacher", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/api/v1/cricket/drivers", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/api/v1/cricket/search?q=a", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When searching", func() {
			rec := do(mux, http.MethodGet, "/api/v1/formula-one/search?q=ver", "")

			Convey("Then names and codes match case-insensitively", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var hits []map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &hits), ShouldBeNil)
				So(hits, ShouldHaveLength, 1)
				So(hits[0]["id"], ShouldEqual, "max_verstappen")
			})
		})

		Convey("When listing sports", func() {
			rec := do(mux, http.MethodGet, "/api/v1/sports", "")
			var list []map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &list), ShouldBeNil)

			Convey("Then the registry is returned in order", func() {
				So(list, ShouldHaveLength, 4)
				So(list[0]["id"], ShouldEqual, "formula-one")
				So(list[0]["route"], ShouldEqual, "/formula-one")
				So(list[1]["active"], ShouldEqual, false)
			})
		})

		Convey("When using an unsupported method", func() {
			So(do(mux, http.MethodDelete, "/api/v1/sports", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("When reading stats and health", func() {
			stats := do(mux, http.MethodGet, "/stats", "")
			health := do(mux, http.MethodGet, "/healthz", "")

			Convey("Then both respond", func() {
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(decodeMap(stats)["started"], ShouldEqual, false)
				So(health.Code, ShouldEqual, http.StatusOK)
				So(health.Body.String(), ShouldContainSubstring, "sportselo_rating_contests_duplicate_total")
			})
		})
	})
}

func TestCalculatorAPI(t *testing.T) {
	Convey("Given the calculator endpoints", t, func() {
		mux := newMux(newService())

		Convey("When computing a 1v1 win between equals", func() {
			rec := do(mux, http.MethodPost, "/api/v1/elo/pairwise", `{"ratingA":1000,"ratingB":1000,"outcome":"win"}`)

			Convey("Then the winner gains 16", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(rec)
				So(body["expectedA"], ShouldEqual, 0.5)
				So(body["deltaA"], ShouldEqual, 16.0)
				So(body["newRatingA"], ShouldEqual, 1016.0)
				So(body["newRatingB"], ShouldEqual, 984.0)
			})
		})

		Convey("When the outcome is outside {0, 0.5, 1}", func() {
			rec := do(mux, http.MethodPost, "/api/v1/elo/pairwise", `{"ratingA":1000,"ratingB":1000,"outcome":0.3}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeMap(rec)["code"], ShouldEqual, "validation_error")
		})

		Convey("When computing a team result", func() {
			rec := do(mux, http.MethodPost, "/api/v1/elo/team", `{"teamA":[1400,1600],"teamB":[1500],"outcome":"loss"}`)

			Convey("Then every member moves by the same delta", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(rec)
				So(body["deltaA"], ShouldEqual, -16.0)
				So(body["deltaB"], ShouldEqual, 16.0)
				So(body["teamA"], ShouldResemble, []any{1384.0, 1584.0})
				So(body["teamB"], ShouldResemble, []any{1516.0})
			})
		})

		Convey("When a team is empty", func() {
			rec := do(mux, http.MethodPost, "/api/v1/elo/team", `{"teamA":[],"teamB":[1500],"outcome":"win"}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When computing the worked race example", func() {
			entrants := make([]string, 20)
			for i := range entrants {
				r := 1600
				switch i {
				case 0:
					r = 1700
				case 4:
					r = 1500
				}
				entrants[i] = fmt.Sprintf(`{"rating":%d,"position":%d}`, r, i+1)
			}
			rec := do(mux, http.MethodPost, "/api/v1/elo/race", `{"entrants":[`+strings.Join(entrants, ",")+`]}`)

			Convey("Then P5 at 1500 against a 1600 field gains 14.4", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				body := decodeMap(rec)
				So(body["strengthOfField"], ShouldEqual, 1600.0)
				So(body["kFactor"], ShouldEqual, 33.5)
				p5 := body["entrants"].([]any)[4].(map[string]any)
				So(p5["delta"], ShouldEqual, 14.4)
				So(p5["after"], ShouldEqual, 1514.4)
				So(p5["score"], ShouldEqual, 0.7895)
			})
		})

		Convey("When positions repeat", func() {
			rec := do(mux, http.MethodPost, "/api/v1/elo/race",
				`{"entrants":[{"rating":1500,"position":1},{"rating":1500,"position":1}]}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeMap(rec)["code"], ShouldEqual, "validation_error")
		})
	})
}
