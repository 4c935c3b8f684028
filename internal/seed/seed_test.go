package seed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/sportselo/internal/adapters/http/api"
	service "github.com/okian/sportselo/internal/app"
	"github.com/okian/sportselo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWith(io.Discard, logger.FormatText); err != nil {
		panic(err)
	}
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:     baseURL,
		Sport:       "formula-one",
		Drivers:     12,
		Races:       6,
		FieldSize:   8,
		Workers:     4,
		Timeout:     5 * time.Second,
		Wait:        10 * time.Second,
		SeasonStart: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Seed:        7,
	}
}

// rosterIndexes maps race i's finishing order to roster positions.
func rosterIndexes(s Season, i int) []int {
	idx := make(map[string]int, len(s.Drivers))
	for n, d := range s.Drivers {
		idx[d.ID] = n
	}
	out := make([]int, len(s.Races[i].Order))
	for pos, id := range s.Races[i].Order {
		out[pos] = idx[id]
	}
	return out
}

func TestGenerate(t *testing.T) {
	Convey("Given a seed config", t, func() {
		cfg := testConfig("http://unused")

		Convey("The season has the requested shape", func() {
			s := Generate(cfg)
			So(s.Sport, ShouldEqual, "formula-one")
			So(s.Drivers, ShouldHaveLength, 12)
			So(s.Races, ShouldHaveLength, 6)

			ids := map[string]bool{}
			for _, d := range s.Drivers {
				So(ids[d.ID], ShouldBeFalse)
				ids[d.ID] = true
			}
			for i, r := range s.Races {
				So(r.Order, ShouldHaveLength, 8)
				So(r.OccurredOn, ShouldEqual, cfg.SeasonStart.AddDate(0, 0, 7*i))
				entered := map[string]bool{}
				for _, id := range r.Order {
					So(ids[id], ShouldBeTrue)
					So(entered[id], ShouldBeFalse)
					entered[id] = true
				}
			}
			So(registeredOn(cfg).Before(s.Races[0].OccurredOn), ShouldBeTrue)
		})

		Convey("Equal seeds give equal finishing orders", func() {
			a, b := Generate(cfg), Generate(cfg)
			So(a.Races[0].ID, ShouldNotEqual, b.Races[0].ID)
			for i := range a.Races {
				So(rosterIndexes(a, i), ShouldResemble, rosterIndexes(b, i))
			}
			So(a.Drivers[3].GivenName, ShouldEqual, b.Drivers[3].GivenName)
			So(a.Drivers[3].FamilyName, ShouldEqual, b.Drivers[3].FamilyName)
		})

		Convey("A field size of zero enters every driver", func() {
			cfg.FieldSize = 0
			s := Generate(cfg)
			So(s.Races[0].Order, ShouldHaveLength, 12)
		})
	})
}

func TestReplay(t *testing.T) {
	Convey("Given a two-driver season", t, func() {
		season := Season{
			Drivers: []Driver{{ID: "a"}, {ID: "b"}, {ID: "idle"}},
			Races: []Race{
				{ID: "r1", Order: []string{"a", "b"}},
			},
		}

		Convey("The winner gains half the field K", func() {
			exp, err := Replay(season, 1500)
			So(err, ShouldBeNil)
			So(exp.Ratings["a"], ShouldAlmostEqual, 1532.5, 1e-9)
			So(exp.Ratings["b"], ShouldAlmostEqual, 1467.5, 1e-9)
			So(exp.Ratings["idle"], ShouldEqual, 1500)
			So(exp.Appearances["a"], ShouldEqual, 1)
			So(exp.Appearances["idle"], ShouldEqual, 0)
		})

		Convey("A single-entrant race is rejected", func() {
			season.Races = append(season.Races, Race{ID: "r2", Order: []string{"a"}})
			_, err := Replay(season, 1500)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given invalid configs", t, func() {
		for _, mutate := range []func(*Config){
			func(c *Config) { c.BaseURL = "" },
			func(c *Config) { c.Sport = "" },
			func(c *Config) { c.Drivers = 1 },
			func(c *Config) { c.Races = 0 },
			func(c *Config) { c.Workers = 0 },
		} {
			cfg := testConfig("http://unused")
			mutate(cfg)
			So(errors.Is(cfg.Validate(), ErrInvalidConfig), ShouldBeTrue)
		}
		So(testConfig("http://unused").Validate(), ShouldBeNil)
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running rating service", t, func() {
		svc := service.New(service.WithWorkerCount(3))
		So(svc.Start(context.Background()), ShouldBeNil)
		mux := http.NewServeMux()
		api.NewServer(svc).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		Reset(func() {
			srv.Close()
			_ = svc.Stop(context.Background())
		})

		cfg := testConfig(srv.URL)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		Convey("A season is seeded and verified", func() {
			cfg.OutputFile = filepath.Join(t.TempDir(), "out", "season.json")
			stats, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			So(stats.DriversRegistered, ShouldEqual, 12)
			So(stats.RacesAccepted, ShouldEqual, 6)
			So(stats.RacesFailed, ShouldEqual, 0)
			So(stats.DriversVerified, ShouldEqual, 12)

			_, err = os.Stat(cfg.OutputFile)
			So(err, ShouldBeNil)
		})

		Convey("A second season on the same service verifies too", func() {
			_, err := Run(ctx, cfg)
			So(err, ShouldBeNil)
			cfg.Seed = 8
			_, err = Run(ctx, cfg)
			So(err, ShouldBeNil)
		})

		Convey("An unknown sport fails registration", func() {
			cfg.Sport = "curling"
			_, err := Run(ctx, cfg)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given no service", t, func() {
		cfg := testConfig("http://127.0.0.1:1")
		cfg.Timeout = time.Second
		_, err := Run(context.Background(), cfg)
		So(err, ShouldNotBeNil)
	})
}
