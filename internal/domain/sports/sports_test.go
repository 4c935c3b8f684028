package sports_test

import (
	"errors"
	"testing"

	"github.com/okian/sportselo/internal/domain/model"
	"github.com/okian/sportselo/internal/domain/sports"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r, err := sports.NewRegistry(sports.Defaults())
		So(err, ShouldBeNil)

		Convey("Then all sports keep their order", func() {
			all := r.All()
			So(all, ShouldHaveLength, 3)
			So(all[0].ID, ShouldEqual, "formula-one")
			So(all[1].ID, ShouldEqual, "motogp")
			So(all[2].ID, ShouldEqual, "boxing")
		})

		Convey("Then only formula-one is active", func() {
			active := r.Active()
			So(active, ShouldHaveLength, 1)
			So(active[0].ID, ShouldEqual, "formula-one")
			So(active[0].Kind, ShouldEqual, sports.KindMotorsport)
		})

		Convey("When looking up sports", func() {
			s, ok := r.Lookup("boxing")
			So(ok, ShouldBeTrue)
			So(s.Route, ShouldEqual, "/boxing")

			_, ok = r.Lookup("curling")
			So(ok, ShouldBeFalse)
		})

		Convey("When checking contest admission", func() {
			_, err := r.Check("formula-one", model.KindRace)
			So(err, ShouldBeNil)

			_, err = r.Check("formula-one", model.KindPairwise)
			So(errors.Is(err, sports.ErrKindNotAccepted), ShouldBeTrue)

			_, err = r.Check("boxing", model.KindPairwise)
			So(errors.Is(err, sports.ErrInactiveSport), ShouldBeTrue)

			_, err = r.Check("curling", model.KindRace)
			So(errors.Is(err, sports.ErrUnknownSport), ShouldBeTrue)
		})

		Convey("When mutating a listing", func() {
			all := r.All()
			all[0].Active = false

			Convey("Then the registry is unchanged", func() {
				So(r.Active(), ShouldHaveLength, 1)
			})
		})
	})
}

func TestSportAccepts(t *testing.T) {
	Convey("Each sport kind maps to one contest kind", t, func() {
		So(sports.Sport{Kind: sports.KindIndividual}.Accepts(model.KindPairwise), ShouldBeTrue)
		So(sports.Sport{Kind: sports.KindTeam}.Accepts(model.KindTeam), ShouldBeTrue)
		So(sports.Sport{Kind: sports.KindMotorsport}.Accepts(model.KindRace), ShouldBeTrue)
		So(sports.Sport{Kind: sports.KindTeam}.Accepts(model.KindRace), ShouldBeFalse)
		So(sports.Sport{Kind: "darts"}.Accepts(model.KindPairwise), ShouldBeFalse)
	})
}

func TestNewRegistryValidation(t *testing.T) {
	Convey("Given invalid registries", t, func() {
		cases := []struct {
			name string
			list []sports.Sport
		}{
			{"empty", nil},
			{"blank id", []sports.Sport{{ID: " ", Kind: sports.KindTeam}}},
			{"duplicate id", []sports.Sport{{ID: "a", Kind: sports.KindTeam}, {ID: "a", Kind: sports.KindTeam}}},
			{"unknown kind", []sports.Sport{{ID: "a", Kind: "darts"}}},
		}
		for _, c := range cases {
			Convey("When the registry is "+c.name, func() {
				_, err := sports.NewRegistry(c.list)
				So(errors.Is(err, sports.ErrInvalidRegistry), ShouldBeTrue)
			})
		}

		Convey("When route and name are omitted they are derived", func() {
			r, err := sports.NewRegistry([]sports.Sport{{ID: "nba", Kind: sports.KindTeam, Active: true}})
			So(err, ShouldBeNil)
			s, _ := r.Lookup("nba")
			So(s.Route, ShouldEqual, "/nba")
			So(s.Name, ShouldEqual, "nba")
		})
	})
}
