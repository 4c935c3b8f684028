package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/sportselo/internal/domain/elo"
	"github.com/okian/sportselo/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

func at(days int) time.Time { return day0.AddDate(0, 0, days) }

func TestCompetitorHistory(t *testing.T) {
	Convey("Given a new competitor seeded at 1500", t, func() {
		c := model.NewCompetitor("max_verstappen", "formula-one", 1500, day0)

		Convey("Then the seed is current, highest and lowest", func() {
			So(c.History, ShouldHaveLength, 1)
			So(c.Current(), ShouldResemble, model.RatingPoint{Value: 1500, OccurredOn: day0})
			So(c.Highest, ShouldResemble, c.Current())
			So(c.Lowest, ShouldResemble, c.Current())
		})

		Convey("When ratings are recorded in order", func() {
			values := []float64{1516, 1490.5, 1530.25, 1490.5, 1530.25, 1502}
			for i, v := range values {
				So(c.Record(v, at(i+1)), ShouldBeNil)
			}

			Convey("Then extremes bound every point", func() {
				So(c.History, ShouldHaveLength, len(values)+1)
				for _, p := range c.History {
					So(c.Lowest.Value, ShouldBeLessThanOrEqualTo, p.Value)
					So(c.Highest.Value, ShouldBeGreaterThanOrEqualTo, p.Value)
				}
				So(c.Lowest.Value, ShouldBeLessThanOrEqualTo, c.Rating)
				So(c.Rating, ShouldBeLessThanOrEqualTo, c.Highest.Value)
			})

			Convey("Then ties keep the earliest occurrence", func() {
				So(c.Highest, ShouldResemble, model.RatingPoint{Value: 1530.25, OccurredOn: at(3)})
				So(c.Lowest, ShouldResemble, model.RatingPoint{Value: 1490.5, OccurredOn: at(2)})
			})

			Convey("Then the current rating is the last point", func() {
				So(c.Rating, ShouldEqual, 1502)
				So(c.Current().OccurredOn, ShouldEqual, at(6))
			})
		})

		Convey("When two points share a date", func() {
			So(c.Record(1510, at(1)), ShouldBeNil)
			So(c.Record(1520, at(1)), ShouldBeNil)

			Convey("Then both are kept", func() {
				So(c.History, ShouldHaveLength, 3)
				So(c.Rating, ShouldEqual, 1520)
			})
		})

		Convey("When a point precedes the history", func() {
			So(c.Record(1510, at(5)), ShouldBeNil)
			err := c.Record(1600, at(4))

			Convey("Then it is rejected and nothing changes", func() {
				So(errors.Is(err, model.ErrOutOfOrder), ShouldBeTrue)
				So(c.History, ShouldHaveLength, 2)
				So(c.Rating, ShouldEqual, 1510)
				So(c.Highest.Value, ShouldEqual, 1510)
			})
		})

		Convey("When cloned", func() {
			clone := c.Clone()
			So(clone.Record(1700, at(1)), ShouldBeNil)

			Convey("Then the original is unaffected", func() {
				So(c.History, ShouldHaveLength, 1)
				So(c.Highest.Value, ShouldEqual, 1500)
				So(clone.Highest.Value, ShouldEqual, 1700)
			})
		})
	})
}

func TestProfileFullName(t *testing.T) {
	Convey("Full names skip empty parts", t, func() {
		So(model.Profile{GivenName: "Lewis", FamilyName: "Hamilton"}.FullName(), ShouldEqual, "Lewis Hamilton")
		So(model.Profile{FamilyName: "Hamilton"}.FullName(), ShouldEqual, "Hamilton")
		So(model.Profile{GivenName: "Lewis"}.FullName(), ShouldEqual, "Lewis")
	})
}

func TestContest(t *testing.T) {
	Convey("Given contests of each kind", t, func() {
		pair := model.Contest{
			ID: "c1", Sport: "boxing", Kind: model.KindPairwise, OccurredOn: day0,
			Pairwise: &model.PairwiseContest{A: "a", B: "b", OutcomeA: elo.Win},
		}
		team := model.Contest{
			ID: "c2", Sport: "formula-one", Kind: model.KindTeam, OccurredOn: day0,
			Team: &model.TeamContest{TeamA: []string{"a", "b"}, TeamB: []string{"c"}, OutcomeA: elo.Draw},
		}
		race := model.Contest{
			ID: "c3", Sport: "formula-one", Kind: model.KindRace, OccurredOn: day0,
			Race: &model.RaceContest{Results: []model.Finish{
				{CompetitorID: "a", Position: 2},
				{CompetitorID: "b", Position: 1},
				{CompetitorID: "c", Position: 3},
			}},
		}

		Convey("Then competitor ids follow payload order", func() {
			So(pair.CompetitorIDs(), ShouldResemble, []string{"a", "b"})
			So(team.CompetitorIDs(), ShouldResemble, []string{"a", "b", "c"})
			So(race.CompetitorIDs(), ShouldResemble, []string{"a", "b", "c"})
		})

		Convey("Then they validate", func() {
			So(pair.Validate(), ShouldBeNil)
			So(team.Validate(), ShouldBeNil)
			So(race.Validate(), ShouldBeNil)
		})

		Convey("When required fields are missing", func() {
			noID := pair
			noID.ID = " "
			noSport := pair
			noSport.Sport = ""
			noDate := pair
			noDate.OccurredOn = time.Time{}

			So(errors.Is(noID.Validate(), model.ErrInvalidContest), ShouldBeTrue)
			So(errors.Is(noSport.Validate(), model.ErrInvalidContest), ShouldBeTrue)
			So(errors.Is(noDate.Validate(), model.ErrInvalidContest), ShouldBeTrue)
		})

		Convey("When kind and payload disagree", func() {
			wrong := pair
			wrong.Kind = model.KindRace
			both := race
			both.Pairwise = pair.Pairwise
			unknown := pair
			unknown.Kind = "relay"

			So(errors.Is(wrong.Validate(), model.ErrInvalidContest), ShouldBeTrue)
			So(errors.Is(both.Validate(), model.ErrInvalidContest), ShouldBeTrue)
			So(errors.Is(unknown.Validate(), model.ErrInvalidContest), ShouldBeTrue)
		})

		Convey("When a competitor appears twice", func() {
			self := pair
			self.Pairwise = &model.PairwiseContest{A: "a", B: "a", OutcomeA: elo.Win}
			cross := team
			cross.Team = &model.TeamContest{TeamA: []string{"a"}, TeamB: []string{"b", "a"}}

			So(errors.Is(self.Validate(), model.ErrDuplicateCompetitor), ShouldBeTrue)
			So(errors.Is(cross.Validate(), model.ErrDuplicateCompetitor), ShouldBeTrue)
		})
	})
}
