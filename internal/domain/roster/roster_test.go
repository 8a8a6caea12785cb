package roster_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
	"github.com/smartystreets/goconvey/convey"
)

func TestMatcher(t *testing.T) {
	convey.Convey("Given a roster from the extension", t, func() {
		m := roster.NewMatcher(nil, roster.Roster{
			Mine:     []string{"Patrick Mahomes II", "A.J. Brown"},
			Rostered: []string{"Travis Kelce"},
		})

		convey.Convey("Then my players match by normalized name", func() {
			convey.So(m.OnRoster("Patrick Mahomes"), convey.ShouldBeTrue)
			convey.So(m.OnRoster("AJ Brown"), convey.ShouldBeTrue)
			convey.So(m.OnRoster("Travis Kelce"), convey.ShouldBeFalse)
			convey.So(m.MineCount(), convey.ShouldEqual, 2)
		})

		convey.Convey("Then my players also count as rostered", func() {
			convey.So(m.Rostered("aj brown"), convey.ShouldBeTrue)
			convey.So(m.Rostered("Travis Kelce"), convey.ShouldBeTrue)
			convey.So(m.Rostered("Puka Nacua"), convey.ShouldBeFalse)
		})

		convey.Convey("Then filters follow roster status", func() {
			convey.So(m.Keep(roster.FilterAll, "Puka Nacua"), convey.ShouldBeTrue)
			convey.So(m.Keep(roster.FilterMine, "A.J. Brown"), convey.ShouldBeTrue)
			convey.So(m.Keep(roster.FilterMine, "Puka Nacua"), convey.ShouldBeFalse)
			convey.So(m.Keep(roster.FilterAvailable, "Puka Nacua"), convey.ShouldBeTrue)
			convey.So(m.Keep(roster.FilterAvailable, "Travis Kelce"), convey.ShouldBeFalse)
		})
	})

	convey.Convey("Given no roster at all", t, func() {
		var m *roster.Matcher
		convey.So(m.OnRoster("x"), convey.ShouldBeFalse)
		convey.So(m.Rostered("x"), convey.ShouldBeFalse)
		convey.So(m.MineCount(), convey.ShouldEqual, 0)
	})
}

func TestParseFilter(t *testing.T) {
	convey.Convey("Given filter query values", t, func() {
		f, err := roster.ParseFilter("")
		convey.So(err, convey.ShouldBeNil)
		convey.So(f, convey.ShouldEqual, roster.FilterAll)

		f, err = roster.ParseFilter("available")
		convey.So(err, convey.ShouldBeNil)
		convey.So(f, convey.ShouldEqual, roster.FilterAvailable)

		_, err = roster.ParseFilter("bench")
		convey.So(errors.Is(err, roster.ErrUnknownFilter), convey.ShouldBeTrue)
	})
}

func projections(n int) []model.Projection {
	out := make([]model.Projection, n)
	for i := range out {
		out[i] = model.Projection{Name: fmt.Sprintf("p%d", i), Position: model.WR, Projected: float64(100 - i)}
	}
	return out
}

func TestWaiver(t *testing.T) {
	convey.Convey("Given 40 projections with two rostered", t, func() {
		all := projections(40)
		m := roster.NewMatcher(nil, roster.Roster{Rostered: []string{"p0", "p3"}})

		got := roster.Waiver(all, m, 0, 0)

		convey.Convey("Then rostered players are excluded and the list is capped at 30", func() {
			convey.So(len(got), convey.ShouldEqual, 30)
			convey.So(got[0].Name, convey.ShouldEqual, "p1")
			for _, e := range got {
				convey.So(e.Name, convey.ShouldNotEqual, "p3")
			}
		})

		convey.Convey("Then priority is hot for five, star for ten, then watch", func() {
			convey.So(got[4].Priority, convey.ShouldEqual, roster.PriorityHot)
			convey.So(got[5].Priority, convey.ShouldEqual, roster.PriorityStar)
			convey.So(got[14].Priority, convey.ShouldEqual, roster.PriorityStar)
			convey.So(got[15].Priority, convey.ShouldEqual, roster.PriorityWatch)
		})
	})

	convey.Convey("Given a minimum projection", t, func() {
		got := roster.Waiver(projections(40), nil, 95, 10)
		convey.So(len(got), convey.ShouldEqual, 6)
		convey.So(got[5].Projected, convey.ShouldEqual, 95)
	})
}

func TestSummarize(t *testing.T) {
	convey.Convey("Given projections, reliability and a roster", t, func() {
		all := []model.Projection{
			{Name: "a", HasECR: true},
			{Name: "b", HasECR: true},
			{Name: "c"},
		}
		rel := map[string]model.ReliabilityStat{
			"a": {Correlation: 0.71},
			"b": {Correlation: 0.7},
		}
		m := roster.NewMatcher(nil, roster.Roster{Mine: []string{"a"}, Rostered: []string{"b"}})

		s := roster.Summarize(all, rel, m)

		convey.So(s.TotalPlayers, convey.ShouldEqual, 3)
		convey.So(s.WithECR, convey.ShouldEqual, 2)
		convey.So(s.HighAccuracy, convey.ShouldEqual, 1)
		convey.So(s.MyRoster, convey.ShouldEqual, 1)
		convey.So(s.Available, convey.ShouldEqual, 1)
	})
}

func TestRankings(t *testing.T) {
	convey.Convey("Given more projections than the display limit", t, func() {
		all := projections(80)
		all[0].Position = model.TE

		convey.So(len(roster.Rankings(all, model.WR)), convey.ShouldEqual, 54)
		convey.So(roster.Rankings(all, model.WR)[0].Name, convey.ShouldEqual, "p1")
		convey.So(len(roster.Rankings(all, model.TE)), convey.ShouldEqual, 1)
		convey.So(roster.Rankings(all, model.QB), convey.ShouldBeEmpty)
	})
}
