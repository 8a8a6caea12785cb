package names

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalize(t *testing.T) {
	Convey("Given player names from different feeds", t, func() {
		Convey("When a name carries a generational suffix", func() {
			So(Normalize("Patrick Mahomes Jr."), ShouldEqual, Normalize("patrick mahomes"))
			So(Normalize("Patrick Mahomes II"), ShouldEqual, "patrick mahomes")
			So(Normalize("Marvin Harrison Jr"), ShouldEqual, "marvin harrison")
			So(Normalize("Odell Beckham Sr."), ShouldEqual, "odell beckham")
		})

		Convey("When a name has punctuation", func() {
			So(Normalize("A.J. Brown"), ShouldEqual, "aj brown")
			So(Normalize("Ja'Marr Chase"), ShouldEqual, "jamarr chase")
			So(Normalize("Amon-Ra St. Brown"), ShouldEqual, "amonra st brown")
		})

		Convey("When a name has irregular whitespace", func() {
			So(Normalize("  Travis   Kelce\t"), ShouldEqual, "travis kelce")
		})

		Convey("When the suffix is part of a word it is kept", func() {
			So(Normalize("Kelvin Harmon IV"), ShouldEqual, "kelvin harmon")
			So(Normalize("Dave"), ShouldEqual, "dave")
			So(Normalize("V"), ShouldEqual, "v")
		})

		Convey("When the input is empty", func() {
			So(Normalize(""), ShouldEqual, "")
		})

		Convey("Then normalizing twice equals normalizing once", func() {
			inputs := []string{
				"Patrick Mahomes Jr.",
				"Smith Jr Jr",
				"Smith V..",
				"Gardner Minshew II ",
				"A.J. Brown",
				"Jr.",
				" iii iii ",
				"José Ramírez",
			}
			for _, in := range inputs {
				once := Normalize(in)
				So(Normalize(once), ShouldEqual, once)
				So(strings.Contains(once, "  "), ShouldBeFalse)
			}
		})
	})
}

func TestIndex(t *testing.T) {
	type row struct {
		name string
		rank int
	}

	Convey("Given rows that normalize to the same key", t, func() {
		rows := []row{{"A.J. Brown", 3}, {"AJ Brown", 9}, {"Travis Kelce", 1}}
		ix := NewIndex(nil, rows, func(r row) string { return r.name })

		Convey("Then the first row wins", func() {
			got, ok := ix.Lookup("aj brown")
			So(ok, ShouldBeTrue)
			So(got.rank, ShouldEqual, 3)
			So(ix.Len(), ShouldEqual, 2)
		})

		Convey("Then an unknown name misses", func() {
			_, ok := ix.Lookup("Nobody")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an injected normalizer", t, func() {
		lastName := Func(func(n string) string {
			parts := strings.Fields(Normalize(n))
			if len(parts) == 0 {
				return ""
			}
			return parts[len(parts)-1]
		})
		ix := NewIndex(lastName, []row{{"Travis Kelce", 1}}, func(r row) string { return r.name })

		Convey("Then lookups use it", func() {
			_, ok := ix.Lookup("T. Kelce")
			So(ok, ShouldBeTrue)
		})
	})
}

func TestSet(t *testing.T) {
	Convey("Given a roster set", t, func() {
		s := NewSet(nil, []string{"Patrick Mahomes II", "A.J. Brown", ""})

		So(s.Len(), ShouldEqual, 2)
		So(s.Contains("patrick mahomes"), ShouldBeTrue)
		So(s.Contains("AJ Brown"), ShouldBeTrue)
		So(s.Contains("Josh Allen"), ShouldBeFalse)

		Convey("Then a nil set contains nothing", func() {
			var empty *Set
			So(empty.Contains("x"), ShouldBeFalse)
			So(empty.Len(), ShouldEqual, 0)
		})
	})
}
