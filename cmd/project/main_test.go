package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func writeData(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"2024_FantasyPros_Fantasy_Football_Points_PPR.csv": "Player,Pos,1\nJosh Allen,QB1,22\nJalen Hurts,QB2,20\n",
		"FantasyPros_Fantasy_Football_Points_PPR.csv":      "Player,Pos,1,2,3\nJosh Allen,QB1,24,30,21\nJalen Hurts,QB2,20,18,26\n",
		"FantasyPros_2025_Week_1_OP_Rankings.csv":          "PLAYER NAME,POS\nJosh Allen,QB1\nJalen Hurts,QB2\n",
		"FantasyPros_2025_Week_2_OP_Rankings.csv":          "PLAYER NAME,POS\nJalen Hurts,QB1\nJosh Allen,QB2\n",
		"FantasyPros_2025_Week_3_OP_Rankings.csv":          "PLAYER NAME,POS\nJosh Allen,QB1\nJalen Hurts,QB2\n",
		"FantasyPros_2025_Week_4_OP_Rankings.csv":          "PLAYER NAME,POS\nJosh Allen,QB1\nJalen Hurts,QB2\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRun(t *testing.T) {
	_ = logger.Init()

	convey.Convey("Given a data folder", t, func() {
		dir := writeData(t)
		ctx := context.Background()

		convey.Convey("When projecting to stdout", func() {
			var buf bytes.Buffer
			err := run(ctx, []string{"-dir", dir, "-reliability"}, &buf)
			convey.So(err, convey.ShouldBeNil)

			var doc output
			convey.So(json.Unmarshal(buf.Bytes(), &doc), convey.ShouldBeNil)

			convey.Convey("Then the week after the latest score is projected", func() {
				convey.So(doc.Scoring, convey.ShouldEqual, model.PPR)
				convey.So(doc.CurrentWeek, convey.ShouldEqual, 3)
				convey.So(doc.NextWeek, convey.ShouldEqual, 4)
				convey.So(len(doc.Projections), convey.ShouldEqual, 2)
				convey.So(doc.Projections[0].Rank, convey.ShouldEqual, 1)
			})

			convey.Convey("Then reliability is listed by name", func() {
				convey.So(len(doc.Reliability), convey.ShouldEqual, 2)
				convey.So(doc.Reliability[0].Name <= doc.Reliability[1].Name, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When projecting to a file", func() {
			out := filepath.Join(t.TempDir(), "proj.json")
			var buf bytes.Buffer
			convey.So(run(ctx, []string{"-dir", dir, "-scoring", "half", "-out", out}, &buf), convey.ShouldBeNil)
			convey.So(buf.Len(), convey.ShouldEqual, 0)

			body, err := os.ReadFile(out)
			convey.So(err, convey.ShouldBeNil)
			var doc output
			convey.So(json.Unmarshal(body, &doc), convey.ShouldBeNil)
			convey.So(doc.Scoring, convey.ShouldEqual, model.HalfPPR)
			convey.So(doc.Reliability, convey.ShouldBeEmpty)
		})

		convey.Convey("When the arguments are invalid", func() {
			var buf bytes.Buffer
			err := run(ctx, []string{"-scoring", "superflex"}, &buf)
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)

			err = run(ctx, []string{"-week", "40"}, &buf)
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)

			err = run(ctx, []string{"-bogus"}, &buf)
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When the folder is missing", func() {
			var buf bytes.Buffer
			err := run(ctx, []string{"-dir", filepath.Join(dir, "nope")}, &buf)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, ErrUsage), convey.ShouldBeFalse)
		})
	})
}
