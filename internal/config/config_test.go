package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/gridcast/internal/config"
	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/projection"
	"github.com/okian/gridcast/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DataDir, convey.ShouldEqual, "./data")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 1)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 4096)
			convey.So(cfg.BaselineDepth, convey.ShouldEqual, 100)
			convey.So(cfg.HistoryDepth, convey.ShouldEqual, 24)
			convey.So(cfg.WaiverLimit, convey.ShouldEqual, 30)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the engine constants match the engine defaults", func() {
			convey.So(cfg.ProjectionParams(), convey.ShouldResemble, projection.DefaultParams())
			convey.So(cfg.MinReliabilityGames, convey.ShouldEqual, 3)
			convey.So(cfg.HitWindow, convey.ShouldEqual, 3)
		})

		convey.Convey("Then the default scoring system is PPR", func() {
			sc, err := cfg.Scoring()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sc, convey.ShouldEqual, model.PPR)
		})

		convey.Convey("Then options are produced for the domain builders", func() {
			convey.So(cfg.BaselineOptions(), convey.ShouldHaveLength, 2)
			convey.So(cfg.ReliabilityOptions(), convey.ShouldHaveLength, 2)
		})
	})
}

func TestConfig_ProjectionParams(t *testing.T) {
	convey.Convey("Given overridden engine constants", t, func() {
		cfg := config.New(context.Background())
		cfg.BlendCorrelationThreshold = 0.8
		cfg.BiasWeight = 0.25
		cfg.MinReliabilityGames = 4

		p := cfg.ProjectionParams()

		convey.Convey("Then the overrides reach the engine params", func() {
			convey.So(p.BlendThreshold, convey.ShouldEqual, 0.8)
			convey.So(p.BiasWeight, convey.ShouldEqual, 0.25)
			convey.So(p.MinReliabilityGames, convey.ShouldEqual, 4)
		})

		convey.Convey("Then tier limits stay at their defaults", func() {
			convey.So(p.Tiers, convey.ShouldResemble, projection.DefaultParams().Tiers)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given invalid settings", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = " " },
			"unknown scoring":     func(c *config.Config) { c.ScoringSystem = "superflex" },
			"next week too large": func(c *config.Config) { c.NextWeek = 19 },
			"negative depth":      func(c *config.Config) { c.BaselineDepth = -1 },
			"threshold above one": func(c *config.Config) { c.BlendCorrelationThreshold = 1.5 },
			"negative hit window": func(c *config.Config) { c.HitWindow = -1 },
			"negative rate":       func(c *config.Config) { c.UploadRatePerSec = -1 },
			"unknown log format":  func(c *config.Config) { c.LogFormat = "xml" },
			"negative refresh":    func(c *config.Config) { c.MetricsRefreshMS = -1 },
			"unsorted buckets":    func(c *config.Config) { c.MetricsBucketsMS = []float64{10, 5} },
		}
		for name, mutate := range cases {
			cfg := config.New(context.Background())
			mutate(cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}

func TestConfig_MetricsOptions(t *testing.T) {
	convey.Convey("Given metrics settings", t, func() {
		cfg := config.New(context.Background())
		cfg.MetricsNamespace = "fantasy"
		cfg.MetricsRefreshMS = 2500
		cfg.MetricsInstance = "a1"
		cfg.MetricsBucketsMS = []float64{5, 50, 500}
		convey.So(cfg.Validate(), convey.ShouldBeNil)

		convey.Convey("When a manager is built from them", func() {
			registry := prometheus.NewRegistry()
			m := metrics.NewManager(append(cfg.MetricsOptions(), metrics.WithPrometheusRegistry(registry))...)
			families, err := registry.Gather()
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then namespace, instance label and refresh interval follow the settings", func() {
				convey.So(m.RefreshInterval(), convey.ShouldEqual, 2500*time.Millisecond)
				var found bool
				for _, f := range families {
					if f.GetName() == "fantasy_engine_data_version" {
						found = true
						convey.So(f.GetMetric()[0].GetLabel()[0].GetName(), convey.ShouldEqual, "instance")
						convey.So(f.GetMetric()[0].GetLabel()[0].GetValue(), convey.ShouldEqual, "a1")
					}
				}
				convey.So(found, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When metrics are disabled", func() {
			cfg.MetricsEnabled = false
			registry := prometheus.NewRegistry()
			metrics.NewManager(append(cfg.MetricsOptions(), metrics.WithPrometheusRegistry(registry))...)
			families, err := registry.Gather()

			convey.Convey("Then nothing is exported", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldBeEmpty)
			})
		})
	})
}
