package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/okian/inkcheck/internal/config"
	"github.com/okian/inkcheck/internal/domain/scoring"
	"github.com/okian/inkcheck/internal/domain/trace"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*4)
			convey.So(cfg.BoardSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.MaxTriageLimit, convey.ShouldEqual, 100)
			convey.So(cfg.Trace, convey.ShouldResemble, trace.DefaultLimits())
			convey.So(cfg.Scoring, convey.ShouldResemble, scoring.DefaultConfig())
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then they bind into a settings snapshot", func() {
			s, err := cfg.Settings()
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Limits(), convey.ShouldResemble, cfg.Trace)
			convey.So(s.Scoring().Thresholds, convey.ShouldResemble, cfg.Scoring.Thresholds)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs violating one constraint each", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = "" },
			"zero queue":          func(c *config.Config) { c.QueueSize = 0 },
			"negative workers":    func(c *config.Config) { c.WorkerCount = -1 },
			"unknown log level":   func(c *config.Config) { c.LogLevel = "loud" },
			"unknown log format":  func(c *config.Config) { c.LogFormat = "xml" },
			"zero max events":     func(c *config.Config) { c.Trace.MaxEvents = 0 },
			"paste ratio above 1": func(c *config.Config) { c.Scoring.Thresholds.PasteRatio = 1.5 },
			"max below min":       func(c *config.Config) { c.Scoring.MinScore, c.Scoring.MaxScore = 50, 10 },
			"max above 100":       func(c *config.Config) { c.Scoring.MaxScore = 500 },
			"min above 100":       func(c *config.Config) { c.Scoring.MinScore, c.Scoring.MaxScore = 101, 101 },
			"negative pause":      func(c *config.Config) { c.Features.LongPauseMillis = -1 },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" is rejected", func() {
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then an unknown rule weight is rejected with its own kind", func() {
			cfg := config.New()
			cfg.Scoring.Weights["vibes"] = 5
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, scoring.ErrUnknownRule), convey.ShouldBeTrue)
		})
	})
}
