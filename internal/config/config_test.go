package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/scorehub/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3026")
			convey.So(cfg.Storage, convey.ShouldEqual, config.StorageSQLite)
			convey.So(cfg.RecentLimit, convey.ShouldEqual, 50)
			convey.So(cfg.AggregationLimit, convey.ShouldEqual, 500)
			convey.So(cfg.LeaderboardSize, convey.ShouldEqual, 20)
			convey.So(cfg.RateLimitWindow(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the websocket URL should be derived from the address", func() {
			convey.So(cfg.WebsocketURL(), convey.ShouldEqual, "ws://localhost:3026")
			cfg.Addr = "10.0.0.2:80"
			convey.So(cfg.WebsocketURL(), convey.ShouldEqual, "ws://10.0.0.2:80")
			cfg.PublicURL = "wss://party.example.com"
			convey.So(cfg.WebsocketURL(), convey.ShouldEqual, "wss://party.example.com")
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given an otherwise valid config", t, func() {
		cfg := config.New()

		convey.Convey("When storage is unknown", func() {
			cfg.Storage = "redis"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When sqlite has no path", func() {
			cfg.DBPath = ""
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When memory storage has no path", func() {
			cfg.Storage = config.StorageMemory
			cfg.DBPath = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When a limit is zero", func() {
			cfg.SendBuffer = 0
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the event end is set", func() {
			cfg.EventEnd = "2026-01-01T12:00:00Z"
			end, err := cfg.EventEndTime()

			convey.So(err, convey.ShouldBeNil)
			convey.So(end.Equal(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
		})

		convey.Convey("When the event end is garbage", func() {
			cfg.EventEnd = "new year"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}
