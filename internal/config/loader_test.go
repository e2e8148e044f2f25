package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/scorehub/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":3026")
				convey.So(cfg.DBPath, convey.ShouldEqual, "scorehub.db")
				convey.So(cfg.SendBuffer, convey.ShouldEqual, 64)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCOREHUB_ADDR", ":8080")
			_ = os.Setenv("SCOREHUB_STORAGE", "memory")
			_ = os.Setenv("SCOREHUB_RATE_LIMIT_WINDOW_MS", "2500")
			_ = os.Setenv("SCOREHUB_EVENT_END", "2030-06-01T00:00:00Z")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Storage, convey.ShouldEqual, config.StorageMemory)
				convey.So(cfg.RateLimitWindowMS, convey.ShouldEqual, 2500)
				convey.So(cfg.EventEnd, convey.ShouldEqual, "2030-06-01T00:00:00Z")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
db_path: "/tmp/party.db"
leaderboard_size: 10
send_buffer: 16
`)
			_ = os.Setenv("SCOREHUB_CONFIG", path)
			_ = os.Setenv("SCOREHUB_SEND_BUFFER", "32")

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values apply and env wins over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBPath, convey.ShouldEqual, "/tmp/party.db")
				convey.So(cfg.LeaderboardSize, convey.ShouldEqual, 10)
				convey.So(cfg.SendBuffer, convey.ShouldEqual, 32)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("SCOREHUB_CONFIG", "/non/existent/file.yaml")

			_, err := config.Load(ctx)

			convey.Convey("Then a load error should be returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			path := createTempConfigFile(t, "addr: [unclosed")
			_ = os.Setenv("SCOREHUB_CONFIG", path)

			_, err := config.Load(ctx)

			convey.Convey("Then a load error should be returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the resulting config is invalid", func() {
			_ = os.Setenv("SCOREHUB_STORAGE", "floppy")

			_, err := config.Load(ctx)

			convey.Convey("Then a validation error should be returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scorehub.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"SCOREHUB_CONFIG", "SCOREHUB_ADDR", "SCOREHUB_STORAGE", "SCOREHUB_DB_PATH",
		"SCOREHUB_RATE_LIMIT_WINDOW_MS", "SCOREHUB_EVENT_END", "SCOREHUB_SEND_BUFFER",
		"SCOREHUB_LEADERBOARD_SIZE", "SCOREHUB_LOG_LEVEL",
	} {
		_ = os.Unsetenv(k)
	}
}
