package config_test

import (
	"errors"
	"testing"

	"github.com/okian/app1/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.AppName, convey.ShouldEqual, "app1")
			convey.So(cfg.BasePath, convey.ShouldEqual, "/api")
			convey.So(cfg.Timezone, convey.ShouldEqual, "UTC")
			convey.So(cfg.MaxBodyBytes, convey.ShouldEqual, 0)
			convey.So(cfg.ThrottlePerMinute, convey.ShouldEqual, 60)
			convey.So(cfg.TrustedProxies, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
			want   string
		}{
			{"empty addr", func(c *config.Config) { c.Addr = " " }, "addr must not be empty"},
			{"empty app name", func(c *config.Config) { c.AppName = "" }, "app_name must not be empty"},
			{"relative base path", func(c *config.Config) { c.BasePath = "api" }, "base_path must start with /"},
			{"negative body limit", func(c *config.Config) { c.MaxBodyBytes = -1 }, "max_body_bytes"},
			{"negative throttle", func(c *config.Config) { c.ThrottlePerMinute = -5 }, "throttle_per_minute"},
			{"unknown timezone", func(c *config.Config) { c.Timezone = "Mars/Olympus" }, "timezone"},
			{"bad trusted proxy", func(c *config.Config) { c.TrustedProxies = "10.0.0.0/8, not-an-ip" }, "trusted_proxies"},
		}

		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.Convey("Then validation should fail with ErrInvalidConfig", func() {
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
				})
			})
		}

		convey.Convey("When the timezone is a real location", func() {
			cfg.Timezone = "Europe/Berlin"
			loc, err := cfg.Location()

			convey.Convey("Then it resolves", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(loc.String(), convey.ShouldEqual, "Europe/Berlin")
			})
		})
	})
}

func TestConfig_TrustedProxyPrefixes(t *testing.T) {
	convey.Convey("Given trusted proxy entries", t, func() {
		cfg := config.New()

		convey.Convey("When none are configured", func() {
			prefixes, err := cfg.TrustedProxyPrefixes()

			convey.Convey("Then no proxy is trusted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(prefixes, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When CIDRs and bare addresses are mixed", func() {
			cfg.TrustedProxies = " 10.1.2.3/8 ,127.0.0.1,, ::1 "
			prefixes, err := cfg.TrustedProxyPrefixes()

			convey.Convey("Then each becomes a masked prefix", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(prefixes), convey.ShouldEqual, 3)
				convey.So(prefixes[0].String(), convey.ShouldEqual, "10.0.0.0/8")
				convey.So(prefixes[1].String(), convey.ShouldEqual, "127.0.0.1/32")
				convey.So(prefixes[2].String(), convey.ShouldEqual, "::1/128")
			})
		})
	})
}
