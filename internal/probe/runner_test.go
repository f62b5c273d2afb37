package probe_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/app1/internal/adapters/http/api"
	"github.com/okian/app1/internal/adapters/http/throttle"
	service "github.com/okian/app1/internal/app"
	"github.com/okian/app1/internal/probe"
	"github.com/okian/app1/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	_ = logger.SetLevelString("error")
}

func newTarget(opts ...api.ServerOption) *httptest.Server {
	svc := service.New()
	server := api.NewServer(svc, svc, opts...)
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return httptest.NewServer(server.Handler(mux))
}

func probeConfig(url string, requests int) *probe.Config {
	return &probe.Config{
		BaseURL:  url,
		BasePath: "/api",
		App:      "app1",
		Requests: requests,
		Workers:  4,
		Timeout:  5 * time.Second,
	}
}

func TestRun(t *testing.T) {
	Convey("Given an unthrottled app1 instance", t, func() {
		ts := newTarget()
		defer ts.Close()

		Convey("When the probe runs", func() {
			stats, err := probe.Run(context.Background(), probeConfig(ts.URL, 25))

			Convey("Then every response matches the contract", func() {
				So(err, ShouldBeNil)
				So(stats.PayloadsGenerated, ShouldEqual, 25)
				So(stats.Fetched, ShouldEqual, 25)
				So(stats.Received, ShouldEqual, 25)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Mismatches, ShouldEqual, 0)
				So(stats.Duration, ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("Given a throttled app1 instance", t, func() {
		ts := newTarget(api.WithThrottle(throttle.New(10)))
		defer ts.Close()

		Convey("When the probe exceeds the budget", func() {
			stats, err := probe.Run(context.Background(), probeConfig(ts.URL, 10))

			Convey("Then rejected requests are counted but do not fail the run", func() {
				So(err, ShouldBeNil)
				So(stats.Throttled, ShouldBeGreaterThan, 0)
				So(stats.Fetched+stats.Received+stats.Throttled, ShouldEqual, 20)
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	Convey("Given an instance configured with another app name", t, func() {
		svc := service.New(service.WithAppName("app2"))
		server := api.NewServer(svc, svc)
		mux := http.NewServeMux()
		server.Register(context.Background(), mux)
		ts := httptest.NewServer(server.Handler(mux))
		defer ts.Close()

		Convey("Then the run reports a mismatch for the unexpected app", func() {
			_, err := probe.Run(context.Background(), probeConfig(ts.URL, 1))
			So(errors.Is(err, probe.ErrMismatch), ShouldBeTrue)
		})
	})

	Convey("Given an unreachable service", t, func() {
		ts := newTarget()
		url := ts.URL
		ts.Close()

		Convey("Then the health check fails", func() {
			_, err := probe.Run(context.Background(), probeConfig(url, 1))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "service health check failed")
		})
	})

	Convey("Given a service with the wrong message", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.HandleFunc("GET /api/data", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"app":"app1","endpoint":"GET /api/data","message":"nope","data":[],"timestamp":"2024-05-01T10:00:00+00:00"}`))
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("Then the sequential check reports a mismatch", func() {
			_, err := probe.Run(context.Background(), probeConfig(ts.URL, 1))
			So(errors.Is(err, probe.ErrMismatch), ShouldBeTrue)
		})
	})
}
