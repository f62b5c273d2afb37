package throttle

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Add(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func TestThrottleAllow(t *testing.T) {
	Convey("Given a throttle of 3 per minute", t, func() {
		clk := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		th := New(3, WithNow(clk.Now))

		Convey("When a client spends its budget", func() {
			d1 := th.Allow("a")
			d2 := th.Allow("a")
			d3 := th.Allow("a")
			d4 := th.Allow("a")

			Convey("Then the first three pass and the fourth is rejected", func() {
				So(d1.Allowed, ShouldBeTrue)
				So(d1.Limit, ShouldEqual, 3)
				So(d1.Remaining, ShouldEqual, 2)
				So(d3.Allowed, ShouldBeTrue)
				So(d2.Remaining, ShouldEqual, 1)
				So(d3.Remaining, ShouldEqual, 0)
				So(d4.Allowed, ShouldBeFalse)
				So(d4.RetryAfter, ShouldBeGreaterThan, 0)
				So(d4.RetryAfter, ShouldBeLessThanOrEqualTo, 20*time.Second)
			})

			Convey("And other clients are unaffected", func() {
				So(th.Allow("b").Allowed, ShouldBeTrue)
			})

			Convey("And a token returns after the refill period", func() {
				clk.Add(21 * time.Second)
				So(th.Allow("a").Allowed, ShouldBeTrue)
				So(th.Allow("a").Allowed, ShouldBeFalse)
			})
		})
	})

	Convey("Given a disabled throttle", t, func() {
		th := New(0)

		Convey("Then every request passes", func() {
			So(th.Enabled(), ShouldBeFalse)
			for i := 0; i < 100; i++ {
				So(th.Allow("a").Allowed, ShouldBeTrue)
			}
			So(th.Len(), ShouldEqual, 0)
		})
	})
}

func TestThrottleSweep(t *testing.T) {
	Convey("Given tracked clients", t, func() {
		clk := &fakeNow{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		th := New(10, WithNow(clk.Now), WithIdleTTL(time.Minute))
		th.Allow("old")
		clk.Add(45 * time.Second)
		th.Allow("fresh")
		clk.Add(30 * time.Second)

		Convey("When sweeping", func() {
			removed := th.Sweep()

			Convey("Then only idle clients are dropped", func() {
				So(removed, ShouldEqual, 1)
				So(th.Len(), ShouldEqual, 1)
			})
		})
	})
}

func TestThrottleRun(t *testing.T) {
	Convey("Given a running sweeper", t, func() {
		th := New(10, WithSweepInterval(5*time.Millisecond), WithIdleTTL(time.Nanosecond))
		th.Allow("a")
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			th.Run(ctx)
			close(done)
		}()

		Convey("Then idle clients disappear and Run stops on cancel", func() {
			deadline := time.Now().Add(time.Second)
			for th.Len() > 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			So(th.Len(), ShouldEqual, 0)
			cancel()
			stopped := false
			select {
			case <-done:
				stopped = true
			case <-time.After(time.Second):
			}
			So(stopped, ShouldBeTrue)
		})
	})
}

func TestClientKey(t *testing.T) {
	Convey("Given requests", t, func() {
		r := httptest.NewRequest("GET", "/api/data", nil)

		r.RemoteAddr = "10.1.2.3:5555"
		So(ClientKey(r), ShouldEqual, "10.1.2.3")

		r.RemoteAddr = "10.1.2.3"
		So(ClientKey(r), ShouldEqual, "10.1.2.3")

		r.RemoteAddr = "[::1]:80"
		So(ClientKey(r), ShouldEqual, "::1")
	})
}
