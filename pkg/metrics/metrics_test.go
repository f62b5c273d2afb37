package metrics

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	. "github.com/smartystreets/goconvey/convey"
)

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return -1
	}
	return m.GetCounter().GetValue()
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with the default namespace", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "app1")
				So(manager.subsystem, ShouldEqual, "api")
			})
		})

		Convey("When creating with const labels", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithConstLabels(map[string]string{"app": "app7"}),
				WithConstLabels(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then every family carries the label", func() {
				So(manager.RecordEnvelope(OperationFetch), ShouldBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeEmpty)
				for _, f := range families {
					for _, m := range f.GetMetric() {
						So(labelValue(m, "app"), ShouldEqual, "app7")
					}
				}
			})
		})
	})
}

func TestRecordEnvelope(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When recording known operations", func() {
			So(manager.RecordEnvelope(OperationFetch), ShouldBeNil)
			So(manager.RecordEnvelope(OperationFetch), ShouldBeNil)
			So(manager.RecordEnvelope(OperationReceive), ShouldBeNil)

			Convey("Then counters should reflect each call", func() {
				So(counterValue(manager.envelopesServed.WithLabelValues(OperationFetch)), ShouldEqual, 2)
				So(counterValue(manager.envelopesServed.WithLabelValues(OperationReceive)), ShouldEqual, 1)
			})
		})

		Convey("When recording an unknown operation", func() {
			err := manager.RecordEnvelope("delete")

			Convey("Then it should fail with ErrUnknownOperation", func() {
				So(errors.Is(err, ErrUnknownOperation), ShouldBeTrue)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("Then recording helpers should not panic", func() {
			So(func() {
				_ = RecordEnvelope(OperationFetch)
				RecordReceivedPayload(3, 42)
				RecordReceivedPayload(0, -1)
				RecordHTTPRequest("data", "GET", "200")
				RecordHTTPRequestDuration("data", "GET", "200", 1.5)
				IncHTTPInFlight()
				DecHTTPInFlight()
				RecordThrottled("data")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("data", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 0.2)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(8)
				RecordSystemGCPauseTime(0.01)
			}, ShouldNotPanic)
		})

		Convey("And the custom registry should expose the request counter", func() {
			RecordHTTPRequest("data", "POST", "201")
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := map[string]bool{}
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["app1_api_http_requests_total"], ShouldBeTrue)
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given the global manager reconfigured with an app label", t, func() {
		before := GetRegistry()
		Configure(WithConstLabels(map[string]string{"app": "app3"}))
		Reset(func() { Configure() })

		Convey("When a request is recorded", func() {
			RecordHTTPRequest("data", "GET", "200")

			Convey("Then the new registry exposes it with the label", func() {
				So(GetRegistry(), ShouldNotPointTo, before)
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() != "app1_api_http_requests_total" {
						continue
					}
					for _, m := range f.GetMetric() {
						So(labelValue(m, "app"), ShouldEqual, "app3")
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = manager.RecordEnvelope(OperationReceive)
			}()
		}
		wg.Wait()

		Convey("Then every increment is counted", func() {
			So(counterValue(manager.envelopesServed.WithLabelValues(OperationReceive)), ShouldEqual, 50)
		})
	})
}
