package probe

import (
	"errors"
	"testing"

	"github.com/okian/app1/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestVerifier(t *testing.T) {
	Convey("Given a verifier for /api", t, func() {
		v := newVerifier("app1", "/api")
		fetch := model.Envelope{
			App:       "app1",
			Endpoint:  "GET /api/data",
			Message:   model.MessageRetrieved,
			Data:      model.SampleItems(),
			Timestamp: "2024-05-01T10:00:00+00:00",
		}

		Convey("When a correct fetch envelope is checked", func() {
			So(v.checkFetch(fetch), ShouldBeNil)
		})

		Convey("When another app answers", func() {
			fetch.App = "app2"
			err := v.checkFetch(fetch)
			So(errors.Is(err, ErrMismatch), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, `app "app2", want "app1"`)
		})

		Convey("When the app is missing", func() {
			fetch.App = ""
			So(errors.Is(v.checkFetch(fetch), ErrMismatch), ShouldBeTrue)
		})

		Convey("When the items differ", func() {
			fetch.Data = fetch.Data[:2]
			So(errors.Is(v.checkFetch(fetch), ErrMismatch), ShouldBeTrue)
		})

		Convey("When the timestamp is not ISO 8601", func() {
			fetch.Timestamp = "May 1 2024"
			So(errors.Is(v.checkFetch(fetch), ErrTimestamp), ShouldBeTrue)
		})

		Convey("When a receive envelope echoes a generated payload", func() {
			sent := generatePayload(7)
			echoed, err := normalize(sent)
			So(err, ShouldBeNil)
			env := model.Envelope{
				App:          "app1",
				Endpoint:     "POST /api/data",
				Message:      model.MessageReceived,
				ReceivedData: echoed,
				Timestamp:    "2024-05-01T10:00:00Z",
			}

			So(v.checkReceive(env, sent), ShouldBeNil)

			Convey("And a field is dropped by the server", func() {
				delete(env.ReceivedData, "tags")
				So(errors.Is(v.checkReceive(env, sent), ErrMismatch), ShouldBeTrue)
			})

			Convey("And the app differs", func() {
				env.App = "app9"
				So(errors.Is(v.checkReceive(env, sent), ErrMismatch), ShouldBeTrue)
			})

			Convey("And the endpoint label is wrong", func() {
				env.Endpoint = "GET /api/data"
				So(errors.Is(v.checkReceive(env, sent), ErrMismatch), ShouldBeTrue)
			})
		})
	})
}

func TestNewVerifierDefaultsApp(t *testing.T) {
	Convey("Given a verifier without an app name", t, func() {
		v := newVerifier("", "/api")

		Convey("Then it expects the default app", func() {
			So(v.app, ShouldEqual, model.DefaultApp)
		})
	})
}

func TestCheckOrdering(t *testing.T) {
	Convey("Given sequential envelopes", t, func() {
		at := func(ts string) model.Envelope { return model.Envelope{Timestamp: ts} }

		Convey("When timestamps never decrease", func() {
			So(checkOrdering([]model.Envelope{
				at("2024-05-01T10:00:00+00:00"),
				at("2024-05-01T10:00:00+00:00"),
				at("2024-05-01T12:00:01+02:00"),
			}), ShouldBeNil)
		})

		Convey("When a timestamp moves backwards", func() {
			err := checkOrdering([]model.Envelope{
				at("2024-05-01T10:00:01+00:00"),
				at("2024-05-01T10:00:00+00:00"),
			})
			So(errors.Is(err, ErrTimestamp), ShouldBeTrue)
		})
	})
}
