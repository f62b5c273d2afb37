package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/okian/app1/internal/domain/model"
)

// Verification errors.
var (
	ErrMismatch  = errors.New("envelope mismatch")
	ErrTimestamp = errors.New("invalid timestamp")
)

// verifier checks envelopes against the data route contract.
type verifier struct {
	app             string
	fetchEndpoint   string
	receiveEndpoint string
	items           []model.DataItem
}

// newVerifier expects envelopes from app, or model.DefaultApp when app is empty.
func newVerifier(app, basePath string) *verifier {
	if app == "" {
		app = model.DefaultApp
	}
	return &verifier{
		app:             app,
		fetchEndpoint:   model.FetchEndpoint(basePath),
		receiveEndpoint: model.ReceiveEndpoint(basePath),
		items:           model.SampleItems(),
	}
}

func (v *verifier) checkFetch(env model.Envelope) error {
	if err := v.checkCommon(env, v.fetchEndpoint, model.MessageRetrieved); err != nil {
		return err
	}
	if env.ReceivedData != nil {
		return fmt.Errorf("%w: fetch carries received_data", ErrMismatch)
	}
	if !reflect.DeepEqual(env.Data, v.items) {
		return fmt.Errorf("%w: data %v", ErrMismatch, env.Data)
	}
	return nil
}

func (v *verifier) checkReceive(env model.Envelope, sent map[string]any) error {
	if err := v.checkCommon(env, v.receiveEndpoint, model.MessageReceived); err != nil {
		return err
	}
	if env.Data != nil {
		return fmt.Errorf("%w: receive carries data", ErrMismatch)
	}
	want, err := normalize(sent)
	if err != nil {
		return err
	}
	if env.ReceivedData == nil {
		env.ReceivedData = map[string]any{}
	}
	if !reflect.DeepEqual(env.ReceivedData, want) {
		return fmt.Errorf("%w: received_data %v, sent %v", ErrMismatch, env.ReceivedData, want)
	}
	return nil
}

func (v *verifier) checkCommon(env model.Envelope, endpoint, message string) error {
	switch {
	case env.App != v.app:
		return fmt.Errorf("%w: app %q, want %q", ErrMismatch, env.App, v.app)
	case env.Endpoint != endpoint:
		return fmt.Errorf("%w: endpoint %q, want %q", ErrMismatch, env.Endpoint, endpoint)
	case env.Message != message:
		return fmt.Errorf("%w: message %q, want %q", ErrMismatch, env.Message, message)
	}
	_, err := parseTimestamp(env.Timestamp)
	return err
}

func parseTimestamp(s string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %w", ErrTimestamp, s, err)
	}
	return ts, nil
}

// normalize round-trips v through JSON so it compares equal to a decoded echo.
func normalize(v map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return out, nil
}

// checkOrdering verifies that timestamps never move backwards across
// sequential responses.
func checkOrdering(envs []model.Envelope) error {
	var prev time.Time
	for i, env := range envs {
		ts, err := parseTimestamp(env.Timestamp)
		if err != nil {
			return err
		}
		if ts.Before(prev) {
			return fmt.Errorf("%w: response %d at %s precedes %s", ErrTimestamp, i, ts, prev)
		}
		prev = ts
	}
	return nil
}
