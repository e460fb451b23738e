package httpsteps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dcshock/stagerun/pipeline"
)

// Context keys used by the HTTP steps.
const (
	// KeyURL is read by Fetch: the URL to request.
	KeyURL = "http.url"
	// KeyBody is written by Get/Fetch ([]byte) and replaced by DecodeJSON
	// with the decoded value.
	KeyBody = "http.body"
	// KeyStatus is written by Get/Fetch: the response status code (int).
	KeyStatus = "http.status"
)

// Get returns a step that performs an HTTP GET to the fixed url and stores
// the response body under KeyBody and the status code under KeyStatus. The
// run's context.Context carries timeout and cancellation. If client is nil,
// http.DefaultClient is used. Non-2xx responses are errors.
func Get(client *http.Client, url string) pipeline.Step {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		return doGet(ctx, client, url, run)
	}
}

// Fetch returns a step like Get but reads the URL from the context under
// KeyURL (a string), so the target can vary per run or per batch item.
func Fetch(client *http.Client) pipeline.Step {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		url, err := pipeline.As[string](run, KeyURL)
		if err != nil {
			return nil, fmt.Errorf("http fetch: %w", err)
		}
		return doGet(ctx, client, url, run)
	}
}

func doGet(ctx context.Context, client *http.Client, url string, run *pipeline.Context) (*pipeline.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("http get: new request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get %q: %w", url, err)
	}
	defer resp.Body.Close()
	run.Put(KeyStatus, resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http get %q: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http get %q: read body: %w", url, err)
	}
	run.Put(KeyBody, body)
	return pipeline.Success(), nil
}

// DecodeJSON returns a step that unmarshals the body under KeyBody ([]byte
// or string) and stores the decoded value back under KeyBody (e.g.
// map[string]any for objects).
func DecodeJSON() pipeline.Step {
	return func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		raw, err := bodyBytes(run)
		if err != nil {
			return nil, fmt.Errorf("decodejson: %w", err)
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decodejson: %w", err)
		}
		run.Put(KeyBody, out)
		return pipeline.Success(), nil
	}
}

// DecodeJSONTo returns a step that unmarshals the body under KeyBody into a
// value of type T and stores *T back under KeyBody.
func DecodeJSONTo[T any]() pipeline.Step {
	return func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		raw, err := bodyBytes(run)
		if err != nil {
			return nil, fmt.Errorf("decodejsonto: %w", err)
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decodejsonto: %w", err)
		}
		run.Put(KeyBody, &out)
		return pipeline.Success(), nil
	}
}

func bodyBytes(run *pipeline.Context) ([]byte, error) {
	v, ok := run.Get(KeyBody)
	if !ok {
		return nil, fmt.Errorf("context key %q not set", KeyBody)
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("body must be []byte or string, got %T", v)
	}
}

// Expect returns a step that runs the predicate on the value under KeyBody.
// If the predicate returns an error, the step fails and the runner's retry
// and failure policy apply. Use after DecodeJSON to verify the decoded
// result (e.g. check a status field or required keys).
func Expect(predicate func(any) error) pipeline.Step {
	if predicate == nil {
		panic("httpsteps.Expect: predicate must not be nil")
	}
	return func(ctx context.Context, run *pipeline.Context) (*pipeline.Result, error) {
		v, _ := run.Get(KeyBody)
		if err := predicate(v); err != nil {
			return nil, fmt.Errorf("expect: %w", err)
		}
		return pipeline.Success(), nil
	}
}
