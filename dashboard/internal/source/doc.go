// Package source provides the datasets the poller derives dashboard views from.
//
// A Source returns one consistent Dataset (the /stats and /jobs payloads) per
// Fetch call. Two implementations exist:
//   - Live (live.go) issues GET {endpoint}/stats and GET {endpoint}/jobs
//     concurrently and fails the whole fetch if either request fails.
//   - Fixture (fixture.go) returns a built-in dataset and reports Demo() == true.
//
// Authentication (mTLS, API key, bearer token, basic) is applied by the
// authRoundTripper in source.go. New(config.BackendConfig) picks the
// implementation from backend.mode.
package source
