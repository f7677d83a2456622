// Package config loads and watches the dashboard configuration file (config.yaml).
//
// Top-level sections:
//   - Backend — endpoint, mode (live|fixture), fallback_to_fixture, poll_interval,
//     timeout, auth, tls
//   - Server  — http_port, auth (apikey|none), snapshot.ttl, stream_interval
//   - History — backend (synthetic|sqlite), path, retention
//   - Alerts  — rules and webhook targets
//
// Secrets never live in the file. Fields ending in _env name the environment
// variable that holds the value; Key(), Token(), Password() and URL() resolve them.
//
// Load(path) applies defaults (5s poll, 10s timeout, port 8080, 5m snapshot ttl),
// unmarshals, then validates. Watch(ctx, path, onChange) reloads on write.
package config
