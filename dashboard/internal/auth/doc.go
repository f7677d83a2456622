// Package auth provides API key middleware for the dashboard's HTTP surface.
//
// APIKey(mode, header, key) wraps an http.Handler. When mode != "apikey" or
// key == "", every request passes through (local development with auth
// disabled). Otherwise the named header, or the api_key query parameter for
// WebSocket clients that cannot set headers, must equal key; anything else is
// rejected with 401 and a JSON error body.
package auth
