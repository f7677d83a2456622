// Package ws implements the WebSocket hub for the pipewatch dashboard.
//
// Hub broadcasts the dashboard document to every connected client on a
// fixed interval (server.stream_interval, default 5s) and whenever Notify is
// called, which the poller does after each published snapshot. A client
// receives the current document immediately on connect; before the first
// snapshot nothing is sent.
//
// Message format:
//
//	{
//	  "event": "snapshot",
//	  "data":  { /* same schema as GET /api/v1/snapshot */ }
//	}
//
// The upgrader accepts all origins. Browsers cannot set headers on a
// WebSocket handshake, so the API key may be passed as ?api_key=.
package ws
