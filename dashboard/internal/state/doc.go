// Package state holds the most recent derived Snapshot.
//
// Build runs every derivation over one Dataset. Holder stores the result
// behind a RWMutex: the poller is the only writer, HTTP handlers and the
// WebSocket hub read. A Snapshot is never modified after Put, so readers may
// keep the pointer.
package state
