// Package types defines the wire types shared by the poller, the derivation
// engine and the HTTP API. They mirror the JSON payloads of the ingestion
// backend's GET /stats and GET /jobs endpoints byte for byte, so a snapshot
// can be re-served verbatim.
//
// JobStatus and Stage are closed enums. Decoding never rejects an unknown
// status; callers check Valid() and degrade instead.
package types
