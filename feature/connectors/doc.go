// Package connectors feeds external systems into the import pipeline:
// a vCenter inventory adapter that preserves operator notes and
// manually corrected types on re-sync, a Prometheus adapter that
// extracts target addresses from instant query vectors and merges tags
// instead of replacing them, an Elasticsearch adapter that imports
// cluster node addresses, and a background job runner that tracks
// each run in the connector_jobs table so clients can poll instead of
// waiting on slow upstream APIs.
package connectors
