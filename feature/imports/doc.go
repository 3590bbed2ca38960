// Package imports implements the import reconciliation engine: source
// adapters for the bundle JSON, CSV pair and Nmap XML formats, the
// structural and referential validator, the policy-driven plan builder
// and the transactional applier, orchestrated by a run controller that
// treats dry-run and apply as one pipeline differing only in whether
// the plan is executed.
//
// # Run semantics
//
// A run parses raw input into a canonical model, validates it against
// the in-run graph and a one-shot storage snapshot, and computes an
// ordered plan (vendors, projects, hosts, tags, IP assets). Any hard
// error aborts the run before a single write; soft warnings exclude or
// degrade individual records and let the rest proceed. An apply
// executes the whole plan inside one transaction and records a single
// audit summary row; a dry-run returns the identical plan without
// opening a write transaction.
package imports
