// Package models defines the persistent inventory entities (vendors,
// projects, hosts, tags, IP assets) plus the audit and connector job
// records, together with the normalization rules for asset types, tag
// names and colors that every import path shares.
package models
