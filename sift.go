// Package sift turns semi-structured listing pages into normalized records.
// Each field is read through an ordered table of fallback strategies, numbers
// are normalized from locale-formatted text, and records can be enriched from
// their detail pages and filtered by predicate.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, sqlite/, yaml/).
package sift
