// Package core defines the shared language of the sidebar system.
//
// This package contains:
//   - Domain entities (Tab, HistoryEntry, StepRecord, PullRequest, CatalogItem)
//   - View models (Item) rendered into panels
//   - Host data types (Snapshot, OutboundMessage)
//   - Service interfaces (Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
