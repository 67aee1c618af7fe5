// Package display defines the downstream presentation contract a
// ProductionLine consumer can target. Per spec.md §1, the display device
// surface itself is an external collaborator — only its input contract
// is fixed here; no vsync cadence or color-space conversion is
// implemented (spec.md Non-goals).
package display
