// Package http serves the finished dataset over a small JSON API: the full
// table, the extrapolation audit trail, the run summary and the exported
// report files.
package http
