// Package exporter renders the finished dataset: a CSV of the full table, a
// Markdown report with the extrapolation audit, and an HTML line-chart page
// of the headline series.
package exporter
