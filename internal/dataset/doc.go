// Package dataset provides the year-keyed tabular structure shared by every
// pipeline stage.
//
// A Table holds one row per year and one float64 series per named column.
// Missing cells are represented by NaN; helpers Missing and IsMissing keep
// that choice in one place. Years are unique and strictly ascending by
// construction, which is the single hard precondition the pipeline enforces
// on upstream data.
//
// The Builder type assembles a Table from the scattered observations the
// source loaders produce, resolving source precedence by write order.
package dataset
