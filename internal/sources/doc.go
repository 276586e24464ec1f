// Package sources implements the download and merge layer: World Bank WDI
// series via the v2 JSON API, Penn World Table index series from the
// published Excel workbook, and the IMF Fiscal Monitor revenue rate from its
// CSV export.
//
// Loaders produce year-keyed raw observations; FetchAll runs them
// concurrently and merges the results into a single dataset.Table with
// source precedence fixed by loader order. The merged table uses raw,
// source-prefixed column names; unit normalization happens downstream.
package sources
