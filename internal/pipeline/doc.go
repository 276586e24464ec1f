// Package pipeline orchestrates the run: source fetch, unit normalization,
// capital-stock estimation, extrapolation, indicator derivation and export,
// executed as a fixed sequence of steps over a single shared table.
//
// The ordering constraint lives here and only here. Indicators are computed
// last so that a projected year's TFP uses a projected K, L and H rather than
// a separately extrapolated indicator. Individual steps are unaware of their
// position in the sequence.
package pipeline
