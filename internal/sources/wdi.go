package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"chinaecon/pkg/contracts/domain"
)

// wdiIndicators maps World Bank indicator codes onto raw column names.
var wdiIndicators = map[string]string{
	"NY.GDP.MKTP.CD": domain.RawGDP,
	"NE.CON.PRVT.CD": domain.RawConsumption,
	"NE.CON.GOVT.CD": domain.RawGovernment,
	"NE.GDI.TOTL.CD": domain.RawInvestment,
	"NE.EXP.GNFS.CD": domain.RawExports,
	"NE.IMP.GNFS.CD": domain.RawImports,
	"SP.POP.TOTL":    domain.RawPopulation,
	"SL.TLF.TOTL.IN": domain.RawLaborForce,
}

// WDILoader downloads the WDI series from the World Bank v2 API.
type WDILoader struct {
	client  *Client
	baseURL string
	country string
	logger  *slog.Logger
}

// NewWDILoader creates a loader against the given API base URL.
func NewWDILoader(client *Client, baseURL string, logger *slog.Logger) *WDILoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &WDILoader{client: client, baseURL: baseURL, country: domain.CountryCode, logger: logger}
}

// Name implements Loader.
func (l *WDILoader) Name() string { return "worldbank-wdi" }

// wdiObservation is one point of the World Bank API response. Value is a
// pointer because the API reports missing years as JSON null.
type wdiObservation struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Load fetches every configured indicator and returns year-keyed raw
// observations. Null values are simply omitted; they surface downstream as
// missing cells.
func (l *WDILoader) Load(ctx context.Context) (map[int]map[string]float64, error) {
	rows := make(map[int]map[string]float64)

	for code, column := range wdiIndicators {
		url := fmt.Sprintf("%s/country/%s/indicator/%s?format=json&per_page=500", l.baseURL, l.country, code)

		// The API wraps results as [metadata, observations].
		var envelope []json.RawMessage
		if err := l.client.GetJSON(ctx, url, &envelope); err != nil {
			return nil, fmt.Errorf("wdi indicator %s: %w", code, err)
		}
		if len(envelope) < 2 {
			return nil, fmt.Errorf("wdi indicator %s: unexpected response shape", code)
		}

		var observations []wdiObservation
		if err := json.Unmarshal(envelope[1], &observations); err != nil {
			return nil, fmt.Errorf("wdi indicator %s: decode observations: %w", code, err)
		}

		kept := 0
		for _, obs := range observations {
			if obs.Value == nil {
				continue
			}
			year, err := strconv.Atoi(obs.Date)
			if err != nil {
				// Aggregate periods like "2015-2020" are not year rows.
				continue
			}
			row, ok := rows[year]
			if !ok {
				row = make(map[string]float64)
				rows[year] = row
			}
			row[column] = *obs.Value
			kept++
		}
		l.logger.DebugContext(ctx, "wdi indicator loaded",
			slog.String("indicator", code),
			slog.Int("observations", kept))
	}

	l.logger.InfoContext(ctx, "wdi download complete", slog.Int("years", len(rows)))
	return rows, nil
}
