// Package domain defines the shared vocabulary of the data pipeline: the
// canonical column names of the merged dataset and the raw, source-prefixed
// names the loaders produce.
package domain

// Raw column names as written by the source loaders, before unit
// normalization. Monetary series are current USD, demographic series are
// head counts. PWT index series (rkna, pl_gdpo) are unitless and pass
// through normalization untouched.
const (
	RawGDP         = "wdi_gdp_usd"
	RawConsumption = "wdi_consumption_usd"
	RawGovernment  = "wdi_government_usd"
	RawInvestment  = "wdi_investment_usd"
	RawExports     = "wdi_exports_usd"
	RawImports     = "wdi_imports_usd"
	RawPopulation  = "wdi_population"
	RawLaborForce  = "wdi_labor_force"

	ColHumanCapital = "pwt_hc"
	ColRKNA         = "pwt_rkna"
	ColPriceGDP     = "pwt_pl_gdpo"

	ColTaxRate = "imf_tax_rate_pct"
)

// Normalized base series: monetary columns in billions of USD, demographic
// columns in millions of people.
const (
	ColGDP         = "gdp"
	ColConsumption = "consumption"
	ColGovernment  = "government"
	ColInvestment  = "investment"
	ColExports     = "exports"
	ColImports     = "imports"
	ColPopulation  = "population"
	ColLaborForce  = "labor_force"
)

// Derived indicator columns.
const (
	ColCapital       = "capital"
	ColTFP           = "tfp"
	ColNetExports    = "net_exports"
	ColOpenness      = "openness"
	ColCapitalOutput = "capital_output"
	ColTaxRevenue    = "tax_revenue"
	ColSaving        = "saving"
	ColPrivateSaving = "private_saving"
	ColPublicSaving  = "public_saving"
	ColSavingRate    = "saving_rate"
)

// CountryCode is the ISO alpha-3 code the loaders filter on.
const CountryCode = "CHN"
