package types

// TruthLevel is the categorical band of a truth score.
type TruthLevel string

// Truth level constants
const (
	TruthVeryLow  TruthLevel = "Very Low"
	TruthLow      TruthLevel = "Low"
	TruthModerate TruthLevel = "Moderate"
	TruthHigh     TruthLevel = "High"
	TruthVeryHigh TruthLevel = "Very High"
)

// TruthLevelFor maps a 0-100 score onto its band.
func TruthLevelFor(score int) TruthLevel {
	switch {
	case score >= 80:
		return TruthVeryHigh
	case score >= 60:
		return TruthHigh
	case score >= 40:
		return TruthModerate
	case score >= 20:
		return TruthLow
	default:
		return TruthVeryLow
	}
}

// CoverageLevel describes how much of a statement the knowledge base knows about.
type CoverageLevel string

// Coverage level constants
const (
	CoveragePoor      CoverageLevel = "Poor"
	CoverageLimited   CoverageLevel = "Limited"
	CoverageModerate  CoverageLevel = "Moderate"
	CoverageGood      CoverageLevel = "Good"
	CoverageExcellent CoverageLevel = "Excellent"
)

// CoverageLevelFor maps the fraction of known query keywords onto its band.
func CoverageLevelFor(fraction float64) CoverageLevel {
	switch {
	case fraction >= 0.8:
		return CoverageExcellent
	case fraction >= 0.6:
		return CoverageGood
	case fraction >= 0.4:
		return CoverageModerate
	case fraction >= 0.2:
		return CoverageLimited
	default:
		return CoveragePoor
	}
}
