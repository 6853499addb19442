package model

// FundamentalAnalysis is the fundamental section of an analysis report.
type FundamentalAnalysis struct {
	Score           float64            `json:"score"`
	Valuation       map[string]float64 `json:"valuation"`
	Profitability   map[string]float64 `json:"profitability"`
	Growth          map[string]float64 `json:"growth"`
	FinancialHealth map[string]float64 `json:"financial_health"`
	DuPont          *DuPontAnalysis    `json:"dupont,omitempty"`
	Summary         string             `json:"summary"`
}

// DuPontAnalysis splits ROE into margin, turnover and leverage.
type DuPontAnalysis struct {
	ROE              float64 `json:"roe"`
	NetProfitMargin  float64 `json:"net_profit_margin"`
	AssetTurnover    float64 `json:"asset_turnover"`
	EquityMultiplier float64 `json:"equity_multiplier"`
	Driver           string  `json:"driver"`
}

// TechnicalAnalysis is the backend's technical verdict.
type TechnicalAnalysis struct {
	Score            float64            `json:"score"`
	Trend            string             `json:"trend"`
	SupportLevels    []float64          `json:"support_levels"`
	ResistanceLevels []float64          `json:"resistance_levels"`
	Indicators       map[string]float64 `json:"indicators"`
	Summary          string             `json:"summary"`
}

// CapitalFlowAnalysis summarises main-force money flow.
type CapitalFlowAnalysis struct {
	Score           float64 `json:"score"`
	MainNetInflow   float64 `json:"main_net_inflow"`
	MainInflowRatio float64 `json:"main_inflow_ratio"`
	Trend           string  `json:"trend"`
	Summary         string  `json:"summary"`
}

// ComparisonMetric ranks the stock against its industry peers on one metric.
type ComparisonMetric struct {
	Metric      string  `json:"metric"`
	Label       string  `json:"label"`
	TargetValue float64 `json:"target_value"`
	IndustryAvg float64 `json:"industry_avg"`
	Rank        int     `json:"rank"`
	Total       int     `json:"total"`
	Percentile  float64 `json:"percentile"`
	VsAvg       string  `json:"vs_avg"`
}

// IndustryComparison is the peer comparison section.
type IndustryComparison struct {
	Industry          string             `json:"industry"`
	Target            map[string]any     `json:"target"`
	Peers             []map[string]any   `json:"peers"`
	ComparisonMetrics []ComparisonMetric `json:"comparison_metrics"`
	IndustryPosition  string             `json:"industry_position"`
}

// AnalysisReport is the full per-stock report produced by the backend.
type AnalysisReport struct {
	Code               string              `json:"stock_code"`
	Name               string              `json:"stock_name"`
	Fundamental        FundamentalAnalysis `json:"fundamental"`
	Technical          TechnicalAnalysis   `json:"technical"`
	CapitalFlow        CapitalFlowAnalysis `json:"capital_flow"`
	IndustryComparison *IndustryComparison `json:"industry_comparison,omitempty"`
	OverallScore       float64             `json:"overall_score"`
	RiskLevel          string              `json:"risk_level"`
	Recommendation     string              `json:"recommendation"`
	Confidence         string              `json:"confidence,omitempty"`
	Summary            string              `json:"summary"`
	GeneratedAt        int64               `json:"generated_at,omitempty"`
}
