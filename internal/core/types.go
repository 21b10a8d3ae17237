package core

import "time"

// Strategy identifies one of the six opportunity-detector strategy families.
type Strategy string

const (
	StrategySpotPerp     Strategy = "SpotPerp"
	StrategyFundingRate  Strategy = "FundingRate"
	StrategyCrossVenue   Strategy = "CrossVenue"
	StrategyBasis        Strategy = "Basis"
	StrategyVolatility   Strategy = "Volatility"
	StrategyStatistical  Strategy = "Statistical"
)

// Action is the side of a leg order.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
)

// PlanStatus is the lifecycle state of an ExecutionPlan.
type PlanStatus string

const (
	PlanPlanned         PlanStatus = "Planned"
	PlanReady           PlanStatus = "Ready"
	PlanExecuting       PlanStatus = "Executing"
	PlanPartiallyFilled PlanStatus = "PartiallyFilled"
	PlanCompleted       PlanStatus = "Completed"
	PlanCancelled       PlanStatus = "Cancelled"
	PlanFailed          PlanStatus = "Failed"
)

// SizingMethod is one of the execution planner's sizing strategies.
type SizingMethod string

const (
	SizingFixed               SizingMethod = "Fixed"
	SizingFixedPercent        SizingMethod = "FixedPercent"
	SizingKelly               SizingMethod = "Kelly"
	SizingVolatilityAdjusted  SizingMethod = "VolatilityAdjusted"
	SizingLiquidityConstrained SizingMethod = "LiquidityConstrained"
	SizingRiskParity          SizingMethod = "RiskParity"
	SizingMaxDrawdownLimit    SizingMethod = "MaxDrawdownLimit"
)

// ModelTag identifies which synthetic pricing model produced a SyntheticPrice.
type ModelTag string

const (
	ModelPerpSynthetic    ModelTag = "perp_synthetic"
	ModelFutureCostOfCarry ModelTag = "future_cost_of_carry"
	ModelOptionBS         ModelTag = "option_bs"
)

// AlertSeverity ranks a RiskAlert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "Info"
	SeverityWarning  AlertSeverity = "Warning"
	SeverityCritical AlertSeverity = "Critical"
)

// AlertKind identifies what limit a RiskAlert is about.
type AlertKind string

const (
	AlertVarBreach           AlertKind = "VarBreach"
	AlertLeverageBreach      AlertKind = "LeverageBreach"
	AlertConcentrationBreach AlertKind = "ConcentrationBreach"
	AlertLiquidityRisk       AlertKind = "LiquidityRisk"
	AlertCorrelationRisk     AlertKind = "CorrelationRisk"
	AlertFundingRisk         AlertKind = "FundingRisk"
	AlertExecutionCostHigh   AlertKind = "ExecutionCostHigh"
)

// ConnectionState is a venue adapter's lifecycle state.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "Disconnected"
	StateConnecting   ConnectionState = "Connecting"
	StateConnected    ConnectionState = "Connected"
	StateError        ConnectionState = "Error"
	StateReconnecting ConnectionState = "Reconnecting"
)

// Quote is the latest observation for one (symbol, venue) pair.
//
// Invariant: bid <= last <= ask when all three are present and fresh;
// otherwise Stale is set and detection must skip the quote.
type Quote struct {
	Symbol        string
	Venue         string
	Bid           float64
	Ask           float64
	Last          float64
	Volume24h     float64
	FundingRate   *float64 // non-nil only for perpetuals
	MarkPrice     *float64 // non-nil only for derivatives
	ImpliedVol    *float64 // optional side-channel for the Volatility strategy
	ExpiryUnix    *int64   // non-nil only for dated futures/options, encodes time-to-expiry
	Strike        *float64 // non-nil only for options
	ObservedAt    time.Time
	Stale         bool
}

// Key returns the (symbol, venue) cache key for this quote.
func (q *Quote) Key() string { return CacheKey(q.Symbol, q.Venue) }

// CacheKey builds the canonical (symbol, venue) cache key.
func CacheKey(symbol, venue string) string { return symbol + "|" + venue }

// PricePoint is one (timestamp, price) sample in a PriceSeries.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

// SyntheticPrice is a fair value derived by the Synthetic Pricer.
type SyntheticPrice struct {
	InstrumentID string
	Price        float64
	Model        ModelTag
	Confidence   float64
	Components   PriceComponents
	Timestamp    time.Time
}

// PriceComponents is the breakdown of a SyntheticPrice.
type PriceComponents struct {
	Base             float64
	FundingAdjustment float64
	Carry            float64
	ConvenienceYield float64
	VolComponent     float64
}

// Leg is one order within an ExecutionPlan or a candidate Opportunity.
type Leg struct {
	Venue         string
	Instrument    string
	Action        Action
	Quantity      float64
	ReferencePrice float64
	Weight        float64 // in [0,1], sums to 1 across a plan's legs
	LimitPrice    float64
	StopPrice     float64
	SlippageEst   float64
	FeeEst        float64
	IsSynthetic   bool
	ScheduledAt   time.Time
	IsExecuted    bool
	ExecutedQty   float64
}

// Opportunity is a candidate multi-leg arbitrage trade emitted by the
// detector and scored by the validator/ranker.
//
// Invariant: NetExpectedProfit == GrossProfitUSD - ExecutionCost - SlippageCost.
type Opportunity struct {
	ID       string
	Strategy Strategy
	Symbol   string
	Legs     []Leg

	PriceA           float64
	PriceB           float64
	AbsoluteSpread   float64
	PercentSpread    float64
	GrossProfitUSD   float64
	GrossProfitPct   float64
	ExecutionCost    float64
	SlippageCost     float64
	NetExpectedProfit float64

	RiskAdjustedReturn float64
	Confidence         float64
	LiquidityScore     float64
	VolatilityRisk     float64

	DetectedAt         time.Time
	EstimatedDuration  time.Duration
	TimeToExpiry       time.Duration

	Valid            bool
	Executable       bool
	ValidationNotes  string

	ExecutionRisk  string // "low"|"medium"|"high", additive per §3 supplement
	LatencyWarning bool

	// Populated by the validator/ranker.
	CompositeScore      float64
	ExecutionProbability float64
	Rank                int
}

// ExecutionPlan is a ranked opportunity converted into sized, timed,
// cost-estimated orders.
type ExecutionPlan struct {
	ID             string
	OpportunityID  string
	Legs           []Leg
	TimingStrategy string
	SizingStrategy SizingMethod
	MaxCapital     float64
	CostEstimate   float64
	Status         PlanStatus
	CreatedAt      time.Time
	PlannedStartAt time.Time
	CompletionAt   *time.Time

	ValidationErrors   []string
	ValidationWarnings []string
	ValidationScore    float64
}

// PositionSide is the sign of a position's size.
type PositionSide string

const (
	PositionLong  PositionSide = "Long"
	PositionShort PositionSide = "Short"
)

// Position is an open or closed holding in one (symbol, venue).
//
// Invariant: CostBasis == |Size| * AverageEntryPrice whenever Size != 0.
type Position struct {
	Symbol          string
	Venue           string
	Size            float64 // signed: positive = long
	AverageEntry    float64
	CurrentMark     float64
	CostBasis       float64
	OpenedAt        time.Time
	LastUpdateAt    time.Time
	Active          bool
	Synthetic       bool
	Underlyings     []string
	TradeIDs        []string
	Strategy        string // capital-allocation bucket
}

// Side returns the position's signed side.
func (p *Position) Side() PositionSide {
	if p.Size < 0 {
		return PositionShort
	}
	return PositionLong
}

// UnrealizedPnL computes mark-to-market P&L for the position.
func (p *Position) UnrealizedPnL() float64 {
	return p.UnrealizedPnLAt(p.CurrentMark)
}

// UnrealizedPnLAt computes mark-to-market P&L against an arbitrary mark,
// used both for live unrealized P&L and for realizing P&L on close.
func (p *Position) UnrealizedPnLAt(mark float64) float64 {
	if p.Size >= 0 {
		return (mark - p.AverageEntry) * p.Size
	}
	return (p.AverageEntry - mark) * -p.Size
}

// TradeRecord is an immutable fill record. Closed trades carry non-nil
// exit fields; once closed a trade never reopens.
type TradeRecord struct {
	TradeID      string
	PlanID       string // optional
	Venue        string
	Symbol       string
	Action       Action
	Quantity     float64
	EntryPrice   float64
	EntryTime    time.Time
	ExitPrice    *float64
	ExitTime     *time.Time
	RealizedPnL  *float64
	TotalCosts   float64
}

// Closed reports whether the trade has been closed.
func (t *TradeRecord) Closed() bool { return t.ExitTime != nil }

// RiskMetrics is a snapshot of portfolio-level risk.
type RiskMetrics struct {
	Timestamp          time.Time
	PortfolioVaR       float64
	ExpectedShortfall  float64
	TotalExposure      float64
	LeveragedExposure  float64
	Concentration      float64
	Correlation        float64
	LiquidityRisk      float64
	FundingRateRisk    float64
	MaxDrawdown        float64
}

// RiskAlert is fired when a RiskMetrics value crosses a configured threshold.
type RiskAlert struct {
	ID         string
	Severity   AlertSeverity
	Kind       AlertKind
	Value      float64
	Limit      float64
	PositionID string // optional
	Timestamp  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the alert's TTL has elapsed as of now.
func (a *RiskAlert) Expired(now time.Time) bool { return now.After(a.ExpiresAt) }

// PnLSnapshot is a point-in-time capture of portfolio equity and realized
// P&L, taken on a fixed cadence to build the equity curve.
type PnLSnapshot struct {
	Timestamp     time.Time
	Equity        float64
	RealizedPnL   float64
	UnrealizedPnL float64
	OpenPositions int
}

// PnLAnalytics summarizes trade and equity-curve history over a window.
type PnLAnalytics struct {
	RealizedPnL      float64
	UnrealizedPnL    float64
	TotalPnL         float64
	TotalReturnPct   float64
	AnnualizedReturn float64
	Volatility       float64
	SharpeRatio      float64
	SortinoRatio     float64
	CalmarRatio      float64
	ValueAtRisk      float64
	ExpectedShortfall float64
	MaxDrawdown      float64
	WinRate          float64
	AverageWin       float64
	AverageLoss      float64
	ProfitFactor     float64
	TotalTrades      int
	WinningTrades    int
	LosingTrades     int
}
