package analytics

// Query is shared by every analytics endpoint.
type Query struct {
	Days   int    `query:"days"`
	UserID string `query:"userId" validate:"omitempty,uuid"`
}

// TrendQuery adds bucketing to Query.
type TrendQuery struct {
	Query
	GroupBy string `query:"groupBy" validate:"omitempty,oneof=day week month"`
}

// OpportunityQuery adds opportunity filters to Query.
type OpportunityQuery struct {
	Query
	Type     string `query:"type" validate:"omitempty,max=50"`
	Priority string `query:"priority" validate:"omitempty,oneof=high medium low"`
}
