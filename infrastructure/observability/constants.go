package observability

// Metric name prefixes
const (
	MetricPrefix = "gamecredits"
)

// Metric names
const (
	// Ledger metrics
	LedgerEntriesTotal = MetricPrefix + ".ledger.entries_total"
	LedgerCreditsMoved = MetricPrefix + ".ledger.credits_moved"

	// Settlement metrics
	SettlementsTotal = MetricPrefix + ".settlements.total"
	BetPayoutsTotal  = MetricPrefix + ".betting.payouts_total"

	// Stipend metrics
	StipendGrantsTotal = MetricPrefix + ".stipends.grants_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelCategory  = "category"
	LabelDirection = "direction"
	LabelEventType = "event_type"
	LabelOutcome   = "outcome"
)

// Credit directions
const (
	DirectionCredit = "credit"
	DirectionDebit  = "debit"
)
