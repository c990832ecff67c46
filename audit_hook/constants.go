package audithook

// Action constants for audit events.
const (
	// Provider actions
	ActionProviderRegistered  = "provider.registered"
	ActionProviderWhitelisted = "provider.whitelisted"

	// Token actions
	ActionTokenWhitelisted = "token.whitelisted"

	// Subscription actions
	ActionSubscriptionCreated = "subscription.created"

	// Funds actions
	ActionFundsDeposited = "funds.deposited"
	ActionFundsWithdrawn = "funds.withdrawn"
	ActionFundsRefunded  = "funds.refunded"
	ActionTransferFailed = "transfer.failed"

	// Administrative actions
	ActionPaused   = "escrow.paused"
	ActionUnpaused = "escrow.unpaused"
	ActionUpgraded = "escrow.upgraded"
)

// Resource constants for audit events.
const (
	ResourceProvider     = "provider"
	ResourceToken        = "token"
	ResourceSubscription = "subscription"
	ResourceFunds        = "funds"
	ResourceEngine       = "engine"
)

// Category constants for audit events.
const (
	CategoryRegistry = "registry"
	CategoryEscrow   = "escrow"
	CategoryPayment  = "payment"
	CategoryAdmin    = "admin"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
