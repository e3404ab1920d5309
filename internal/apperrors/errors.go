package apperrors

import "errors"

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrUserNotFound indicates that a user with the given ID does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTransactionNotFound indicates that a transaction with the given ID does not exist
	// or is not owned by the requesting user.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrStockNotFound indicates that a symbol is not in the stock catalog.
	ErrStockNotFound = errors.New("stock not found")

	// ErrPriceNotFound indicates that no last-known price exists for a symbol.
	ErrPriceNotFound = errors.New("price not found")

	// ErrReferralNotFound indicates that no referral links the given users.
	ErrReferralNotFound = errors.New("referral not found")

	// ErrReferralCodeNotFound indicates that a referral code does not belong to any user.
	ErrReferralCodeNotFound = errors.New("referral code not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInsufficientShares indicates that a sell transaction cannot be completed
	// because the user does not hold enough shares of the symbol.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrInsufficientBalance indicates that a buy or withdrawal exceeds the cash balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNonPositiveAmount indicates that a quantity, price or amount is zero or negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrStockNotActive indicates that the symbol exists but is not tradable.
	ErrStockNotActive = errors.New("stock is not active")

	// ErrPriceUnavailable indicates that no usable price could be obtained for a trade.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrInvalidStatusTransition indicates a transaction status change that is not allowed,
	// such as confirming a deposit that is already completed.
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")

	// ErrConcurrentUpdate indicates that the stored balance changed between read and write.
	ErrConcurrentUpdate = errors.New("balance was modified concurrently")

	// ErrUserInactive indicates that the account is disabled.
	ErrUserInactive = errors.New("user is inactive")

	// ErrSelfReferral indicates that a user tried to use their own referral code.
	ErrSelfReferral = errors.New("cannot refer yourself")

	// ErrInvalidUUID indicates that a provided ID is not a valid UUID format.
	ErrInvalidUUID = errors.New("invalid UUID format")

	// ErrInvalidDateRange indicates that the provided date range is invalid
	// (e.g., start date is after end date).
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")

	// ErrInvalidToken indicates a missing, malformed, or expired session token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	// Transaction operation errors
	ErrFailedToRetrieveTransactions = errors.New("failed to retrieve transactions")
	ErrFailedToRetrieveTransaction  = errors.New("failed to retrieve transaction")
	ErrFailedToCreateTransaction    = errors.New("failed to create transaction")

	// Wallet operation errors
	ErrFailedToRetrieveBalance = errors.New("failed to retrieve balance")
	ErrFailedToDeposit         = errors.New("failed to process deposit")
	ErrFailedToWithdraw        = errors.New("failed to process withdrawal")
	ErrFailedToConfirmDeposit  = errors.New("failed to confirm deposit")
	ErrFailedToReconcile       = errors.New("failed to reconcile balance")

	// Portfolio operation errors
	ErrFailedToGetHoldings  = errors.New("failed to get holdings")
	ErrFailedToGetValuation = errors.New("failed to get portfolio valuation")
	ErrFailedToGetDashboard = errors.New("failed to get dashboard")

	// User operation errors
	ErrFailedToRetrieveUser = errors.New("failed to retrieve user")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToIssueToken   = errors.New("failed to issue token")

	// Catalog and price errors
	ErrFailedToRetrieveStocks       = errors.New("failed to retrieve stocks")
	ErrFailedToRetrieveStock        = errors.New("failed to retrieve stock")
	ErrFailedToRetrievePriceHistory = errors.New("failed to retrieve price history")
	ErrFailedToSaveStock            = errors.New("failed to save stock")
	ErrFailedToRefreshPrices        = errors.New("failed to refresh prices")

	// Watchlist and referral errors
	ErrFailedToRetrieveWatchlist = errors.New("failed to retrieve watchlist")
	ErrFailedToUpdateWatchlist   = errors.New("failed to update watchlist")
	ErrFailedToRetrieveReferrals = errors.New("failed to retrieve referrals")

	// Report errors
	ErrFailedToGenerateReport = errors.New("failed to generate report")

	// System operation errors
	ErrFailedToGetVersionInfo = errors.New("failed to get version information")
)

// Data integrity errors represent inconsistencies or corruption in the data.
var (
	// ErrDataInconsistency indicates that the data is in an inconsistent state
	// (e.g., a stored decimal cannot be parsed).
	ErrDataInconsistency = errors.New("data inconsistency detected")
)
