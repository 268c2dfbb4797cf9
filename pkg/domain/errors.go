package domain

import "errors"

// Every failed operation surfaces one of these so callers can tell bad
// input from missing funds from state conflicts. Layers wrap them with
// context but never replace them.
var (
	// validation
	ErrUserNameInvalid         = errors.New("user name empty or too long")
	ErrPaperTitleInvalid       = errors.New("paper title empty or too long")
	ErrPaperDescriptionInvalid = errors.New("paper description empty or too long")
	ErrPaperURLInvalid         = errors.New("paper content pointer empty or too long")
	ErrEncryptionKeyInvalid    = errors.New("encryption key empty or too long")
	ErrReviewURLEmpty          = errors.New("review pointer empty or too long")
	ErrResearchPriceInvalid    = errors.New("price must be greater than zero")
	ErrAmountInvalid           = errors.New("amount must be greater than zero")

	// authorization
	ErrUnauthorizedAdmin  = errors.New("caller is not an administrator")
	ErrUnauthorizedUpdate = errors.New("only the author may do this")

	// state conflicts
	ErrIdentityExists       = errors.New("identity already registered")
	ErrListingExists        = errors.New("author already has a listing")
	ErrAlreadyPurchased     = errors.New("listing already purchased by this buyer")
	ErrAlreadyReviewed      = errors.New("listing already reviewed by this reviewer")
	ErrReviewNotPending     = errors.New("review already accepted or rejected")
	ErrPaperNotPurchased    = errors.New("listing must be purchased before reviewing")
	ErrAuthorCantBuySelf    = errors.New("authors cannot buy their own listing")
	ErrAuthorCantReviewSelf = errors.New("authors cannot review their own listing")

	// missing records
	ErrIdentityNotFound = errors.New("identity not found")
	ErrListingNotFound  = errors.New("listing not found")
	ErrReviewNotFound   = errors.New("review not found")

	// resources
	ErrInsufficientFundsInWallet = errors.New("insufficient wallet balance")
	ErrInsufficientFundsInVault  = errors.New("insufficient vault balance")

	// arithmetic
	ErrMathOverflow = errors.New("arithmetic overflow")
)
