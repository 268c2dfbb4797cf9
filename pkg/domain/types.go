package domain

import "time"

// Field length bounds, enforced as UTF-8 byte lengths at write time.
const (
	NameMaxLen           = 50
	TitleMaxLen          = 100
	DescriptionMaxLen    = 400
	ContentPointerMaxLen = 200
	KeyMaterialMaxLen    = 300
	ReviewPointerMaxLen  = 200
)

type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewAccepted ReviewStatus = "accepted"
	ReviewRejected ReviewStatus = "rejected"
)

// Identity is a registered marketplace participant.
type Identity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Published uint16    `json:"published"`
	Purchased uint16    `json:"purchased"`
	Sold      uint16    `json:"sold"`
	Reviewed  uint16    `json:"reviewed"`
	Earning   uint64    `json:"earning"`
	CreatedAt time.Time `json:"createdAt"`
}

// Listing is a published research paper. An author has at most one listing,
// so the listing is addressed by the author's identity ID.
type Listing struct {
	AuthorID       string    `json:"authorId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Price          uint64    `json:"price"`
	Sales          uint32    `json:"sales"`
	Reviews        uint32    `json:"reviews"`
	ContentPointer string    `json:"contentPointer"`
	KeyMaterial    string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AccessReceipt proves a buyer purchased a listing. At most one exists per
// (buyer, listing) pair; it also gates reviewing.
type AccessReceipt struct {
	BuyerID   string    `json:"buyerId"`
	ListingID string    `json:"listingId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PeerReview is a reviewer's evaluation of a purchased listing, pending the
// author's accept/reject decision. At most one per (reviewer, listing).
type PeerReview struct {
	ReviewerID     string       `json:"reviewerId"`
	ListingID      string       `json:"listingId"`
	ReviewPointer  string       `json:"reviewPointer"`
	Status         ReviewStatus `json:"status"`
	ProposedReward uint64       `json:"proposedReward"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// HolderKind distinguishes the balance holders the treasury moves value
// between. Wallets are externally spendable; vaults are custodial and only
// the treasury may debit them.
type HolderKind string

const (
	HolderWallet   HolderKind = "wallet"
	HolderVault    HolderKind = "vault"
	HolderPlatform HolderKind = "platform"
	// HolderExternal marks value entering from outside (deposits). It is a
	// journal source only; no balance row exists for it.
	HolderExternal HolderKind = "external"
)

// Holder identifies one balance. IdentityID is empty for the platform vault.
type Holder struct {
	Kind       HolderKind `json:"kind"`
	IdentityID string     `json:"identityId,omitempty"`
}

func WalletOf(identityID string) Holder {
	return Holder{Kind: HolderWallet, IdentityID: identityID}
}

func VaultOf(identityID string) Holder {
	return Holder{Kind: HolderVault, IdentityID: identityID}
}

func PlatformVault() Holder {
	return Holder{Kind: HolderPlatform}
}

// LedgerEntry is the immutable journal record of one transfer.
type LedgerEntry struct {
	ID        string            `json:"id"`
	FromKind  HolderKind        `json:"fromKind"`
	FromID    string            `json:"fromId,omitempty"`
	ToKind    HolderKind        `json:"toKind"`
	ToID      string            `json:"toId,omitempty"`
	Amount    uint64            `json:"amount"`
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Balances is the read view of one identity's funds.
type Balances struct {
	Wallet uint64 `json:"wallet"`
	Vault  uint64 `json:"vault"`
}
