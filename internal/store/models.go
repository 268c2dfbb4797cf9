package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type IdentityModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Published uint16 `gorm:"not null"`
	Purchased uint16 `gorm:"not null"`
	Sold      uint16 `gorm:"not null"`
	Reviewed  uint16 `gorm:"not null"`
	Earning   uint64 `gorm:"not null"`
	CreatedAt time.Time
}

type ListingModel struct {
	AuthorID       string `gorm:"primaryKey"`
	Title          string `gorm:"not null"`
	Description    string `gorm:"not null"`
	Price          uint64 `gorm:"not null"`
	Sales          uint32 `gorm:"not null"`
	Reviews        uint32 `gorm:"not null"`
	ContentPointer string `gorm:"not null"`
	KeyMaterial    string `gorm:"not null"`
	CreatedAt      time.Time
}

type ReceiptModel struct {
	BuyerID   string `gorm:"primaryKey"`
	ListingID string `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

type ReviewModel struct {
	ReviewerID     string `gorm:"primaryKey"`
	ListingID      string `gorm:"primaryKey;index"`
	ReviewPointer  string `gorm:"not null"`
	Status         string `gorm:"not null"`
	ProposedReward uint64 `gorm:"not null"`
	CreatedAt      time.Time
}

type BalanceModel struct {
	HolderKind string `gorm:"primaryKey"`
	IdentityID string `gorm:"primaryKey"`
	Amount     uint64 `gorm:"not null"`
	UpdatedAt  time.Time
}

type LedgerEntryModel struct {
	ID        string `gorm:"primaryKey"`
	FromKind  string `gorm:"not null"`
	FromID    string `gorm:"index"`
	ToKind    string `gorm:"not null"`
	ToID      string `gorm:"index"`
	Amount    uint64 `gorm:"not null"`
	Reason    string `gorm:"not null"`
	Metadata  datatypes.JSON
	CreatedAt time.Time `gorm:"index"`
}
