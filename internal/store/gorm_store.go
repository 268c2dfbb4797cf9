package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"prismpapers/pkg/domain"
)

// GormStore implements Store using GORM + Postgres. Uniqueness keys are
// primary keys, so a losing concurrent insert surfaces as a duplicate-key
// failure rather than a silent overwrite.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	models := []any{
		&IdentityModel{},
		&ListingModel{},
		&ReceiptModel{},
		&ReviewModel{},
		&BalanceModel{},
		&LedgerEntryModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// InTx runs fn inside one database transaction.
func (s *GormStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}

// reader locks fetched rows FOR UPDATE inside a transaction. Every read
// here precedes a write of the same row, so concurrent transactions
// serialize on the fetch instead of overwriting each other's updates.
func (s *GormStore) reader() *gorm.DB {
	if s.inTx {
		return s.db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return s.db
}

// CreateIdentity inserts exactly one identity per participant.
func (s *GormStore) CreateIdentity(id domain.Identity) error {
	model := identityToModel(id)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrIdentityExists
		}
		return err
	}
	return nil
}

// GetIdentity returns an identity by ID.
func (s *GormStore) GetIdentity(id string) (domain.Identity, bool, error) {
	var model IdentityModel
	if err := s.reader().First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Identity{}, false, nil
		}
		return domain.Identity{}, false, err
	}
	return identityFromModel(model), true, nil
}

// SaveIdentity persists counter/earning mutations.
func (s *GormStore) SaveIdentity(id domain.Identity) error {
	model := identityToModel(id)
	return s.db.Model(&IdentityModel{}).Where("id = ?", model.ID).Updates(map[string]any{
		"name":      model.Name,
		"published": model.Published,
		"purchased": model.Purchased,
		"sold":      model.Sold,
		"reviewed":  model.Reviewed,
		"earning":   model.Earning,
	}).Error
}

// CreateListing inserts the author's single listing.
func (s *GormStore) CreateListing(l domain.Listing) error {
	model := listingToModel(l)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrListingExists
		}
		return err
	}
	return nil
}

// GetListing returns the listing published by authorID.
func (s *GormStore) GetListing(authorID string) (domain.Listing, bool, error) {
	var model ListingModel
	if err := s.reader().First(&model, "author_id = ?", authorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Listing{}, false, nil
		}
		return domain.Listing{}, false, err
	}
	return listingFromModel(model), true, nil
}

// SaveListing replaces mutable listing fields; CreatedAt is never touched.
func (s *GormStore) SaveListing(l domain.Listing) error {
	model := listingToModel(l)
	return s.db.Model(&ListingModel{}).Where("author_id = ?", model.AuthorID).Updates(map[string]any{
		"title":           model.Title,
		"description":     model.Description,
		"price":           model.Price,
		"sales":           model.Sales,
		"reviews":         model.Reviews,
		"content_pointer": model.ContentPointer,
		"key_material":    model.KeyMaterial,
	}).Error
}

// ListListings returns all listings ordered by creation time.
func (s *GormStore) ListListings() ([]domain.Listing, error) {
	var models []ListingModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Listing, 0, len(models))
	for _, m := range models {
		res = append(res, listingFromModel(m))
	}
	return res, nil
}

// CreateReceipt inserts the one receipt per (buyer, listing).
func (s *GormStore) CreateReceipt(r domain.AccessReceipt) error {
	model := ReceiptModel{BuyerID: r.BuyerID, ListingID: r.ListingID, CreatedAt: r.CreatedAt}
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyPurchased
		}
		return err
	}
	return nil
}

// GetReceipt looks up the purchase proof for (buyer, listing).
func (s *GormStore) GetReceipt(buyerID, listingID string) (domain.AccessReceipt, bool, error) {
	var model ReceiptModel
	err := s.db.First(&model, "buyer_id = ? AND listing_id = ?", buyerID, listingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AccessReceipt{}, false, nil
		}
		return domain.AccessReceipt{}, false, err
	}
	return domain.AccessReceipt{BuyerID: model.BuyerID, ListingID: model.ListingID, CreatedAt: model.CreatedAt}, true, nil
}

// CreateReview inserts the one review per (reviewer, listing).
func (s *GormStore) CreateReview(r domain.PeerReview) error {
	model := reviewToModel(r)
	if err := s.db.Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAlreadyReviewed
		}
		return err
	}
	return nil
}

// GetReview looks up the review for (reviewer, listing).
func (s *GormStore) GetReview(reviewerID, listingID string) (domain.PeerReview, bool, error) {
	var model ReviewModel
	err := s.reader().First(&model, "reviewer_id = ? AND listing_id = ?", reviewerID, listingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.PeerReview{}, false, nil
		}
		return domain.PeerReview{}, false, err
	}
	return reviewFromModel(model), true, nil
}

// SaveReview persists the status transition.
func (s *GormStore) SaveReview(r domain.PeerReview) error {
	return s.db.Model(&ReviewModel{}).
		Where("reviewer_id = ? AND listing_id = ?", r.ReviewerID, r.ListingID).
		Update("status", string(r.Status)).Error
}

// GetBalance reads a holder balance; a missing row is zero. Inside a
// transaction the row is seeded at zero first so the FOR UPDATE lock has a
// row to grab even on the holder's first credit; without the seed, two
// concurrent first credits would both read zero unlocked and one upsert
// would swallow the other.
func (s *GormStore) GetBalance(h domain.Holder) (uint64, error) {
	if s.inTx {
		seed := BalanceModel{
			HolderKind: string(h.Kind),
			IdentityID: h.IdentityID,
			UpdatedAt:  time.Now().UTC(),
		}
		if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return 0, fmt.Errorf("seed balance row: %w", err)
		}
	}
	var model BalanceModel
	err := s.reader().First(&model, "holder_kind = ? AND identity_id = ?", string(h.Kind), h.IdentityID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.Amount, nil
}

// SetBalance upserts a holder balance.
func (s *GormStore) SetBalance(h domain.Holder, amount uint64) error {
	model := BalanceModel{
		HolderKind: string(h.Kind),
		IdentityID: h.IdentityID,
		Amount:     amount,
		UpdatedAt:  time.Now().UTC(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "holder_kind"}, {Name: "identity_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&model).Error
}

// AppendLedgerEntry records one immutable journal row.
func (s *GormStore) AppendLedgerEntry(e domain.LedgerEntry) error {
	var meta []byte
	if len(e.Metadata) > 0 {
		var err error
		meta, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}
	model := LedgerEntryModel{
		ID:        e.ID,
		FromKind:  string(e.FromKind),
		FromID:    e.FromID,
		ToKind:    string(e.ToKind),
		ToID:      e.ToID,
		Amount:    e.Amount,
		Reason:    e.Reason,
		Metadata:  meta,
		CreatedAt: e.CreatedAt,
	}
	return s.db.Create(&model).Error
}

// LedgerEntriesFor returns journal rows touching the identity's holders.
func (s *GormStore) LedgerEntriesFor(identityID string) ([]domain.LedgerEntry, error) {
	var models []LedgerEntryModel
	err := s.db.Where("from_id = ? OR to_id = ?", identityID, identityID).
		Order("created_at ASC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.LedgerEntry, 0, len(models))
	for _, m := range models {
		entry := domain.LedgerEntry{
			ID:        m.ID,
			FromKind:  domain.HolderKind(m.FromKind),
			FromID:    m.FromID,
			ToKind:    domain.HolderKind(m.ToKind),
			ToID:      m.ToID,
			Amount:    m.Amount,
			Reason:    m.Reason,
			CreatedAt: m.CreatedAt,
		}
		if len(m.Metadata) > 0 {
			if err := json.Unmarshal(m.Metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		res = append(res, entry)
	}
	return res, nil
}

func identityToModel(id domain.Identity) IdentityModel {
	return IdentityModel{
		ID:        id.ID,
		Name:      id.Name,
		Published: id.Published,
		Purchased: id.Purchased,
		Sold:      id.Sold,
		Reviewed:  id.Reviewed,
		Earning:   id.Earning,
		CreatedAt: id.CreatedAt,
	}
}

func identityFromModel(m IdentityModel) domain.Identity {
	return domain.Identity{
		ID:        m.ID,
		Name:      m.Name,
		Published: m.Published,
		Purchased: m.Purchased,
		Sold:      m.Sold,
		Reviewed:  m.Reviewed,
		Earning:   m.Earning,
		CreatedAt: m.CreatedAt,
	}
}

func listingToModel(l domain.Listing) ListingModel {
	return ListingModel{
		AuthorID:       l.AuthorID,
		Title:          l.Title,
		Description:    l.Description,
		Price:          l.Price,
		Sales:          l.Sales,
		Reviews:        l.Reviews,
		ContentPointer: l.ContentPointer,
		KeyMaterial:    l.KeyMaterial,
		CreatedAt:      l.CreatedAt,
	}
}

func listingFromModel(m ListingModel) domain.Listing {
	return domain.Listing{
		AuthorID:       m.AuthorID,
		Title:          m.Title,
		Description:    m.Description,
		Price:          m.Price,
		Sales:          m.Sales,
		Reviews:        m.Reviews,
		ContentPointer: m.ContentPointer,
		KeyMaterial:    m.KeyMaterial,
		CreatedAt:      m.CreatedAt,
	}
}

func reviewToModel(r domain.PeerReview) ReviewModel {
	return ReviewModel{
		ReviewerID:     r.ReviewerID,
		ListingID:      r.ListingID,
		ReviewPointer:  r.ReviewPointer,
		Status:         string(r.Status),
		ProposedReward: r.ProposedReward,
		CreatedAt:      r.CreatedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.PeerReview {
	return domain.PeerReview{
		ReviewerID:     m.ReviewerID,
		ListingID:      m.ListingID,
		ReviewPointer:  m.ReviewPointer,
		Status:         domain.ReviewStatus(m.Status),
		ProposedReward: m.ProposedReward,
		CreatedAt:      m.CreatedAt,
	}
}
