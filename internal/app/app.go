package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"prismpapers/internal/artifacts"
	"prismpapers/internal/events"
	"prismpapers/internal/session"
	"prismpapers/internal/store"
	"prismpapers/internal/treasury"
	"prismpapers/internal/util"
	"prismpapers/pkg/domain"
)

const artifactURLExpiry = 15 * time.Minute

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	SessionTTL    time.Duration
	Admins        []string
	Store         store.Store
	Sessions      session.Store
	Events        events.Publisher
	Artifacts     artifacts.Store
}

// App wires storage, sessions, and the treasury into the marketplace
// workflows. Every mutating method runs as one store transaction.
type App struct {
	store     store.Store
	sessions  session.Store
	admins    map[string]struct{}
	events    events.Publisher
	artifacts artifacts.Store
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		switch {
		case cfg.JWTSecret != "":
			sessionStore = session.NewJWTStore(cfg.JWTSecret, cfg.SessionTTL)
		case cfg.RedisAddr != "":
			sessionStore = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		default:
			return nil, fmt.Errorf("session store required (jwtSecret or redisAddr)")
		}
	}

	admins := make(map[string]struct{}, len(cfg.Admins))
	for _, id := range cfg.Admins {
		admins[id] = struct{}{}
	}

	return &App{
		store:     dataStore,
		sessions:  sessionStore,
		admins:    admins,
		events:    cfg.Events,
		artifacts: cfg.Artifacts,
	}, nil
}

// ListingInput carries the author-supplied listing fields.
type ListingInput struct {
	Title          string
	Description    string
	Price          uint64
	ContentPointer string
	KeyMaterial    string
}

// Register creates exactly one identity and issues its session token.
func (a *App) Register(ctx context.Context, name string) (domain.Identity, string, error) {
	if !boundedNonEmpty(name, domain.NameMaxLen) {
		return domain.Identity{}, "", domain.ErrUserNameInvalid
	}
	identity := domain.Identity{
		ID:        util.NewID(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	err := a.store.InTx(ctx, func(tx store.Store) error {
		return tx.CreateIdentity(identity)
	})
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("create identity: %w", err)
	}
	token, err := a.sessions.NewSession(identity.ID)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("issue session: %w", err)
	}
	return identity, token, nil
}

// IdentityFromToken resolves an identity from a session token.
func (a *App) IdentityFromToken(token string) (domain.Identity, bool) {
	id, ok, err := a.sessions.IdentityIDByToken(token)
	if err != nil || !ok {
		return domain.Identity{}, false
	}
	identity, found, err := a.store.GetIdentity(id)
	if err != nil || !found {
		return domain.Identity{}, false
	}
	return identity, true
}

// Logout removes a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// IsAdmin reports allow-list membership.
func (a *App) IsAdmin(identityID string) bool {
	_, ok := a.admins[identityID]
	return ok
}

// Publish creates the caller's single listing and bumps their published
// counter.
func (a *App) Publish(ctx context.Context, authorID string, in ListingInput) (domain.Listing, error) {
	if err := validateListingInput(in); err != nil {
		return domain.Listing{}, err
	}
	listing := domain.Listing{
		AuthorID:       authorID,
		Title:          in.Title,
		Description:    in.Description,
		Price:          in.Price,
		ContentPointer: in.ContentPointer,
		KeyMaterial:    in.KeyMaterial,
		CreatedAt:      time.Now().UTC(),
	}
	err := a.store.InTx(ctx, func(tx store.Store) error {
		author, ok, err := tx.GetIdentity(authorID)
		if err != nil {
			return fmt.Errorf("fetch author: %w", err)
		}
		if !ok {
			return domain.ErrIdentityNotFound
		}
		if err := tx.CreateListing(listing); err != nil {
			return err
		}
		author.Published, err = treasury.AddU16(author.Published, 1)
		if err != nil {
			return err
		}
		return tx.SaveIdentity(author)
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// UpdateListing replaces the mutable listing fields; author only.
func (a *App) UpdateListing(ctx context.Context, callerID, authorID string, in ListingInput) (domain.Listing, error) {
	var updated domain.Listing
	err := a.store.InTx(ctx, func(tx store.Store) error {
		listing, ok, err := tx.GetListing(authorID)
		if err != nil {
			return fmt.Errorf("fetch listing: %w", err)
		}
		if !ok {
			return domain.ErrListingNotFound
		}
		if callerID != listing.AuthorID {
			return domain.ErrUnauthorizedUpdate
		}
		if err := validateListingInput(in); err != nil {
			return err
		}
		listing.Title = in.Title
		listing.Description = in.Description
		listing.Price = in.Price
		listing.ContentPointer = in.ContentPointer
		listing.KeyMaterial = in.KeyMaterial
		updated = listing
		return tx.SaveListing(listing)
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return updated, nil
}

// GetListing returns one listing by its author.
func (a *App) GetListing(authorID string) (domain.Listing, bool, error) {
	return a.store.GetListing(authorID)
}

// ListListings returns every listing.
func (a *App) ListListings() ([]domain.Listing, error) {
	return a.store.ListListings()
}

// Purchase settles a sale: the price splits into the author's vault and the
// platform vault, one receipt is created, and all counters move together.
func (a *App) Purchase(ctx context.Context, buyerID, listingID string) (domain.AccessReceipt, error) {
	var receipt domain.AccessReceipt
	var ev events.Event
	err := a.store.InTx(ctx, func(tx store.Store) error {
		listing, ok, err := tx.GetListing(listingID)
		if err != nil {
			return fmt.Errorf("fetch listing: %w", err)
		}
		if !ok {
			return domain.ErrListingNotFound
		}
		if listing.Price == 0 {
			return domain.ErrResearchPriceInvalid
		}
		if buyerID == listing.AuthorID {
			return domain.ErrAuthorCantBuySelf
		}
		if _, exists, err := tx.GetReceipt(buyerID, listingID); err != nil {
			return fmt.Errorf("check receipt: %w", err)
		} else if exists {
			return domain.ErrAlreadyPurchased
		}
		buyer, ok, err := tx.GetIdentity(buyerID)
		if err != nil {
			return fmt.Errorf("fetch buyer: %w", err)
		}
		if !ok {
			return domain.ErrIdentityNotFound
		}
		author, ok, err := tx.GetIdentity(listing.AuthorID)
		if err != nil {
			return fmt.Errorf("fetch author: %w", err)
		}
		if !ok {
			return domain.ErrIdentityNotFound
		}

		wallet, err := tx.GetBalance(domain.WalletOf(buyerID))
		if err != nil {
			return fmt.Errorf("read buyer wallet: %w", err)
		}
		if wallet < listing.Price {
			return domain.ErrInsufficientFundsInWallet
		}
		fee, net, err := treasury.Split(listing.Price)
		if err != nil {
			return err
		}
		meta := map[string]string{"listing": listingID}
		if err := treasury.Transfer(tx, domain.WalletOf(buyerID), domain.VaultOf(listing.AuthorID), net, "purchase", meta); err != nil {
			return err
		}
		if err := treasury.Transfer(tx, domain.WalletOf(buyerID), domain.PlatformVault(), fee, "platform_fee", meta); err != nil {
			return err
		}

		receipt = domain.AccessReceipt{
			BuyerID:   buyerID,
			ListingID: listingID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.CreateReceipt(receipt); err != nil {
			return err
		}

		if buyer.Purchased, err = treasury.AddU16(buyer.Purchased, 1); err != nil {
			return err
		}
		if listing.Sales, err = treasury.AddU32(listing.Sales, 1); err != nil {
			return err
		}
		if author.Sold, err = treasury.AddU16(author.Sold, 1); err != nil {
			return err
		}
		if author.Earning, err = treasury.AddU64(author.Earning, net); err != nil {
			return err
		}
		if err := tx.SaveIdentity(buyer); err != nil {
			return fmt.Errorf("save buyer: %w", err)
		}
		if err := tx.SaveIdentity(author); err != nil {
			return fmt.Errorf("save author: %w", err)
		}
		if err := tx.SaveListing(listing); err != nil {
			return fmt.Errorf("save listing: %w", err)
		}
		ev = events.Event{
			Kind:    events.KindPurchaseSettled,
			Actor:   buyerID,
			Listing: listingID,
			Amount:  listing.Price,
			Fee:     fee,
		}
		return nil
	})
	if err != nil {
		return domain.AccessReceipt{}, err
	}
	a.publish(ctx, ev)
	return receipt, nil
}

// SubmitReview records a pending peer review; only holders of a receipt for
// the listing may review it.
func (a *App) SubmitReview(ctx context.Context, reviewerID, listingID, reviewPointer string, proposedReward uint64) (domain.PeerReview, error) {
	var review domain.PeerReview
	err := a.store.InTx(ctx, func(tx store.Store) error {
		listing, ok, err := tx.GetListing(listingID)
		if err != nil {
			return fmt.Errorf("fetch listing: %w", err)
		}
		if !ok {
			return domain.ErrListingNotFound
		}
		if _, purchased, err := tx.GetReceipt(reviewerID, listingID); err != nil {
			return fmt.Errorf("check receipt: %w", err)
		} else if !purchased {
			return domain.ErrPaperNotPurchased
		}
		if !boundedNonEmpty(reviewPointer, domain.ReviewPointerMaxLen) {
			return domain.ErrReviewURLEmpty
		}
		if reviewerID == listing.AuthorID {
			return domain.ErrAuthorCantReviewSelf
		}
		reviewer, ok, err := tx.GetIdentity(reviewerID)
		if err != nil {
			return fmt.Errorf("fetch reviewer: %w", err)
		}
		if !ok {
			return domain.ErrIdentityNotFound
		}

		review = domain.PeerReview{
			ReviewerID:     reviewerID,
			ListingID:      listingID,
			ReviewPointer:  reviewPointer,
			Status:         domain.ReviewPending,
			ProposedReward: proposedReward,
			CreatedAt:      time.Now().UTC(),
		}
		if err := tx.CreateReview(review); err != nil {
			return err
		}
		if listing.Reviews, err = treasury.AddU32(listing.Reviews, 1); err != nil {
			return err
		}
		if reviewer.Reviewed, err = treasury.AddU16(reviewer.Reviewed, 1); err != nil {
			return err
		}
		if err := tx.SaveListing(listing); err != nil {
			return fmt.Errorf("save listing: %w", err)
		}
		return tx.SaveIdentity(reviewer)
	})
	if err != nil {
		return domain.PeerReview{}, err
	}
	return review, nil
}

// VerifyReview applies the author's accept/reject decision exactly once.
// Accepting settles the proposed reward from the author's wallet into the
// reviewer's vault, less the platform fee.
func (a *App) VerifyReview(ctx context.Context, callerID, reviewerID, listingID string, accept bool) (domain.PeerReview, error) {
	var review domain.PeerReview
	var ev events.Event
	err := a.store.InTx(ctx, func(tx store.Store) error {
		var ok bool
		var err error
		review, ok, err = tx.GetReview(reviewerID, listingID)
		if err != nil {
			return fmt.Errorf("fetch review: %w", err)
		}
		if !ok {
			return domain.ErrReviewNotFound
		}
		if review.Status != domain.ReviewPending {
			return domain.ErrReviewNotPending
		}
		listing, ok, err := tx.GetListing(listingID)
		if err != nil {
			return fmt.Errorf("fetch listing: %w", err)
		}
		if !ok {
			return domain.ErrListingNotFound
		}
		if callerID != listing.AuthorID {
			return domain.ErrUnauthorizedUpdate
		}

		if !accept {
			review.Status = domain.ReviewRejected
			ev = events.Event{Kind: events.KindReviewRejected, Actor: callerID, Listing: listingID}
			return tx.SaveReview(review)
		}

		reward := review.ProposedReward
		wallet, err := tx.GetBalance(domain.WalletOf(callerID))
		if err != nil {
			return fmt.Errorf("read author wallet: %w", err)
		}
		if wallet < reward {
			return domain.ErrInsufficientFundsInWallet
		}
		fee, net, err := treasury.Split(reward)
		if err != nil {
			return err
		}
		meta := map[string]string{"listing": listingID, "reviewer": reviewerID}
		if err := treasury.Transfer(tx, domain.WalletOf(callerID), domain.VaultOf(reviewerID), net, "review_reward", meta); err != nil {
			return err
		}
		if err := treasury.Transfer(tx, domain.WalletOf(callerID), domain.PlatformVault(), fee, "platform_fee", meta); err != nil {
			return err
		}
		reviewer, ok, err := tx.GetIdentity(reviewerID)
		if err != nil {
			return fmt.Errorf("fetch reviewer: %w", err)
		}
		if !ok {
			return domain.ErrIdentityNotFound
		}
		if reviewer.Earning, err = treasury.AddU64(reviewer.Earning, net); err != nil {
			return err
		}
		if err := tx.SaveIdentity(reviewer); err != nil {
			return fmt.Errorf("save reviewer: %w", err)
		}
		review.Status = domain.ReviewAccepted
		ev = events.Event{
			Kind:    events.KindReviewAccepted,
			Actor:   callerID,
			Listing: listingID,
			Amount:  reward,
			Fee:     fee,
		}
		return tx.SaveReview(review)
	})
	if err != nil {
		return domain.PeerReview{}, err
	}
	a.publish(ctx, ev)
	return review, nil
}

// Deposit credits the caller's own wallet; the on-ramp from outside funds.
func (a *App) Deposit(ctx context.Context, callerID string, amount uint64) (domain.Balances, error) {
	err := a.store.InTx(ctx, func(tx store.Store) error {
		if _, ok, err := tx.GetIdentity(callerID); err != nil {
			return fmt.Errorf("fetch identity: %w", err)
		} else if !ok {
			return domain.ErrIdentityNotFound
		}
		return treasury.Deposit(tx, domain.WalletOf(callerID), amount, "deposit", nil)
	})
	if err != nil {
		return domain.Balances{}, err
	}
	a.publish(ctx, events.Event{Kind: events.KindDeposit, Actor: callerID, Amount: amount})
	return a.Balances(callerID)
}

// Withdraw moves funds from the caller's vault to their wallet.
func (a *App) Withdraw(ctx context.Context, callerID string, amount uint64) (domain.Balances, error) {
	if amount == 0 {
		return domain.Balances{}, domain.ErrAmountInvalid
	}
	err := a.store.InTx(ctx, func(tx store.Store) error {
		return treasury.Transfer(tx, domain.VaultOf(callerID), domain.WalletOf(callerID), amount, "withdrawal", nil)
	})
	if err != nil {
		return domain.Balances{}, err
	}
	a.publish(ctx, events.Event{Kind: events.KindWithdrawal, Actor: callerID, Amount: amount})
	return a.Balances(callerID)
}

// AdminWithdraw moves funds from the platform vault to an administrator's
// wallet. Returns the remaining platform balance.
func (a *App) AdminWithdraw(ctx context.Context, callerID string, amount uint64) (uint64, error) {
	if !a.IsAdmin(callerID) {
		return 0, domain.ErrUnauthorizedAdmin
	}
	if amount == 0 {
		return 0, domain.ErrAmountInvalid
	}
	var remaining uint64
	err := a.store.InTx(ctx, func(tx store.Store) error {
		if err := treasury.Transfer(tx, domain.PlatformVault(), domain.WalletOf(callerID), amount, "admin_withdrawal", nil); err != nil {
			return err
		}
		var err error
		remaining, err = tx.GetBalance(domain.PlatformVault())
		return err
	})
	if err != nil {
		return 0, err
	}
	a.publish(ctx, events.Event{Kind: events.KindWithdrawal, Actor: callerID, Amount: amount})
	return remaining, nil
}

// Balances returns the caller's wallet and vault balances.
func (a *App) Balances(callerID string) (domain.Balances, error) {
	wallet, err := a.store.GetBalance(domain.WalletOf(callerID))
	if err != nil {
		return domain.Balances{}, fmt.Errorf("read wallet: %w", err)
	}
	vault, err := a.store.GetBalance(domain.VaultOf(callerID))
	if err != nil {
		return domain.Balances{}, fmt.Errorf("read vault: %w", err)
	}
	return domain.Balances{Wallet: wallet, Vault: vault}, nil
}

// PlatformBalance returns the platform vault balance; administrators only.
func (a *App) PlatformBalance(callerID string) (uint64, error) {
	if !a.IsAdmin(callerID) {
		return 0, domain.ErrUnauthorizedAdmin
	}
	return a.store.GetBalance(domain.PlatformVault())
}

// Journal returns the caller's ledger entries.
func (a *App) Journal(callerID string) ([]domain.LedgerEntry, error) {
	return a.store.LedgerEntriesFor(callerID)
}

// UploadArtifact stores an encrypted paper blob and returns its storage key.
func (a *App) UploadArtifact(ctx context.Context, callerID string, r io.Reader, size int64, contentType string) (string, error) {
	if a.artifacts == nil {
		return "", ErrArtifactsDisabled
	}
	key := "papers/" + callerID + "/" + util.NewID()
	if err := a.artifacts.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return key, nil
}

// ArtifactURL returns a presigned download URL for a listing's content.
// Only the author or a buyer holding a receipt may fetch it.
func (a *App) ArtifactURL(ctx context.Context, callerID, authorID string) (string, error) {
	if a.artifacts == nil {
		return "", ErrArtifactsDisabled
	}
	listing, ok, err := a.store.GetListing(authorID)
	if err != nil {
		return "", fmt.Errorf("fetch listing: %w", err)
	}
	if !ok {
		return "", domain.ErrListingNotFound
	}
	if callerID != listing.AuthorID {
		if _, purchased, err := a.store.GetReceipt(callerID, authorID); err != nil {
			return "", fmt.Errorf("check receipt: %w", err)
		} else if !purchased {
			return "", domain.ErrPaperNotPurchased
		}
	}
	url, err := a.artifacts.PresignGet(ctx, listing.ContentPointer, artifactURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign artifact: %w", err)
	}
	return url, nil
}

func (a *App) publish(ctx context.Context, ev events.Event) {
	if a.events == nil || ev.Kind == "" {
		return
	}
	ev.ID = uuid.NewString()
	ev.OccurredAt = time.Now().UTC()
	if err := a.events.Publish(ctx, ev); err != nil {
		util.LoggerFromContext(ctx).Warn("publish settlement event failed", "kind", ev.Kind, "err", err)
	}
}

func validateListingInput(in ListingInput) error {
	if !boundedNonEmpty(in.Title, domain.TitleMaxLen) {
		return domain.ErrPaperTitleInvalid
	}
	if !boundedNonEmpty(in.Description, domain.DescriptionMaxLen) {
		return domain.ErrPaperDescriptionInvalid
	}
	if !boundedNonEmpty(in.ContentPointer, domain.ContentPointerMaxLen) {
		return domain.ErrPaperURLInvalid
	}
	if !boundedNonEmpty(in.KeyMaterial, domain.KeyMaterialMaxLen) {
		return domain.ErrEncryptionKeyInvalid
	}
	if in.Price == 0 {
		return domain.ErrResearchPriceInvalid
	}
	return nil
}

// boundedNonEmpty checks a string against its non-empty/byte-length pair.
func boundedNonEmpty(s string, max int) bool {
	return len(s) > 0 && len(s) <= max
}
