package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"prismpapers/internal/app"
	"prismpapers/internal/util"
	"prismpapers/pkg/domain"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the marketplace HTTP endpoints.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app: cfg.App,
		mux: http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with middleware applied. Request
// ID assignment wraps the logger so the per-request log line carries it.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// identities
	s.mux.HandleFunc("/identities", s.handleRegister)
	s.mux.Handle("/identities/me", s.authenticated(s.handleMe))

	// listings
	s.mux.HandleFunc("/listings", s.handleListings)
	s.mux.HandleFunc("/listings/", s.handleListingByAuthor)

	// marketplace workflows
	s.mux.Handle("/purchases", s.authenticated(s.handlePurchase))
	s.mux.Handle("/reviews", s.authenticated(s.handleSubmitReview))
	s.mux.Handle("/reviews/verify", s.authenticated(s.handleVerifyReview))

	// funds
	s.mux.Handle("/wallet", s.authenticated(s.handleWallet))
	s.mux.Handle("/wallet/deposit", s.authenticated(s.handleDeposit))
	s.mux.Handle("/wallet/withdraw", s.authenticated(s.handleWithdraw))
	s.mux.Handle("/wallet/journal", s.authenticated(s.handleJournal))
	s.mux.Handle("/platform/vault", s.authenticated(s.handlePlatformVault))
	s.mux.Handle("/platform/withdraw", s.authenticated(s.handleAdminWithdraw))

	// encrypted paper content
	s.mux.Handle("/artifacts", s.authenticated(s.handleUploadArtifact))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.Identity)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, identity)
	})
}

func (s *Server) authorize(r *http.Request) (domain.Identity, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.Identity{}, false
	}
	return s.app.IdentityFromToken(token)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, token, err := s.app.Register(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{Token: token, Identity: identity})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listings, err := s.app.ListListings()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listings)
	case http.MethodPost:
		identity, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req listingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		listing, err := s.app.Publish(r.Context(), identity.ID, req.toInput())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, listing)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListingByAuthor(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/listings/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	authorID, sub, _ := strings.Cut(rest, "/")
	switch {
	case sub == "" && r.Method == http.MethodGet:
		listing, ok, err := s.app.GetListing(authorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "listing not found")
			return
		}
		writeJSON(w, http.StatusOK, listing)
	case sub == "" && r.Method == http.MethodPut:
		identity, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		var req listingRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		listing, err := s.app.UpdateListing(r.Context(), identity.ID, authorID, req.toInput())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listing)
	case sub == "artifact" && r.Method == http.MethodGet:
		identity, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		url, err := s.app.ArtifactURL(r.Context(), identity.ID, authorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req purchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	receipt, err := s.app.Purchase(r.Context(), identity.ID, req.Listing)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req submitReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := s.app.SubmitReview(r.Context(), identity.ID, req.Listing, req.ReviewPointer, req.ProposedReward)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleVerifyReview(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req verifyReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := s.app.VerifyReview(r.Context(), identity.ID, req.Reviewer, req.Listing, req.Accept)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	balances, err := s.app.Balances(identity.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Balances: balances, Identity: identity})
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	balances, err := s.app.Deposit(r.Context(), identity.ID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	balances, err := s.app.Withdraw(r.Context(), identity.ID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	entries, err := s.app.Journal(identity.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePlatformVault(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	balance, err := s.app.PlatformBalance(identity.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (s *Server) handleAdminWithdraw(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	remaining, err := s.app.AdminWithdraw(r.Context(), identity.ID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"remaining": remaining})
}

func (s *Server) handleUploadArtifact(w http.ResponseWriter, r *http.Request, identity domain.Identity) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	key, err := s.app.UploadArtifact(r.Context(), identity.ID, r.Body, r.ContentLength, r.Header.Get("Content-Type"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"storageKey": key})
}

// writeDomainError maps the error taxonomy onto HTTP status codes so clients
// can tell bad input from missing funds from state conflicts.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUserNameInvalid),
		errors.Is(err, domain.ErrPaperTitleInvalid),
		errors.Is(err, domain.ErrPaperDescriptionInvalid),
		errors.Is(err, domain.ErrPaperURLInvalid),
		errors.Is(err, domain.ErrEncryptionKeyInvalid),
		errors.Is(err, domain.ErrReviewURLEmpty),
		errors.Is(err, domain.ErrResearchPriceInvalid),
		errors.Is(err, domain.ErrAmountInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorizedAdmin),
		errors.Is(err, domain.ErrUnauthorizedUpdate),
		errors.Is(err, domain.ErrAuthorCantBuySelf),
		errors.Is(err, domain.ErrAuthorCantReviewSelf):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInsufficientFundsInWallet),
		errors.Is(err, domain.ErrInsufficientFundsInVault):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrIdentityExists),
		errors.Is(err, domain.ErrListingExists),
		errors.Is(err, domain.ErrAlreadyPurchased),
		errors.Is(err, domain.ErrAlreadyReviewed),
		errors.Is(err, domain.ErrReviewNotPending),
		errors.Is(err, domain.ErrPaperNotPurchased):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrIdentityNotFound),
		errors.Is(err, domain.ErrListingNotFound),
		errors.Is(err, domain.ErrReviewNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrArtifactsDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
