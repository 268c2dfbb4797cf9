package server

import (
	"prismpapers/internal/app"
	"prismpapers/pkg/domain"
)

type registerRequest struct {
	Name string `json:"name"`
}

type registerResponse struct {
	Token    string          `json:"token"`
	Identity domain.Identity `json:"identity"`
}

type listingRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Price          uint64 `json:"price"`
	ContentPointer string `json:"contentPointer"`
	KeyMaterial    string `json:"keyMaterial"`
}

func (r listingRequest) toInput() app.ListingInput {
	return app.ListingInput{
		Title:          r.Title,
		Description:    r.Description,
		Price:          r.Price,
		ContentPointer: r.ContentPointer,
		KeyMaterial:    r.KeyMaterial,
	}
}

type purchaseRequest struct {
	Listing string `json:"listing"`
}

type submitReviewRequest struct {
	Listing        string `json:"listing"`
	ReviewPointer  string `json:"reviewPointer"`
	ProposedReward uint64 `json:"proposedReward"`
}

type verifyReviewRequest struct {
	Reviewer string `json:"reviewer"`
	Listing  string `json:"listing"`
	Accept   bool   `json:"accept"`
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type walletResponse struct {
	Identity domain.Identity `json:"identity"`
	Balances domain.Balances `json:"balances"`
}
