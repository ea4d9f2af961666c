// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/auction"
)

// CurrentAuctionView is the current auction with its product catalog.
type CurrentAuctionView struct {
	Auction  *auction.Auction   `json:"auction"`
	Products []*auction.Product `json:"products"`
}

// CurrentAuctionHandler serves the storefront view: the auction with the
// latest (date, time) pair and everything on sale in it.
type CurrentAuctionHandler struct {
	auctions auction.Repository
}

// NewCurrentAuctionHandler creates a CurrentAuctionHandler.
func NewCurrentAuctionHandler(auctions auction.Repository) *CurrentAuctionHandler {
	return &CurrentAuctionHandler{auctions: auctions}
}

// GetCurrentAuction returns the latest auction with its products, or nil
// when no auctions exist yet.
func (h *CurrentAuctionHandler) GetCurrentAuction(ctx context.Context) (*CurrentAuctionView, error) {
	current, err := h.auctions.CurrentAuction(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	products, err := h.auctions.ListProductsForAuction(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	return &CurrentAuctionView{
		Auction:  current,
		Products: products,
	}, nil
}

// GetAuction returns one auction with its products.
func (h *CurrentAuctionHandler) GetAuction(ctx context.Context, id string) (*CurrentAuctionView, error) {
	a, err := h.auctions.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}

	products, err := h.auctions.ListProductsForAuction(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	return &CurrentAuctionView{
		Auction:  a,
		Products: products,
	}, nil
}

// ListAuctions returns all auctions in chronological order.
func (h *CurrentAuctionHandler) ListAuctions(ctx context.Context) ([]*auction.Auction, error) {
	return h.auctions.ListAuctions(ctx)
}

// ListSalesForProduct returns a product's sale history, newest first.
func (h *CurrentAuctionHandler) ListSalesForProduct(ctx context.Context, productID string) ([]*auction.SaleRecord, error) {
	if _, err := h.auctions.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return h.auctions.ListSalesForProduct(ctx, productID)
}

// ListSalesForStudent returns a student's purchase history, newest first.
func (h *CurrentAuctionHandler) ListSalesForStudent(ctx context.Context, studentID string) ([]*auction.SaleRecord, error) {
	return h.auctions.ListSalesForStudent(ctx, studentID)
}
