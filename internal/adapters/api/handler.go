package api

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/avelazquez/remate/internal/adjudications"
	"github.com/avelazquez/remate/internal/auctions"
	"github.com/avelazquez/remate/internal/bids"
	"github.com/avelazquez/remate/pkg/auth"
)

// Handler exposes the auction core over JSON HTTP.
type Handler struct {
	auctionService *auctions.Service
	bidService     *bids.Service
	adjService     *adjudications.Service
}

// NewHandler creates a new API handler
func NewHandler(auctionService *auctions.Service, bidService *bids.Service, adjService *adjudications.Service) *Handler {
	return &Handler{
		auctionService: auctionService,
		bidService:     bidService,
		adjService:     adjService,
	}
}

// Register mounts the routes behind the auth middleware.
func (h *Handler) Register(app *fiber.App, authMiddleware fiber.Handler) {
	v1 := app.Group("/v1", authMiddleware)
	v1.Post("/auctions", h.CreateAuction)
	v1.Get("/auctions", h.ListAuctions)
	v1.Get("/auctions/:id", h.GetAuction)
	v1.Get("/auctions/:id/bids", h.ListBids)
	v1.Post("/auctions/:id/bids", h.PlaceBid)
	v1.Post("/auctions/:id/adjudication", h.Adjudicate)
}

type auctionResponse struct {
	ID                 uuid.UUID `json:"id"`
	VehiclePlate       string    `json:"vehicle_plate"`
	VehicleDescription string    `json:"vehicle_description"`
	BasePrice          int64     `json:"base_price"`
	CurrentPrice       *int64    `json:"current_price"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Status             string    `json:"status"`
	StatusLabel        string    `json:"status_label"`
	StatusColor        string    `json:"status_color"`
	AppraiserID        uuid.UUID `json:"appraiser_id"`
}

func toAuctionResponse(a *auctions.Auction) auctionResponse {
	return auctionResponse{
		ID:                 a.ID,
		VehiclePlate:       a.VehiclePlate,
		VehicleDescription: a.VehicleDescription,
		BasePrice:          a.BasePrice,
		CurrentPrice:       a.CurrentPrice,
		StartDate:          a.StartDate,
		EndDate:            a.EndDate,
		Status:             string(a.Status),
		StatusLabel:        a.Status.Label(),
		StatusColor:        a.Status.Color(),
		AppraiserID:        a.AppraiserID,
	}
}

type createAuctionRequest struct {
	VehiclePlate       string    `json:"vehicle_plate"`
	VehicleDescription string    `json:"vehicle_description"`
	BasePrice          int64     `json:"base_price"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	AppraiserID        uuid.UUID `json:"appraiser_id"`
}

// CreateAuction registers a new auction. Admin only.
func (h *Handler) CreateAuction(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if !hasRole(claims, adjudications.RoleAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}

	var req createAuctionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	auction, err := h.auctionService.CreateAuction(c.Context(), auctions.CreateAuctionCommand{
		VehiclePlate:       req.VehiclePlate,
		VehicleDescription: req.VehicleDescription,
		BasePrice:          req.BasePrice,
		StartDate:          req.StartDate,
		EndDate:            req.EndDate,
		AppraiserID:        req.AppraiserID,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toAuctionResponse(auction))
}

// ListAuctions returns auctions with limit/offset pagination.
func (h *Handler) ListAuctions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	result, err := h.auctionService.ListAuctions(c.Context(), limit, offset)
	if err != nil {
		return h.mapError(c, err)
	}

	out := make([]auctionResponse, 0, len(result))
	for _, a := range result {
		out = append(out, toAuctionResponse(a))
	}
	return c.JSON(fiber.Map{"auctions": out})
}

// GetAuction returns one auction.
func (h *Handler) GetAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}

	auction, err := h.auctionService.GetAuction(c.Context(), auctionID)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(toAuctionResponse(auction))
}

type bidResponse struct {
	ID         uuid.UUID `json:"id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	ResellerID uuid.UUID `json:"reseller_id"`
	Amount     int64     `json:"amount"`
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListBids returns the bid history of an auction, newest first.
func (h *Handler) ListBids(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}

	result, err := h.bidService.ListBids(c.Context(), auctionID)
	if err != nil {
		return h.mapError(c, err)
	}

	out := make([]bidResponse, 0, len(result))
	for _, b := range result {
		out = append(out, bidResponse{
			ID:         b.ID,
			AuctionID:  b.AuctionID,
			ResellerID: b.ResellerID,
			Amount:     b.Amount,
			Comments:   b.Comments,
			CreatedAt:  b.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"bids": out})
}

type placeBidRequest struct {
	Amount   int64  `json:"amount"`
	Comments string `json:"comments"`
}

// PlaceBid places a bid on behalf of the authenticated reseller.
func (h *Handler) PlaceBid(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	resellerID, err := claims.UserID()
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid subject in token"})
	}

	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}

	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	bid, err := h.bidService.PlaceBid(c.Context(), bids.PlaceBidCommand{
		AuctionID:  auctionID,
		ResellerID: resellerID,
		Amount:     req.Amount,
		Comments:   req.Comments,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(bidResponse{
		ID:         bid.ID,
		AuctionID:  bid.AuctionID,
		ResellerID: bid.ResellerID,
		Amount:     bid.Amount,
		Comments:   bid.Comments,
		CreatedAt:  bid.CreatedAt,
	})
}

type adjudicateRequest struct {
	Decision string `json:"decision"` // accept | reject
	Notes    string `json:"notes"`
}

type adjudicationResponse struct {
	ID         uuid.UUID `json:"id"`
	AuctionID  uuid.UUID `json:"auction_id"`
	ResellerID uuid.UUID `json:"reseller_id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Adjudicate records the appraiser's accept/reject decision.
func (h *Handler) Adjudicate(c *fiber.Ctx) error {
	claims, ok := auth.ClaimsFromCtx(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	actorID, err := claims.UserID()
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid subject in token"})
	}

	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}

	var req adjudicateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	cmd := adjudications.DecideCommand{
		AuctionID: auctionID,
		Actor:     adjudications.Actor{ID: actorID, Roles: claims.Roles},
		Notes:     req.Notes,
	}

	var adjudication *adjudications.Adjudication
	switch req.Decision {
	case "accept":
		adjudication, err = h.adjService.Accept(c.Context(), cmd)
	case "reject":
		adjudication, err = h.adjService.Reject(c.Context(), cmd)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "decision must be accept or reject"})
	}
	if err != nil {
		return h.mapError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(adjudicationResponse{
		ID:         adjudication.ID,
		AuctionID:  adjudication.AuctionID,
		ResellerID: adjudication.ResellerID,
		Status:     string(adjudication.Status),
		Notes:      adjudication.Notes,
		CreatedAt:  adjudication.CreatedAt,
	})
}

// mapError translates domain sentinels into HTTP statuses.
func (h *Handler) mapError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auctions.ErrAuctionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bids.ErrAuctionClosed),
		errors.Is(err, adjudications.ErrInvalidState),
		errors.Is(err, adjudications.ErrNoBids):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bids.ErrBidTooLow),
		errors.Is(err, bids.ErrInvalidBidAmount),
		errors.Is(err, auctions.ErrInvalidBasePrice),
		errors.Is(err, auctions.ErrInvalidSchedule):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, adjudications.ErrUnauthorized):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, bids.ErrConcurrentBid):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "auction is busy, retry the bid"})
	default:
		slog.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}

func hasRole(claims *auth.Claims, role string) bool {
	for _, r := range claims.Roles {
		if r == role {
			return true
		}
	}
	return false
}
