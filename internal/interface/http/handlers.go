package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/bilim-hub/bilim-points-hub/internal/application/command"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/assignment"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/auction"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/news"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/points"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
	"github.com/bilim-hub/bilim-points-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR TRANSLATION
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps a domain error onto an HTTP status and error code.
// The mapping follows the error kind, not the error value, so new domain
// errors get sensible statuses without touching this table.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"

	switch {
	case shared.IsNotFound(err):
		status, code = http.StatusNotFound, "not_found"
	case shared.IsInvalidPrice(err):
		status, code = http.StatusUnprocessableEntity, "price_rejected"
	case shared.IsInsufficientFunds(err):
		status, code = http.StatusConflict, "insufficient_funds"
	case errors.Is(err, shared.ErrExpired):
		status, code = http.StatusUnprocessableEntity, "deadline_passed"
	case errors.Is(err, shared.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case shared.IsValidation(err):
		status, code = http.StatusBadRequest, "validation_failed"
	case shared.IsRetryable(err):
		status, code = http.StatusServiceUnavailable, "temporarily_unavailable"
		w.Header().Set("Retry-After", "1")
	}

	message := "An unexpected error occurred"
	var derr *shared.DomainError
	if status != http.StatusInternalServerError && errors.As(err, &derr) {
		message = derr.Message
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
	}

	writeJSONError(w, status, code, message)
}

// decodeBody decodes a JSON request body into dst, failing on unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}

// dateRangeFromQuery reads optional from/to query parameters (YYYY-MM-DD).
func dateRangeFromQuery(r *http.Request) points.DateRange {
	var dr points.DateRange
	if v := r.URL.Query().Get("from"); v != "" {
		dr.From = timeutil.ParseDate(v)
	}
	if v := r.URL.Query().Get("to"); v != "" {
		dr.To = timeutil.ParseDate(v)
	}
	return dr
}

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

type auctionDTO struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

type productDTO struct {
	ID         string `json:"id"`
	AuctionID  string `json:"auction_id"`
	Name       string `json:"name"`
	StartPoint int    `json:"start_point"`
	Amount     int    `json:"amount"`
	ImagePath  string `json:"image_path,omitempty"`
}

type saleDTO struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	StudentID string    `json:"student_id"`
	Price     int       `json:"price"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

type saleResultDTO struct {
	Sale         saleDTO `json:"sale"`
	BuyerBalance int     `json:"buyer_balance"`
}

type grantDTO struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	MentorID    string    `json:"mentor_id,omitempty"`
	PointTypeID string    `json:"point_type_id,omitempty"`
	Amount      int       `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

type grantResultDTO struct {
	Grant          grantDTO `json:"give_point"`
	StudentBalance int      `json:"student_balance"`
}

type pointTypeDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MaxPoint int    `json:"max_point"`
}

type submissionDTO struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	StudentID    string    `json:"student_id"`
	Description  string    `json:"description,omitempty"`
	Response     string    `json:"response,omitempty"`
	FilePath     string    `json:"file_path,omitempty"`
	Point        int       `json:"point"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type newsDTO struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	ImagePath string    `json:"image_path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type readStatusDTO struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	NewsID string    `json:"news_id"`
	IsRead bool      `json:"is_read"`
	ReadAt time.Time `json:"read_at"`
}

func toAuctionDTO(a *auction.Auction) auctionDTO {
	return auctionDTO{
		ID:          a.ID,
		Description: a.Description,
		Date:        a.Date.Format("2006-01-02"),
		Time:        a.Time.Format("15:04:05"),
	}
}

func toProductDTO(p *auction.Product) productDTO {
	return productDTO{
		ID:         p.ID,
		AuctionID:  p.AuctionID,
		Name:       p.Name,
		StartPoint: p.StartPoint,
		Amount:     p.Amount,
		ImagePath:  p.ImagePath,
	}
}

func toSaleDTO(s *auction.SaleRecord) saleDTO {
	return saleDTO{
		ID:        s.ID,
		ProductID: s.ProductID,
		StudentID: s.StudentID,
		Price:     s.Price,
		Date:      s.Date,
		CreatedAt: s.CreatedAt,
	}
}

func toGrantDTO(g *points.GrantRecord) grantDTO {
	return grantDTO{
		ID:          g.ID,
		StudentID:   g.StudentID,
		MentorID:    g.MentorID,
		PointTypeID: g.PointTypeID,
		Amount:      g.Amount,
		Description: g.Description,
		Date:        g.Date,
		CreatedAt:   g.CreatedAt,
	}
}

func toSubmissionDTO(sub *assignment.Submission) submissionDTO {
	return submissionDTO{
		ID:           sub.ID,
		AssignmentID: sub.AssignmentID,
		StudentID:    sub.StudentID,
		Description:  sub.Description,
		Response:     sub.Response,
		FilePath:     sub.FilePath,
		Point:        sub.Point,
		Status:       string(sub.Status),
		CreatedAt:    sub.CreatedAt,
	}
}

func toNewsDTO(n *news.Item) newsDTO {
	return newsDTO{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		ImagePath: n.ImagePath,
		CreatedAt: n.CreatedAt,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Route not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "bilim-points-hub",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"alive": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUCTION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	auctions, err := s.deps.Auctions.ListAuctions(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]auctionDTO, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, toAuctionDTO(a))
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{TotalCount: len(out)})
}

func (s *Server) handleGetCurrentAuction(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Auctions.GetCurrentAuction(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if view == nil {
		writeJSONError(w, http.StatusNotFound, "no_current_auction", "No auction is scheduled")
		return
	}
	s.writeAuctionView(w, r, view.Auction, view.Products)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Auctions.GetAuction(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeAuctionView(w, r, view.Auction, view.Products)
}

func (s *Server) writeAuctionView(w http.ResponseWriter, r *http.Request, a *auction.Auction, products []*auction.Product) {
	type auctionView struct {
		Auction  auctionDTO   `json:"auction"`
		Products []productDTO `json:"products"`
	}

	view := auctionView{
		Auction:  toAuctionDTO(a),
		Products: make([]productDTO, 0, len(products)),
	}
	for _, p := range products {
		view.Products = append(view.Products, toProductDTO(p))
	}
	writeJSONWithMeta(w, r, http.StatusOK, view, &ResponseMeta{TotalCount: len(view.Products)})
}

func (s *Server) handleListProductSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.deps.Auctions.ListSalesForProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeSales(w, r, sales)
}

func (s *Server) handleListStudentSales(w http.ResponseWriter, r *http.Request) {
	sales, err := s.deps.Auctions.ListSalesForStudent(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.writeSales(w, r, sales)
}

func (s *Server) writeSales(w http.ResponseWriter, r *http.Request, sales []*auction.SaleRecord) {
	out := make([]saleDTO, 0, len(sales))
	for _, sale := range sales {
		out = append(out, toSaleDTO(sale))
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{TotalCount: len(out)})
}

// ══════════════════════════════════════════════════════════════════════════════
// SALE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type createSaleRequest struct {
	ProductID string `json:"product_id"`
	StudentID string `json:"student_id"`
	Price     int    `json:"price"`
}

func (s *Server) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var result *command.SaleResult
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.deps.Purchases.CreateSale(ctx, command.CreateSaleCommand{
			ProductID: req.ProductID,
			StudentID: req.StudentID,
			Price:     req.Price,
		})
		return err
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, saleResultDTO{
		Sale:         toSaleDTO(result.Sale),
		BuyerBalance: result.BuyerBalance,
	})
}

type updateSaleRequest struct {
	Price     int    `json:"price"`
	ProductID string `json:"product_id,omitempty"`
	StudentID string `json:"student_id,omitempty"`
}

func (s *Server) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	var req updateSaleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var result *command.SaleResult
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.deps.Purchases.UpdateSale(ctx, command.UpdateSaleCommand{
			SaleID:       r.PathValue("id"),
			NewPrice:     req.Price,
			NewProductID: req.ProductID,
			NewStudentID: req.StudentID,
		})
		return err
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, saleResultDTO{
		Sale:         toSaleDTO(result.Sale),
		BuyerBalance: result.BuyerBalance,
	})
}

func (s *Server) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		return s.deps.Purchases.DeleteSale(ctx, r.PathValue("id"))
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// ══════════════════════════════════════════════════════════════════════════════
// GRANT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListGrants(w http.ResponseWriter, r *http.Request) {
	dr := dateRangeFromQuery(r)
	filter := points.ListFilter{
		StudentID:   r.URL.Query().Get("student_id"),
		MentorID:    r.URL.Query().Get("mentor_id"),
		PointTypeID: r.URL.Query().Get("point_type_id"),
		GroupID:     r.URL.Query().Get("group_id"),
		From:        dr.From,
		To:          dr.To,
		OrderBy:     getQueryParam(r, "order_by", ""),
		Limit:       getQueryParamInt(r, "limit", 50),
		Offset:      getQueryParamInt(r, "offset", 0),
	}

	grants, err := s.deps.Stats.ListGrants(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	total, err := s.deps.Stats.CountGrants(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]grantDTO, 0, len(grants))
	for _, g := range grants {
		out = append(out, toGrantDTO(g))
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{
		TotalCount: int(total),
		PageSize:   filter.Limit,
		HasMore:    filter.Offset+len(out) < int(total),
	})
}

type createGrantRequest struct {
	StudentID   string `json:"student_id"`
	MentorID    string `json:"mentor_id"`
	PointTypeID string `json:"point_type_id,omitempty"`
	Amount      int    `json:"amount"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
}

func (s *Server) handleCreateGrant(w http.ResponseWriter, r *http.Request) {
	var req createGrantRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var date time.Time
	if req.Date != "" {
		date = timeutil.ParseDate(req.Date)
	}

	var result *command.GrantResult
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.deps.Grants.CreateGrant(ctx, command.CreateGrantCommand{
			StudentID:   req.StudentID,
			MentorID:    req.MentorID,
			PointTypeID: req.PointTypeID,
			Amount:      req.Amount,
			Description: req.Description,
			Date:        date,
		})
		return err
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, grantResultDTO{
		Grant:          toGrantDTO(result.Grant),
		StudentBalance: result.StudentBalance,
	})
}

type updateGrantRequest struct {
	Amount    int    `json:"amount"`
	StudentID string `json:"student_id,omitempty"`
}

func (s *Server) handleUpdateGrant(w http.ResponseWriter, r *http.Request) {
	var req updateGrantRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var result *command.GrantResult
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		var err error
		result, err = s.deps.Grants.UpdateGrant(ctx, command.UpdateGrantCommand{
			GrantID:      r.PathValue("id"),
			NewAmount:    req.Amount,
			NewStudentID: req.StudentID,
		})
		return err
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, grantResultDTO{
		Grant:          toGrantDTO(result.Grant),
		StudentBalance: result.StudentBalance,
	})
}

func (s *Server) handleDeleteGrant(w http.ResponseWriter, r *http.Request) {
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		return s.deps.Grants.DeleteGrant(ctx, r.PathValue("id"))
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleListPointTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.deps.Stats.ListPointTypes(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]pointTypeDTO, 0, len(types))
	for _, t := range types {
		out = append(out, pointTypeDTO{ID: t.ID, Name: t.Name, MaxPoint: t.MaxPoint})
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{TotalCount: len(out)})
}

func (s *Server) handleResetPoints(w http.ResponseWriter, r *http.Request) {
	var affected int64
	err := s.retrier.Do(r.Context(), func(ctx context.Context) error {
		var err error
		affected, err = s.deps.Grants.ResetAllBalances(ctx)
		return err
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"students_reset": affected})
}

// ══════════════════════════════════════════════════════════════════════════════
// STATS & LEADERBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetStudentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Stats.GetStudentStats(r.Context(), r.PathValue("id"), dateRangeFromQuery(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetGroupStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Stats.GetGroupStats(r.Context(), r.PathValue("id"), dateRangeFromQuery(r))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, stats, &ResponseMeta{TotalCount: len(stats)})
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", 0)

	entries, err := s.deps.Leaderboard.GetTop(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, entries, &ResponseMeta{TotalCount: len(entries)})
}

func (s *Server) handleGetCourseAverages(w http.ResponseWriter, r *http.Request) {
	averages, err := s.deps.CourseAverages.GetCourseAverages(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, averages, &ResponseMeta{TotalCount: len(averages)})
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type submitWorkRequest struct {
	AssignmentID string `json:"assignment_id"`
	StudentID    string `json:"student_id"`
	Response     string `json:"response,omitempty"`
	Description  string `json:"description,omitempty"`
	FilePath     string `json:"file_path,omitempty"`
}

func (s *Server) handleSubmitWork(w http.ResponseWriter, r *http.Request) {
	var req submitWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := s.deps.Submissions.Submit(r.Context(), command.SubmitWorkCommand{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		Response:     req.Response,
		Description:  req.Description,
		FilePath:     req.FilePath,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSubmissionDTO(sub))
}

type gradeWorkRequest struct {
	Point int `json:"point"`
}

func (s *Server) handleGradeWork(w http.ResponseWriter, r *http.Request) {
	var req gradeWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := s.deps.Submissions.Grade(r.Context(), command.GradeWorkCommand{
		SubmissionID: r.PathValue("id"),
		Point:        req.Point,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSubmissionDTO(sub))
}

// ══════════════════════════════════════════════════════════════════════════════
// NEWS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.News.ListNews(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]newsDTO, 0, len(items))
	for _, n := range items {
		out = append(out, toNewsDTO(n))
	}
	writeJSONWithMeta(w, r, http.StatusOK, out, &ResponseMeta{TotalCount: len(out)})
}

func (s *Server) handleGetNews(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.News.GetNews(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNewsDTO(item))
}

func (s *Server) handleGetUnreadNews(w http.ResponseWriter, r *http.Request) {
	summary, err := s.deps.News.GetUnreadSummary(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type markReadRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleMarkNewsRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := s.deps.News.MarkRead(r.Context(), req.UserID, r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, readStatusDTO{
		ID:     status.ID,
		UserID: status.UserID,
		NewsID: status.NewsID,
		IsRead: status.IsRead,
		ReadAt: status.ReadAt,
	})
}
