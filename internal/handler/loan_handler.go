package handler

import (
	"errors"
	"net/http"
	"strconv"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type LoanHandler struct {
	loanService service.LoanService
}

func NewLoanHandler(loanService service.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

func (h *LoanHandler) RegisterRoutes(router *gin.RouterGroup) {
	loans := router.Group("/api/loans")
	{
		loans.POST("", middleware.RequireAuth(), h.CreateLoan)
		loans.GET("", middleware.RequireAuth(), h.ListLoans)
		loans.GET("/user/history", middleware.RequireAuth(), h.ListMyLoans)
		loans.GET("/admin/overdue", middleware.RequireRole(model.RoleAdmin), h.ListOverdue)
		loans.GET("/:id", middleware.RequireAuth(), h.GetLoan)
		loans.PUT("/:id/return", middleware.RequireAuth(), h.SubmitReturn)
		loans.PUT("/:id/confirm", middleware.RequireRole(model.RoleAdmin), h.ConfirmReturn)
		loans.PUT("/:id/direct-return", middleware.RequireAuth(), h.DirectReturn)
		loans.POST("/:id/extend", middleware.RequireAuth(), h.ExtendLoan)
	}
}

// statusFromError maps the business-rule error taxonomy to HTTP statuses.
// Unknown errors are infrastructure failures and become 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrLoanNotFound), errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, service.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, service.ErrWrongState), errors.Is(err, service.ErrItemUnavailable):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidDate), errors.Is(err, service.ErrMissingEvidence):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFromError(err)
	c.JSON(status, response.Error(status, err.Error()))
}

func loanIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid loan ID"))
		return 0, false
	}
	return uint(id), true
}

// CreateLoan borrows an available item for the authenticated user
// @Summary      Create loan
// @Description  Borrows an available inventory item; the item is locked and flipped to on_loan atomically
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateLoanRequest  true  "Create Loan Payload"
// @Success      201      {object}  response.Response{data=service.LoanResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/loans [post]
func (h *LoanHandler) CreateLoan(c *gin.Context) {
	var req service.CreateLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := middleware.UserID(c)
	loan, err := h.loanService.CreateLoan(c.Request.Context(), userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessWithMessage(http.StatusCreated, "Loan created successfully", loan))
}

// ListLoans returns a paginated, filterable loan listing
// @Summary      List loans
// @Description  Retrieves loans filtered by status, borrower or item; overdue is shown as a derived display status
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        limit        query  int     false  "Items per page (default 10)"
// @Param        status       query  string  false  "Filter by persisted status"
// @Param        borrower_id  query  int     false  "Filter by borrower"
// @Param        item_id      query  int     false  "Filter by item"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/loans [get]
func (h *LoanHandler) ListLoans(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	borrowerID, _ := strconv.ParseUint(c.Query("borrower_id"), 10, 64)
	itemID, _ := strconv.ParseUint(c.Query("item_id"), 10, 64)

	filter := repository.LoanFilter{
		Status:     model.LoanStatus(c.Query("status")),
		BorrowerID: uint(borrowerID),
		ItemID:     uint(itemID),
		Page:       page,
		Limit:      limit,
	}

	loans, total, err := h.loanService.ListLoans(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"loans": loans,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

// ListMyLoans returns the authenticated user's borrowing history
// @Summary      My borrowing history
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Items per page (default 10)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/loans/user/history [get]
func (h *LoanHandler) ListMyLoans(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	userID := middleware.UserID(c)
	loans, total, err := h.loanService.ListUserLoans(c.Request.Context(), userID, page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"loans": loans,
		"total": total,
		"page":  page,
		"limit": limit,
	}))
}

// ListOverdue returns loans past their planned return date (admin only)
// @Summary      List overdue loans
// @Description  Loans still out whose planned return date is before today, oldest first
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.LoanResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/loans/admin/overdue [get]
func (h *LoanHandler) ListOverdue(c *gin.Context) {
	loans, err := h.loanService.ListOverdue(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loans))
}

// GetLoan returns one loan with its extension history
// @Summary      Get loan
// @Tags         loans
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      int  true  "Loan ID"
// @Success      200  {object}  response.Response{data=service.LoanDetailResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/loans/{id} [get]
func (h *LoanHandler) GetLoan(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}

	loan, err := h.loanService.GetLoan(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// SubmitReturn submits return evidence, moving the loan to pending_return
// @Summary      Submit return
// @Description  Borrower submits condition, note and photo evidence; late fee is computed against the planned return date
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                          true  "Loan ID"
// @Param        payload  body      service.SubmitReturnRequest  true  "Return Evidence Payload"
// @Success      200      {object}  response.Response{data=service.SubmitReturnResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/loans/{id}/return [put]
func (h *LoanHandler) SubmitReturn(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}

	var req service.SubmitReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := middleware.UserID(c)
	result, err := h.loanService.SubmitReturn(c.Request.Context(), id, userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithMessage(http.StatusOK, "Return submitted, awaiting confirmation", result))
}

// ConfirmReturn approves or rejects a submitted return (admin only)
// @Summary      Confirm or reject return
// @Description  Approval finalizes the return and frees the item; rejection clears the evidence and puts the loan back on_loan
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                           true  "Loan ID"
// @Param        payload  body      service.ConfirmReturnRequest  true  "Confirmation Payload"
// @Success      200      {object}  response.Response{data=service.LoanResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/loans/{id}/confirm [put]
func (h *LoanHandler) ConfirmReturn(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}

	var req service.ConfirmReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := middleware.UserID(c)
	role := middleware.UserRole(c)
	loan, err := h.loanService.ConfirmReturn(c.Request.Context(), id, userID, role, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, loan))
}

// DirectReturn performs the legacy single-step return
// @Summary      Direct return (legacy)
// @Description  Returns the item in one step without admin review; kept for compatibility with older clients
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                          true  "Loan ID"
// @Param        payload  body      service.DirectReturnRequest  true  "Return Payload"
// @Success      200      {object}  response.Response{data=service.DirectReturnResponse}
// @Failure      403      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/loans/{id}/direct-return [put]
func (h *LoanHandler) DirectReturn(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}

	var req service.DirectReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := middleware.UserID(c)
	role := middleware.UserRole(c)
	result, err := h.loanService.DirectReturn(c.Request.Context(), id, userID, role, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// ExtendLoan pushes the planned return date later
// @Summary      Extend loan
// @Description  Records an extension and updates the planned return date; the new date must be strictly later
// @Tags         loans
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      int                        true  "Loan ID"
// @Param        payload  body      service.ExtendLoanRequest  true  "Extension Payload"
// @Success      200      {object}  response.Response{data=service.ExtensionResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/loans/{id}/extend [post]
func (h *LoanHandler) ExtendLoan(c *gin.Context) {
	id, ok := loanIDParam(c)
	if !ok {
		return
	}

	var req service.ExtendLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID := middleware.UserID(c)
	ext, err := h.loanService.ExtendLoan(c.Request.Context(), id, userID, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, ext))
}
