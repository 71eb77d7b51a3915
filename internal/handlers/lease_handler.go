package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nyumba/nyumba-api/internal/middleware"
	"github.com/nyumba/nyumba-api/internal/repository"
	"github.com/nyumba/nyumba-api/internal/services"
)

type LeaseHandler struct {
	leaseService   *services.LeaseService
	depositService *services.DepositService
}

func NewLeaseHandler(leaseService *services.LeaseService, depositService *services.DepositService) *LeaseHandler {
	return &LeaseHandler{
		leaseService:   leaseService,
		depositService: depositService,
	}
}

// @Summary List Leases
// @Description Get a paginated list of leases
// @Tags Leases
// @Accept json
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status"
// @Param property_id query string false "Filter by property"
// @Param tenant_id query string false "Filter by tenant"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /leases [get]
func (h *LeaseHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if query.PerPage > 100 {
		query.PerPage = 100
	}
	query.Filters["status"] = c.Query("status")
	query.Filters["property_id"] = c.Query("property_id")
	query.Filters["tenant_id"] = c.Query("tenant_id")

	leases, total, err := h.leaseService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []interface{}
	for i := range leases {
		responses = append(responses, leases[i].ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"leases": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Show Lease
// @Description Get a single lease with its property, tenant and deposit history
// @Tags Leases
// @Produce json
// @Param id path int true "Lease ID"
// @Success 200 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases/{id} [get]
func (h *LeaseHandler) Show(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	lease, err := h.leaseService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lease.ToResponse())
}

type createLeaseRequest struct {
	PropertyID    uint   `json:"property_id" binding:"required"`
	TenantID      uint   `json:"tenant_id" binding:"required"`
	LandlordID    uint   `json:"landlord_id" binding:"required"`
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date"`
	RentAmount    int64  `json:"rent_amount" binding:"required"`
	RentCurrency  string `json:"rent_currency"`
	RentFrequency string `json:"rent_frequency"`
	DueDay        int    `json:"due_day" binding:"required"`
	DepositAmount int64  `json:"deposit_amount"`
}

// @Summary Create Lease
// @Description Open a lease and issue its first invoice
// @Tags Leases
// @Accept json
// @Produce json
// @Param lease body createLeaseRequest true "Lease details"
// @Success 201 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases [post]
func (h *LeaseHandler) Create(c *gin.Context) {
	var req createLeaseRequest
	if err := BindNestedOrFlat(c, "lease", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must have format YYYY-MM-DD"})
		return
	}

	var endDate *time.Time
	if req.EndDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must have format YYYY-MM-DD"})
			return
		}
		endDate = &parsed
	}

	lease, err := h.leaseService.Create(c.Request.Context(), services.CreateLeaseCommand{
		PropertyID:    req.PropertyID,
		TenantID:      req.TenantID,
		LandlordID:    req.LandlordID,
		StartDate:     startDate,
		EndDate:       endDate,
		RentAmount:    req.RentAmount,
		RentCurrency:  req.RentCurrency,
		RentFrequency: req.RentFrequency,
		DueDay:        req.DueDay,
		DepositAmount: req.DepositAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lease.ToResponse())
}

type terminateLeaseRequest struct {
	Reason string `json:"reason"`
}

// @Summary Terminate Lease
// @Description Close a lease before its end date
// @Tags Leases
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param body body terminateLeaseRequest false "Termination reason"
// @Success 200 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases/{id}/terminate [post]
func (h *LeaseHandler) Terminate(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	var req terminateLeaseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	lease, err := h.leaseService.Terminate(c.Request.Context(), uint(id), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lease.ToResponse())
}

type renewLeaseRequest struct {
	NewEndDate string `json:"new_end_date" binding:"required"`
	RentAmount int64  `json:"rent_amount"`
}

// @Summary Renew Lease
// @Description Extend a lease, optionally at a new rent
// @Tags Leases
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param body body renewLeaseRequest true "Renewal details"
// @Success 200 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases/{id}/renew [post]
func (h *LeaseHandler) Renew(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	var req renewLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newEndDate, err := time.Parse("2006-01-02", req.NewEndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "new_end_date must have format YYYY-MM-DD"})
		return
	}

	lease, err := h.leaseService.Renew(c.Request.Context(), services.RenewLeaseCommand{
		LeaseID:    uint(id),
		NewEndDate: newEndDate,
		RentAmount: req.RentAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lease.ToResponse())
}

type rentIncreaseRequest struct {
	NewRentAmount int64 `json:"new_rent_amount" binding:"required"`
}

// @Summary Rent Increase
// @Description Raise the rent for future invoices
// @Tags Leases
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param body body rentIncreaseRequest true "New rent"
// @Success 200 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases/{id}/rent_increase [post]
func (h *LeaseHandler) RentIncrease(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	var req rentIncreaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lease, err := h.leaseService.RentIncrease(c.Request.Context(), services.RentIncreaseCommand{
		LeaseID:       uint(id),
		NewRentAmount: req.NewRentAmount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lease.ToResponse())
}

type depositMovementRequest struct {
	Amount int64  `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// @Summary Deduct Deposit
// @Description Deduct an amount from the lease's deposit balance
// @Tags Deposits
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param body body depositMovementRequest true "Deduction details"
// @Success 200 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases/{id}/deposit/deduct [post]
func (h *LeaseHandler) DeductDeposit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	var req depositMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.GetUserID(c)

	lease, err := h.depositService.Deduct(c.Request.Context(), services.DeductDepositCommand{
		LeaseID: uint(id),
		Amount:  req.Amount,
		Reason:  req.Reason,
		ActorID: actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lease.ToResponse())
}

// @Summary Refund Deposit
// @Description Return part of the deposit to the tenant
// @Tags Deposits
// @Accept json
// @Produce json
// @Param id path int true "Lease ID"
// @Param body body depositMovementRequest true "Refund details"
// @Success 200 {object} models.LeaseResponse
// @Security BearerAuth
// @Router /leases/{id}/deposit/refund [post]
func (h *LeaseHandler) RefundDeposit(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	var req depositMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.GetUserID(c)

	lease, err := h.depositService.Refund(c.Request.Context(), services.RefundDepositCommand{
		LeaseID: uint(id),
		Amount:  req.Amount,
		Reason:  req.Reason,
		ActorID: actor,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lease.ToResponse())
}

// @Summary Deposit History
// @Description Get the lease's deposit ledger, oldest first
// @Tags Deposits
// @Produce json
// @Param id path int true "Lease ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /leases/{id}/deposit/history [get]
func (h *LeaseHandler) DepositHistory(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lease id"})
		return
	}

	entries, err := h.depositService.History(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
