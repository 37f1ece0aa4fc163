package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hrit887/mern-challenge/internal/command"
	"github.com/hrit887/mern-challenge/internal/query"
	"github.com/hrit887/mern-challenge/internal/repository"
	"github.com/hrit887/mern-challenge/shared/cqrs"
	"github.com/hrit887/mern-challenge/shared/middleware"
	"github.com/hrit887/mern-challenge/shared/models"
	"github.com/hrit887/mern-challenge/shared/utils"
)

const seededMessage = "Database initialized with seed data."

// SeedCommander defines the write-side operation used by TransactionHandler.
type SeedCommander interface {
	InitializeDatabase(context.Context, cqrs.InitializeDatabaseCommand) (*command.SeedResult, error)
}

// TransactionQuerier defines the read-side operations used by TransactionHandler.
type TransactionQuerier interface {
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) (*models.TransactionPage, error)
	GetStatistics(context.Context, cqrs.MonthQuery) (*models.Statistics, error)
	GetPriceRanges(context.Context, cqrs.MonthQuery) ([]models.PriceRangeCount, error)
	GetCategoryBreakdown(context.Context, cqrs.MonthQuery) ([]models.CategoryCount, error)
	GetCombined(context.Context, cqrs.MonthQuery) (*models.CombinedView, error)
}

type TransactionHandler struct {
	commands SeedCommander
	queries  TransactionQuerier
}

type ListTransactionsRequest struct {
	Month   string `form:"month"`
	Search  string `form:"search"`
	Page    int    `form:"page,default=1" validate:"gte=1,lte=100000"`
	PerPage int    `form:"per_page,default=10" validate:"gte=1,lte=100"`
}

type MonthRequest struct {
	Month string `form:"month" validate:"required"`
}

func NewTransactionHandler(commands SeedCommander, queries TransactionQuerier) *TransactionHandler {
	return &TransactionHandler{commands: commands, queries: queries}
}

func (h *TransactionHandler) InitializeDatabase(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	_, err := h.commands.InitializeDatabase(c.Request.Context(), cqrs.InitializeDatabaseCommand{RequestedBy: userID})
	if err != nil {
		switch {
		case repository.IsTimeout(err):
			middleware.RespondWithServerError(c, http.StatusGatewayTimeout, "Timed out initializing database", err)
		case errors.Is(err, command.ErrSeedSource):
			middleware.RespondWithServerError(c, http.StatusInternalServerError, "Failed to fetch seed data", err)
		default:
			middleware.RespondWithServerError(c, http.StatusInternalServerError, "Failed to initialize database", err)
		}
		return
	}

	c.String(http.StatusOK, seededMessage)
}

func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var req ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	var month time.Month
	if req.Month != "" {
		parsed, err := utils.ParseMonth(req.Month)
		if err != nil {
			respondInvalidMonth(c)
			return
		}
		month = parsed
	}

	page, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		Month:   month,
		Search:  req.Search,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		respondQueryError(c, err, "Failed to list transactions")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *TransactionHandler) GetStatistics(c *gin.Context) {
	month, ok := bindMonth(c)
	if !ok {
		return
	}
	stats, err := h.queries.GetStatistics(c.Request.Context(), cqrs.MonthQuery{Month: month})
	if err != nil {
		respondQueryError(c, err, "Failed to compute statistics")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *TransactionHandler) GetBarChart(c *gin.Context) {
	month, ok := bindMonth(c)
	if !ok {
		return
	}
	bars, err := h.queries.GetPriceRanges(c.Request.Context(), cqrs.MonthQuery{Month: month})
	if err != nil {
		respondQueryError(c, err, "Failed to compute price ranges")
		return
	}
	c.JSON(http.StatusOK, bars)
}

func (h *TransactionHandler) GetPieChart(c *gin.Context) {
	month, ok := bindMonth(c)
	if !ok {
		return
	}
	categories, err := h.queries.GetCategoryBreakdown(c.Request.Context(), cqrs.MonthQuery{Month: month})
	if err != nil {
		respondQueryError(c, err, "Failed to compute category breakdown")
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (h *TransactionHandler) GetCombinedData(c *gin.Context) {
	month, ok := bindMonth(c)
	if !ok {
		return
	}
	view, err := h.queries.GetCombined(c.Request.Context(), cqrs.MonthQuery{Month: month})
	if err != nil {
		respondQueryError(c, err, "Failed to compute combined data")
		return
	}
	c.JSON(http.StatusOK, view)
}

// bindMonth reads the required month parameter. On failure it has already written a 400.
func bindMonth(c *gin.Context) (time.Month, bool) {
	var req MonthRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return 0, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return 0, false
	}
	month, err := utils.ParseMonth(req.Month)
	if err != nil {
		respondInvalidMonth(c)
		return 0, false
	}
	return month, true
}

func respondInvalidMonth(c *gin.Context) {
	middleware.RespondWithError(c, http.StatusBadRequest, "Invalid month: use a full month name such as March")
}

func respondQueryError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, query.ErrInvalidMonth):
		respondInvalidMonth(c)
	case errors.Is(err, query.ErrInvalidPagination):
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid pagination")
	case repository.IsTimeout(err):
		middleware.RespondWithServerError(c, http.StatusGatewayTimeout, message, err)
	default:
		middleware.RespondWithServerError(c, http.StatusInternalServerError, message, err)
	}
}
