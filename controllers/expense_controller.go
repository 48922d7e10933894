package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"qurilish/services"
)

// ExpenseController обрабатывает запросы по расходам и сводке
type ExpenseController struct {
	expenseService    *services.ExpenseService
	statisticsService *services.StatisticsService
	validator         *validator.Validate
	log               *zap.Logger
}

// NewExpenseController создает новый экземпляр ExpenseController
func NewExpenseController(expenseService *services.ExpenseService, statisticsService *services.StatisticsService, validate *validator.Validate, log *zap.Logger) *ExpenseController {
	return &ExpenseController{
		expenseService:    expenseService,
		statisticsService: statisticsService,
		validator:         validate,
		log:               log.Named("expense"),
	}
}

// RegisterRoutes регистрирует маршруты контроллера
func (c *ExpenseController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/expense-types", c.ListExpenseTypes)
	rg.POST("/expense-types", c.CreateExpenseType)
	rg.PUT("/expense-types/:id", c.UpdateExpenseType)
	rg.DELETE("/expense-types/:id", c.DeleteExpenseType)

	rg.GET("/expenses", c.ListExpenses)
	rg.POST("/expenses", c.CreateExpense)
	rg.GET("/expenses/summary", c.Summary)
	rg.GET("/expenses/:id", c.GetExpense)
	rg.PUT("/expenses/:id", c.UpdateExpense)
	rg.DELETE("/expenses/:id", c.DeleteExpense)

	rg.GET("/dashboard", c.Dashboard)
}

func (c *ExpenseController) ListExpenseTypes(ctx *gin.Context) {
	types, err := c.expenseService.ListExpenseTypes(ctx.Request.Context())
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, types)
}

func (c *ExpenseController) CreateExpenseType(ctx *gin.Context) {
	var req services.ExpenseTypeRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	expenseType, err := c.expenseService.CreateExpenseType(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, expenseType)
}

func (c *ExpenseController) UpdateExpenseType(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.ExpenseTypeRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	expenseType, err := c.expenseService.UpdateExpenseType(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, expenseType)
}

func (c *ExpenseController) DeleteExpenseType(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.expenseService.DeleteExpenseType(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func expenseFilter(ctx *gin.Context) services.ExpenseFilter {
	return services.ExpenseFilter{
		ExpenseTypeID: queryUint(ctx, "expense_type"),
		BuildingID:    queryUint(ctx, "building"),
	}
}

func (c *ExpenseController) ListExpenses(ctx *gin.Context) {
	expenses, err := c.expenseService.ListExpenses(ctx.Request.Context(), expenseFilter(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, expenses)
}

func (c *ExpenseController) GetExpense(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	expense, err := c.expenseService.GetExpense(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, expense)
}

func (c *ExpenseController) CreateExpense(ctx *gin.Context) {
	var req services.ExpenseRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	expense, err := c.expenseService.CreateExpense(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, expense)
}

func (c *ExpenseController) UpdateExpense(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.ExpenseRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	expense, err := c.expenseService.UpdateExpense(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, expense)
}

func (c *ExpenseController) DeleteExpense(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.expenseService.DeleteExpense(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *ExpenseController) Summary(ctx *gin.Context) {
	summary, err := c.expenseService.Summary(ctx.Request.Context(), expenseFilter(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

// Dashboard сводные показатели для главной страницы
func (c *ExpenseController) Dashboard(ctx *gin.Context) {
	dashboard, err := c.statisticsService.Dashboard(ctx.Request.Context())
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, dashboard)
}
