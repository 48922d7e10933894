package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"qurilish/services"
)

// ProcessPaymentRequest прием платежа: monthly в конкретный месяц, custom по очереди
type ProcessPaymentRequest struct {
	PaymentType string          `json:"payment_type" validate:"required,oneof=monthly custom"`
	LineID      uint            `json:"payment_id" validate:"required_if=PaymentType monthly"`
	Amount      decimal.Decimal `json:"amount"`
}

// BulkUpdateRequest правка нескольких месяцев графика
type BulkUpdateRequest struct {
	Payments []services.LineEdit `json:"payments" validate:"required,min=1,dive"`
}

// MonthsCountRequest новое количество месяцев рассрочки
type MonthsCountRequest struct {
	Months int `json:"new_months_count"`
}

// ContractController обрабатывает запросы по договорам и графикам платежей
type ContractController struct {
	contractService *services.ContractService
	scheduleService *services.ScheduleService
	reportService   *services.ReportService
	validator       *validator.Validate
	log             *zap.Logger
}

// NewContractController создает новый экземпляр ContractController
func NewContractController(
	contractService *services.ContractService,
	scheduleService *services.ScheduleService,
	reportService *services.ReportService,
	validate *validator.Validate,
	log *zap.Logger,
) *ContractController {
	return &ContractController{
		contractService: contractService,
		scheduleService: scheduleService,
		reportService:   reportService,
		validator:       validate,
		log:             log.Named("contract"),
	}
}

// RegisterRoutes регистрирует маршруты контроллера
func (c *ContractController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/contracts", c.ListContracts)
	rg.POST("/contracts", c.CreateContract)
	rg.GET("/contracts/:id", c.GetContract)
	rg.PUT("/contracts/:id", c.UpdateContract)
	rg.DELETE("/contracts/:id", c.DeleteContract)

	rg.GET("/contracts/:id/payment-schedule", c.GetSchedule)
	rg.POST("/contracts/:id/process-payment", c.ProcessPayment)
	rg.POST("/contracts/:id/bulk-update-payments", c.BulkUpdatePayments)
	rg.POST("/contracts/:id/update-months-count", c.UpdateMonthsCount)
	rg.GET("/contracts/:id/schedule.xml", c.ScheduleXML)
	rg.GET("/contracts/:id/schedule.xlsx", c.ScheduleXLSX)
}

// ListContracts фильтры: q, city, building, debt, status (код 0..3), page, page_size
func (c *ContractController) ListContracts(ctx *gin.Context) {
	filter := services.ContractFilter{
		Q:          ctx.Query("q"),
		CityID:     queryUint(ctx, "city"),
		BuildingID: queryUint(ctx, "building"),
		Page:       queryInt(ctx, "page"),
		PageSize:   queryInt(ctx, "page_size"),
	}
	if v := ctx.Query("debt"); v != "" {
		debt, err := strconv.ParseBool(v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "параметр debt должен быть true или false", "code": "validation"})
			return
		}
		filter.Debt = &debt
	}
	if code := ctx.Query("status"); code != "" {
		status, ok := services.ContractStatusByCode[code]
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "неизвестный код статуса: " + code, "code": "validation"})
			return
		}
		filter.Status = status
	}

	contracts, err := c.contractService.ListContracts(ctx.Request.Context(), filter)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, contracts)
}

func (c *ContractController) GetContract(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	contract, err := c.contractService.GetContract(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, contract)
}

func (c *ContractController) CreateContract(ctx *gin.Context) {
	var req services.CreateContractRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	contract, err := c.contractService.CreateContract(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, contract)
}

func (c *ContractController) UpdateContract(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.UpdateContractRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	contract, err := c.contractService.UpdateContract(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, contract)
}

func (c *ContractController) DeleteContract(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.contractService.DeleteContract(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *ContractController) GetSchedule(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	state, err := c.scheduleService.GetSchedule(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *ContractController) ProcessPayment(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req ProcessPaymentRequest
	if !bind(ctx, c.validator, &req) {
		return
	}

	var lineID *uint
	if req.PaymentType == "monthly" {
		lineID = &req.LineID
	}
	result, err := c.scheduleService.ApplyPayment(ctx.Request.Context(), id, lineID, req.Amount)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (c *ContractController) BulkUpdatePayments(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req BulkUpdateRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	state, err := c.scheduleService.BulkEditLines(ctx.Request.Context(), id, req.Payments)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *ContractController) UpdateMonthsCount(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req MonthsCountRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	state, err := c.scheduleService.ChangeMonthCount(ctx.Request.Context(), id, req.Months)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *ContractController) ScheduleXML(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := c.reportService.WriteScheduleXML(ctx.Request.Context(), id, &buf); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	sendFile(ctx, fmt.Sprintf("tolov_grafigi_%d.xml", id), "application/xml; charset=utf-8", buf.Bytes())
}

func (c *ContractController) ScheduleXLSX(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := c.reportService.WriteScheduleXLSX(ctx.Request.Context(), id, &buf); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	sendFile(ctx, fmt.Sprintf("tolov_grafigi_%d.xlsx", id), xlsxContentType, buf.Bytes())
}
