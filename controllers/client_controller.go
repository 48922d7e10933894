package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"qurilish/services"
)

// ClientController обрабатывает запросы по клиентам
type ClientController struct {
	clientService *services.ClientService
	validator     *validator.Validate
	log           *zap.Logger
}

// NewClientController создает новый экземпляр ClientController
func NewClientController(clientService *services.ClientService, validate *validator.Validate, log *zap.Logger) *ClientController {
	return &ClientController{
		clientService: clientService,
		validator:     validate,
		log:           log.Named("client"),
	}
}

// RegisterRoutes регистрирует маршруты контроллера
func (c *ClientController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/clients", c.ListClients)
	rg.POST("/clients", c.CreateClient)
	rg.POST("/clients/send-sms", c.SendSMS)
	rg.GET("/clients/:id", c.GetClient)
	rg.PUT("/clients/:id", c.UpdateClient)
	rg.DELETE("/clients/:id", c.DeleteClient)
}

// ListClients поиск по search, фильтр по коду источника heard (0..4)
func (c *ClientController) ListClients(ctx *gin.Context) {
	filter := services.ClientFilter{
		Search:   ctx.Query("search"),
		Page:     queryInt(ctx, "page"),
		PageSize: queryInt(ctx, "page_size"),
	}
	if code := ctx.Query("heard"); code != "" {
		heard, ok := services.HeardByCode[code]
		if !ok {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "неизвестный код источника: " + code, "code": "validation"})
			return
		}
		filter.Heard = heard
	}

	clients, err := c.clientService.ListClients(ctx.Request.Context(), filter)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, clients)
}

func (c *ClientController) GetClient(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	client, err := c.clientService.GetClient(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, client)
}

func (c *ClientController) CreateClient(ctx *gin.Context) {
	var req services.ClientRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	client, err := c.clientService.CreateClient(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, client)
}

func (c *ClientController) UpdateClient(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.ClientRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	client, err := c.clientService.UpdateClient(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, client)
}

func (c *ClientController) DeleteClient(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.clientService.DeleteClient(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SendSMS рассылает сообщение клиентам
func (c *ClientController) SendSMS(ctx *gin.Context) {
	var req services.SendSMSRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	sent, err := c.clientService.SendSMS(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"sent": sent})
}
