package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"qurilish/services"
)

// PropertyController обрабатывает запросы по городам, домам и квартирам
type PropertyController struct {
	propertyService *services.PropertyService
	validator       *validator.Validate
	log             *zap.Logger
}

// CreateUnitsRequest пакетное добавление квартир в дом
type CreateUnitsRequest struct {
	BuildingID uint                   `json:"building" validate:"required"`
	Units      []services.UnitRequest `json:"homes" validate:"required,min=1"`
}

// NewPropertyController создает новый экземпляр PropertyController
func NewPropertyController(propertyService *services.PropertyService, validate *validator.Validate, log *zap.Logger) *PropertyController {
	return &PropertyController{
		propertyService: propertyService,
		validator:       validate,
		log:             log.Named("property"),
	}
}

// RegisterRoutes регистрирует маршруты контроллера
func (c *PropertyController) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cities", c.ListCities)
	rg.POST("/cities", c.CreateCity)
	rg.PUT("/cities/:id", c.UpdateCity)
	rg.DELETE("/cities/:id", c.DeleteCity)

	rg.GET("/buildings", c.ListBuildings)
	rg.POST("/buildings", c.CreateBuilding)
	rg.GET("/buildings/:id", c.GetBuilding)
	rg.PUT("/buildings/:id", c.UpdateBuilding)
	rg.DELETE("/buildings/:id", c.DeleteBuilding)

	rg.GET("/units", c.ListUnits)
	rg.POST("/units", c.CreateUnits)
	rg.POST("/units/import", c.ImportUnits)
	rg.GET("/units/export", c.ExportUnits)
	rg.GET("/units/:id", c.GetUnit)
	rg.PUT("/units/:id", c.UpdateUnit)
	rg.DELETE("/units/:id", c.DeleteUnit)
	rg.POST("/units/:id/floor-plan", c.UploadFloorPlan)
}

func (c *PropertyController) ListCities(ctx *gin.Context) {
	cities, err := c.propertyService.ListCities(ctx.Request.Context())
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, cities)
}

func (c *PropertyController) CreateCity(ctx *gin.Context) {
	var req services.CityRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	city, err := c.propertyService.CreateCity(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, city)
}

func (c *PropertyController) UpdateCity(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.CityRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	city, err := c.propertyService.UpdateCity(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, city)
}

func (c *PropertyController) DeleteCity(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.propertyService.DeleteCity(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *PropertyController) ListBuildings(ctx *gin.Context) {
	buildings, err := c.propertyService.ListBuildings(ctx.Request.Context(), queryUint(ctx, "city"))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, buildings)
}

func (c *PropertyController) GetBuilding(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	building, err := c.propertyService.GetBuilding(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, building)
}

func (c *PropertyController) CreateBuilding(ctx *gin.Context) {
	var req services.BuildingRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	building, err := c.propertyService.CreateBuilding(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, building)
}

func (c *PropertyController) UpdateBuilding(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.BuildingRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	building, err := c.propertyService.UpdateBuilding(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, building)
}

func (c *PropertyController) DeleteBuilding(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.propertyService.DeleteBuilding(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func unitFilter(ctx *gin.Context) services.UnitFilter {
	return services.UnitFilter{
		CityID:     queryUint(ctx, "city"),
		BuildingID: queryUint(ctx, "building"),
		Entrance:   queryInt(ctx, "padez"),
		Status:     ctx.Query("status"),
	}
}

func (c *PropertyController) ListUnits(ctx *gin.Context) {
	units, err := c.propertyService.ListUnits(ctx.Request.Context(), unitFilter(ctx))
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, units)
}

func (c *PropertyController) GetUnit(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	unit, err := c.propertyService.GetUnit(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, unit)
}

// CreateUnits добавляет квартиры пачкой, ошибки по строкам возвращаются вместе с результатом
func (c *PropertyController) CreateUnits(ctx *gin.Context) {
	var req CreateUnitsRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	result, err := c.propertyService.CreateUnits(ctx.Request.Context(), req.BuildingID, req.Units)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, result)
}

func (c *PropertyController) UpdateUnit(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req services.UnitRequest
	if !bind(ctx, c.validator, &req) {
		return
	}
	unit, err := c.propertyService.UpdateUnit(ctx.Request.Context(), id, req)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, unit)
}

func (c *PropertyController) DeleteUnit(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.propertyService.DeleteUnit(ctx.Request.Context(), id); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// ImportUnits принимает Excel файл в поле file и дом в поле building
func (c *PropertyController) ImportUnits(ctx *gin.Context) {
	buildingID := queryUint(ctx, "building")
	if v, err := strconv.ParseUint(ctx.PostForm("building"), 10, 32); buildingID == 0 && err == nil {
		buildingID = uint(v)
	}
	if buildingID == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "поле building обязательно", "code": "validation"})
		return
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "файл не передан", "code": "invalid_file"})
		return
	}
	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "не удалось открыть файл", "code": "invalid_file"})
		return
	}
	defer file.Close()

	result, err := c.propertyService.ImportUnits(ctx.Request.Context(), buildingID, file)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusCreated, result)
}

func (c *PropertyController) ExportUnits(ctx *gin.Context) {
	var buf bytes.Buffer
	if err := c.propertyService.ExportUnits(ctx.Request.Context(), unitFilter(ctx), &buf); err != nil {
		respondError(ctx, c.log, err)
		return
	}
	sendFile(ctx, fmt.Sprintf("xonadonlar_%s.xlsx", time.Now().Format("2006-01-02")), xlsxContentType, buf.Bytes())
}

// UploadFloorPlan принимает изображение в поле image, вид в поле kind (plan или drawing)
func (c *PropertyController) UploadFloorPlan(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	kind := services.FloorPlanKind(ctx.DefaultPostForm("kind", string(services.FloorPlanLayout)))
	header, err := ctx.FormFile("image")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "изображение не передано", "code": "invalid_file"})
		return
	}
	file, err := header.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "не удалось открыть файл", "code": "invalid_file"})
		return
	}
	defer file.Close()

	unit, err := c.propertyService.SaveFloorPlan(ctx.Request.Context(), id, kind, header.Filename, file)
	if err != nil {
		respondError(ctx, c.log, err)
		return
	}
	ctx.JSON(http.StatusOK, unit)
}
