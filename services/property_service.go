package services

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"qurilish/models"
)

// CityRequest данные города
type CityRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// BuildingRequest данные дома
type BuildingRequest struct {
	CityID    *uint  `json:"city"`
	Name      string `json:"name" validate:"required,max=150"`
	Code      string `json:"code" validate:"max=3"`
	Entrances int    `json:"padez" validate:"required,gt=0"`
	Floors    int    `json:"floor" validate:"required,gt=0"`
	// Apartments количество квартир в каждом подъезде
	Apartments []int  `json:"padez_home" validate:"dive,gte=0"`
	Location   string `json:"location"`
}

// UnitRequest данные квартиры
type UnitRequest struct {
	BuildingID uint            `json:"building"`
	Entrance   int             `json:"padez_number" validate:"required,gt=0"`
	Number     string          `json:"home_number" validate:"required,max=200"`
	Floor      int             `json:"home_floor" validate:"required,gt=0"`
	Rooms      int             `json:"xona" validate:"required,gt=0"`
	Area       decimal.Decimal `json:"field"`
	Price      decimal.Decimal `json:"price"`
}

// UnitFilter параметры списка квартир
type UnitFilter struct {
	CityID     uint
	BuildingID uint
	Entrance   int
	// Status occupied или free
	Status string
}

// ImportResult итог загрузки квартир из Excel
type ImportResult struct {
	Created []models.Unit `json:"homes"`
	Errors  []string      `json:"errors"`
}

// unitColumns колонки файла квартир
var unitColumns = []string{"price", "number", "entrance", "floor", "rooms", "area"}

// PropertyService управляет городами, домами и квартирами
type PropertyService struct {
	db       *gorm.DB
	mediaDir string
	maxWidth int
	log      *zap.Logger
}

// NewPropertyService создает новый экземпляр PropertyService
func NewPropertyService(db *gorm.DB, mediaDir string, maxWidth int, log *zap.Logger) *PropertyService {
	return &PropertyService{
		db:       db,
		mediaDir: mediaDir,
		maxWidth: maxWidth,
		log:      log.Named("property"),
	}
}

// ListCities возвращает все города
func (s *PropertyService) ListCities(ctx context.Context) ([]models.City, error) {
	var cities []models.City
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&cities).Error; err != nil {
		return nil, transient(err)
	}
	return cities, nil
}

// CreateCity добавляет город
func (s *PropertyService) CreateCity(ctx context.Context, req CityRequest) (*models.City, error) {
	city := &models.City{Name: strings.TrimSpace(req.Name)}
	if err := s.db.WithContext(ctx).Create(city).Error; err != nil {
		return nil, transient(err)
	}
	return city, nil
}

// UpdateCity переименовывает город
func (s *PropertyService) UpdateCity(ctx context.Context, id uint, req CityRequest) (*models.City, error) {
	var city models.City
	if err := s.db.WithContext(ctx).First(&city, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("город не найден"))
	}
	city.Name = strings.TrimSpace(req.Name)
	if err := s.db.WithContext(ctx).Save(&city).Error; err != nil {
		return nil, transient(err)
	}
	return &city, nil
}

// DeleteCity удаляет город без домов
func (s *PropertyService) DeleteCity(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var city models.City
		if err := tx.First(&city, id).Error; err != nil {
			return notFound(err, ErrNotFound.With("город не найден"))
		}

		var buildings int64
		if err := tx.Model(&models.Building{}).Where("city_id = ?", id).Count(&buildings).Error; err != nil {
			return transient(err)
		}
		if buildings > 0 {
			return ErrHasDependents.With("к городу привязаны дома (%d), сначала удалите их", buildings)
		}

		if err := tx.Delete(&city).Error; err != nil {
			return transient(err)
		}
		return nil
	})
}

// ListBuildings возвращает дома, при необходимости по городу
func (s *PropertyService) ListBuildings(ctx context.Context, cityID uint) ([]models.Building, error) {
	q := s.db.WithContext(ctx).Preload("City")
	if cityID != 0 {
		q = q.Where("city_id = ?", cityID)
	}

	var buildings []models.Building
	if err := q.Order("created_at DESC").Find(&buildings).Error; err != nil {
		return nil, transient(err)
	}
	return buildings, nil
}

// GetBuilding возвращает дом
func (s *PropertyService) GetBuilding(ctx context.Context, id uint) (*models.Building, error) {
	var building models.Building
	if err := s.db.WithContext(ctx).Preload("City").First(&building, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("дом не найден"))
	}
	return &building, nil
}

// CreateBuilding добавляет дом
func (s *PropertyService) CreateBuilding(ctx context.Context, req BuildingRequest) (*models.Building, error) {
	building := &models.Building{}
	if err := fillBuilding(building, req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkCity(tx, req.CityID); err != nil {
			return err
		}
		if err := tx.Create(building).Error; err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return building, nil
}

// UpdateBuilding меняет данные дома
func (s *PropertyService) UpdateBuilding(ctx context.Context, id uint, req BuildingRequest) (*models.Building, error) {
	var building models.Building
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&building, id).Error; err != nil {
			return notFound(err, ErrNotFound.With("дом не найден"))
		}
		if err := s.checkCity(tx, req.CityID); err != nil {
			return err
		}
		if err := fillBuilding(&building, req); err != nil {
			return err
		}
		if err := tx.Save(&building).Error; err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &building, nil
}

func (s *PropertyService) checkCity(tx *gorm.DB, cityID *uint) error {
	if cityID == nil {
		return nil
	}
	var city models.City
	if err := tx.First(&city, *cityID).Error; err != nil {
		return notFound(err, ErrNotFound.With("город не найден"))
	}
	return nil
}

func fillBuilding(b *models.Building, req BuildingRequest) error {
	if len(req.Apartments) > 0 && len(req.Apartments) != req.Entrances {
		return ErrValidation.With("количество квартир указано для %d подъездов из %d", len(req.Apartments), req.Entrances)
	}

	apartments, err := json.Marshal(req.Apartments)
	if err != nil {
		return ErrValidation.With("неверный список квартир по подъездам")
	}

	b.CityID = req.CityID
	b.Name = strings.TrimSpace(req.Name)
	b.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	b.Entrances = req.Entrances
	b.Floors = req.Floors
	b.Apartments = datatypes.JSON(apartments)
	b.Location = req.Location
	return nil
}

// DeleteBuilding удаляет дом без квартир
func (s *PropertyService) DeleteBuilding(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var building models.Building
		if err := tx.First(&building, id).Error; err != nil {
			return notFound(err, ErrNotFound.With("дом не найден"))
		}

		var units int64
		if err := tx.Model(&models.Unit{}).Where("building_id = ?", id).Count(&units).Error; err != nil {
			return transient(err)
		}
		if units > 0 {
			return ErrHasDependents.With("в доме есть квартиры (%d), сначала удалите их", units)
		}

		if err := tx.Delete(&building).Error; err != nil {
			return transient(err)
		}
		return nil
	})
}

// ListUnits возвращает квартиры по фильтру
func (s *PropertyService) ListUnits(ctx context.Context, f UnitFilter) ([]models.Unit, error) {
	q := s.db.WithContext(ctx).Model(&models.Unit{}).
		Joins("JOIN buildings ON buildings.id = units.building_id").
		Preload("Building")

	if f.CityID != 0 {
		q = q.Where("buildings.city_id = ?", f.CityID)
	}
	if f.BuildingID != 0 {
		q = q.Where("units.building_id = ?", f.BuildingID)
	}
	if f.Entrance != 0 {
		q = q.Where("units.entrance = ?", f.Entrance)
	}
	switch f.Status {
	case "occupied":
		q = q.Where("units.busy = ?", true)
	case "free":
		q = q.Where("units.busy = ?", false)
	}

	var units []models.Unit
	if err := q.Order("units.entrance ASC, units.floor ASC, units.id ASC").Find(&units).Error; err != nil {
		return nil, transient(err)
	}
	return units, nil
}

// GetUnit возвращает квартиру
func (s *PropertyService) GetUnit(ctx context.Context, id uint) (*models.Unit, error) {
	var unit models.Unit
	if err := s.db.WithContext(ctx).Preload("Building.City").First(&unit, id).Error; err != nil {
		return nil, notFound(err, ErrUnitNotFound)
	}
	return &unit, nil
}

// CreateUnits добавляет квартиры в дом. Ошибочные строки пропускаются
// и попадают в список ошибок, при отсутствии созданных квартир ничего не сохраняется.
func (s *PropertyService) CreateUnits(ctx context.Context, buildingID uint, reqs []UnitRequest) (*ImportResult, error) {
	result := &ImportResult{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var building models.Building
		if err := tx.First(&building, buildingID).Error; err != nil {
			return notFound(err, ErrNotFound.With("дом не найден"))
		}

		for i, req := range reqs {
			req.BuildingID = building.ID
			unit, err := newUnit(req, building)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("строка %d: %s", i+1, err.Error()))
				continue
			}
			if err := tx.Create(unit).Error; err != nil {
				return transient(err)
			}
			result.Created = append(result.Created, *unit)
		}

		if len(result.Created) == 0 {
			return ErrValidation.With("квартиры не созданы: %s", strings.Join(result.Errors, "; "))
		}

		// дом считается заполненным после добавления квартир
		if err := tx.Model(&building).Update("status", true).Error; err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("квартиры добавлены",
		zap.Uint("building_id", buildingID),
		zap.Int("created", len(result.Created)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func newUnit(req UnitRequest, building models.Building) (*models.Unit, error) {
	if req.Entrance < 1 || (building.Entrances > 0 && req.Entrance > building.Entrances) {
		return nil, ErrValidation.With("подъезд %d вне диапазона 1..%d", req.Entrance, building.Entrances)
	}
	if req.Floor < 1 || (building.Floors > 0 && req.Floor > building.Floors) {
		return nil, ErrValidation.With("этаж %d вне диапазона 1..%d", req.Floor, building.Floors)
	}
	if strings.TrimSpace(req.Number) == "" {
		return nil, ErrValidation.With("не указан номер квартиры")
	}
	if req.Rooms < 1 {
		return nil, ErrValidation.With("количество комнат должно быть больше 0")
	}
	if !req.Area.IsPositive() {
		return nil, ErrValidation.With("площадь должна быть больше 0")
	}
	if req.Price.IsNegative() {
		return nil, ErrValidation.With("цена не может быть отрицательной")
	}

	return &models.Unit{
		BuildingID: building.ID,
		Entrance:   req.Entrance,
		Number:     strings.TrimSpace(req.Number),
		Floor:      req.Floor,
		Rooms:      req.Rooms,
		Area:       req.Area.Round(2),
		Price:      req.Price.Round(2),
	}, nil
}

// UpdateUnit меняет данные квартиры. Занятость меняется только договорами.
func (s *PropertyService) UpdateUnit(ctx context.Context, id uint, req UnitRequest) (*models.Unit, error) {
	var unit models.Unit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&unit, id).Error; err != nil {
			return notFound(err, ErrUnitNotFound)
		}
		var building models.Building
		if err := tx.First(&building, unit.BuildingID).Error; err != nil {
			return notFound(err, ErrNotFound.With("дом не найден"))
		}

		updated, err := newUnit(req, building)
		if err != nil {
			return err
		}
		unit.Entrance = updated.Entrance
		unit.Number = updated.Number
		unit.Floor = updated.Floor
		unit.Rooms = updated.Rooms
		unit.Area = updated.Area
		unit.Price = updated.Price

		if err := tx.Model(&unit).
			Select("entrance", "number", "floor", "rooms", "area", "price").
			Updates(&unit).Error; err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// DeleteUnit удаляет квартиру без договоров
func (s *PropertyService) DeleteUnit(ctx context.Context, id uint) error {
	var unit models.Unit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&unit, id).Error; err != nil {
			return notFound(err, ErrUnitNotFound)
		}

		var contracts int64
		if err := tx.Model(&models.Contract{}).Where("unit_id = ?", id).Count(&contracts).Error; err != nil {
			return transient(err)
		}
		if contracts > 0 {
			return ErrHasDependents.With("на квартиру %s оформлены договоры (%d), сначала удалите их", unit.Number, contracts)
		}

		if err := tx.Delete(&unit).Error; err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.removeMedia(unit.FloorPlan)
	s.removeMedia(unit.FloorPlanDrawing)
	return nil
}

// ImportUnits загружает квартиры дома из Excel.
// Первая строка заголовок, колонки: цена, номер, подъезд, этаж, комнаты, площадь.
func (s *PropertyService) ImportUnits(ctx context.Context, buildingID uint, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, ErrInvalidFile.With("не удалось прочитать Excel файл: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, ErrInvalidFile.With("не удалось прочитать лист %q: %v", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrInvalidFile.With("в файле нет строк с квартирами")
	}

	var (
		reqs    []UnitRequest
		parsing []string
	)
	for i, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		req, err := parseUnitRow(row)
		if err != nil {
			parsing = append(parsing, fmt.Sprintf("строка %d: %s", i+2, err.Error()))
			continue
		}
		reqs = append(reqs, req)
	}

	if len(reqs) == 0 {
		return nil, ErrInvalidFile.With("квартиры не найдены: %s", strings.Join(parsing, "; "))
	}

	result, err := s.CreateUnits(ctx, buildingID, reqs)
	if err != nil {
		return nil, err
	}
	result.Errors = append(parsing, result.Errors...)
	return result, nil
}

func parseUnitRow(row []string) (UnitRequest, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	number := func(i int) string {
		v := strings.ReplaceAll(cell(i), " ", "")
		return strings.ReplaceAll(v, ",", ".")
	}

	var req UnitRequest

	price, err := decimal.NewFromString(number(0))
	if err != nil {
		return req, fmt.Errorf("неверная цена %q", cell(0))
	}
	entrance, err := strconv.Atoi(number(2))
	if err != nil {
		return req, fmt.Errorf("неверный подъезд %q", cell(2))
	}
	floor, err := strconv.Atoi(number(3))
	if err != nil {
		return req, fmt.Errorf("неверный этаж %q", cell(3))
	}
	rooms, err := strconv.Atoi(number(4))
	if err != nil {
		return req, fmt.Errorf("неверное количество комнат %q", cell(4))
	}
	area, err := decimal.NewFromString(number(5))
	if err != nil {
		return req, fmt.Errorf("неверная площадь %q", cell(5))
	}

	req.Price = price
	req.Number = cell(1)
	req.Entrance = entrance
	req.Floor = floor
	req.Rooms = rooms
	req.Area = area
	return req, nil
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ExportUnits выгружает квартиры в Excel в формате загрузки
// с дополнительными колонками дома, стоимости и занятости
func (s *PropertyService) ExportUnits(ctx context.Context, f UnitFilter, w io.Writer) error {
	units, err := s.ListUnits(ctx, f)
	if err != nil {
		return err
	}

	file := excelize.NewFile()
	defer file.Close()

	sheetName := "Xonadonlar"
	index, err := file.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("ошибка создания листа: %v", err)
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	headers := append(append([]string{}, unitColumns...), "building", "total_price", "busy")
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheetName, cell, header)
	}

	for i, u := range units {
		row := i + 2
		file.SetCellValue(sheetName, fmt.Sprintf("A%d", row), u.Price.InexactFloat64())
		file.SetCellValue(sheetName, fmt.Sprintf("B%d", row), u.Number)
		file.SetCellValue(sheetName, fmt.Sprintf("C%d", row), u.Entrance)
		file.SetCellValue(sheetName, fmt.Sprintf("D%d", row), u.Floor)
		file.SetCellValue(sheetName, fmt.Sprintf("E%d", row), u.Rooms)
		file.SetCellValue(sheetName, fmt.Sprintf("F%d", row), u.Area.InexactFloat64())
		if u.Building != nil {
			file.SetCellValue(sheetName, fmt.Sprintf("G%d", row), u.Building.Name)
		}
		file.SetCellValue(sheetName, fmt.Sprintf("H%d", row), u.TotalPrice().InexactFloat64())
		file.SetCellValue(sheetName, fmt.Sprintf("I%d", row), u.Busy)
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("ошибка записи Excel файла: %v", err)
	}
	return nil
}

// FloorPlanKind вид изображения квартиры
type FloorPlanKind string

const (
	FloorPlanLayout  FloorPlanKind = "plan"
	FloorPlanDrawing FloorPlanKind = "drawing"
)

// SaveFloorPlan сохраняет планировку квартиры, уменьшая изображение до допустимой ширины
func (s *PropertyService) SaveFloorPlan(ctx context.Context, unitID uint, kind FloorPlanKind, filename string, r io.Reader) (*models.Unit, error) {
	if kind != FloorPlanLayout && kind != FloorPlanDrawing {
		return nil, ErrValidation.With("неизвестный вид изображения: %q", kind)
	}

	var unit models.Unit
	if err := s.db.WithContext(ctx).First(&unit, unitID).Error; err != nil {
		return nil, notFound(err, ErrUnitNotFound)
	}

	img, format, err := image.Decode(r)
	if err != nil {
		return nil, ErrInvalidFile.With("файл %q не является изображением", filename)
	}
	if s.maxWidth > 0 && img.Bounds().Dx() > s.maxWidth {
		img = imaging.Resize(img, s.maxWidth, 0, imaging.Lanczos)
	}

	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}
	rel := filepath.Join("floor_plans", uuid.New().String()+ext)
	path := filepath.Join(s.mediaDir, rel)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ошибка создания каталога: %v", err)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("ошибка сохранения изображения: %v", err)
	}

	column, old := "floor_plan", unit.FloorPlan
	if kind == FloorPlanDrawing {
		column, old = "floor_plan_drawing", unit.FloorPlanDrawing
	}

	if err := s.db.WithContext(ctx).Model(&unit).Update(column, rel).Error; err != nil {
		_ = os.Remove(path)
		return nil, transient(err)
	}
	s.removeMedia(old)

	if kind == FloorPlanDrawing {
		unit.FloorPlanDrawing = rel
	} else {
		unit.FloorPlan = rel
	}
	return &unit, nil
}

func (s *PropertyService) removeMedia(rel string) {
	if rel == "" {
		return
	}
	if err := os.Remove(filepath.Join(s.mediaDir, rel)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("не удалось удалить файл", zap.String("path", rel), zap.Error(err))
	}
}
