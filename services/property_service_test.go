package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"qurilish/models"
)

func newPropertyService(t *testing.T) (*PropertyService, *testEnv) {
	t.Helper()

	env := newTestEnv(t)
	return NewPropertyService(env.db, t.TempDir(), 800, zap.NewNop()), env
}

func unitRequest(entrance, floor int, number string) UnitRequest {
	return UnitRequest{
		Entrance: entrance,
		Number:   number,
		Floor:    floor,
		Rooms:    2,
		Area:     m(55),
		Price:    m(6_000_000),
	}
}

func TestPropertyService_Cities(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	city, err := svc.CreateCity(ctx, CityRequest{Name: "  Samarqand "})
	require.NoError(t, err)
	assert.Equal(t, "Samarqand", city.Name)

	renamed, err := svc.UpdateCity(ctx, city.ID, CityRequest{Name: "Buxoro"})
	require.NoError(t, err)
	assert.Equal(t, "Buxoro", renamed.Name)

	cities, err := svc.ListCities(ctx)
	require.NoError(t, err)
	assert.Len(t, cities, 2)

	// у тестового города есть дом
	assert.ErrorIs(t, svc.DeleteCity(ctx, *env.building.CityID), ErrHasDependents)
	require.NoError(t, svc.DeleteCity(ctx, city.ID))
	assert.ErrorIs(t, svc.DeleteCity(ctx, city.ID), ErrNotFound)
}

func TestPropertyService_Buildings(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	_, err := svc.CreateBuilding(ctx, BuildingRequest{Name: "Bahor", Entrances: 3, Floors: 5, Apartments: []int{4, 4}})
	assert.ErrorIs(t, err, ErrValidation)

	missing := uint(999)
	_, err = svc.CreateBuilding(ctx, BuildingRequest{CityID: &missing, Name: "Bahor", Entrances: 2, Floors: 5})
	assert.ErrorIs(t, err, ErrNotFound)

	building, err := svc.CreateBuilding(ctx, BuildingRequest{
		CityID:     env.building.CityID,
		Name:       "Bahor",
		Code:       "bh",
		Entrances:  2,
		Floors:     5,
		Apartments: []int{4, 6},
	})
	require.NoError(t, err)
	assert.Equal(t, "BH", building.Code)
	assert.JSONEq(t, `[4,6]`, string(building.Apartments))

	list, err := svc.ListBuildings(ctx, *env.building.CityID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := svc.GetBuilding(ctx, building.ID)
	require.NoError(t, err)
	require.NotNil(t, got.City)
	assert.Equal(t, "Toshkent", got.City.Name)

	_, err = svc.CreateUnits(ctx, building.ID, []UnitRequest{unitRequest(1, 1, "1")})
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteBuilding(ctx, building.ID), ErrHasDependents)
}

func TestPropertyService_CreateUnitsPartial(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	result, err := svc.CreateUnits(ctx, env.building.ID, []UnitRequest{
		unitRequest(1, 1, "1"),
		unitRequest(3, 1, "2"),  // в доме два подъезда
		unitRequest(2, 10, "3"), // и девять этажей
		unitRequest(2, 9, "4"),
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 2)
	assert.True(t, strings.HasPrefix(result.Errors[0], "строка 2"))

	var building models.Building
	require.NoError(t, env.db.First(&building, env.building.ID).Error)
	assert.True(t, building.Status)

	_, err = svc.CreateUnits(ctx, env.building.ID, []UnitRequest{unitRequest(5, 1, "9")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.CreateUnits(ctx, 999, []UnitRequest{unitRequest(1, 1, "1")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPropertyService_ListUnitsFilters(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	contract := env.createContract(t, 40, 0, 4, models.ContractStatusFinalized)
	_, err := svc.CreateUnits(ctx, env.building.ID, []UnitRequest{unitRequest(2, 3, "7"), unitRequest(2, 4, "8")})
	require.NoError(t, err)

	busy, err := svc.ListUnits(ctx, UnitFilter{Status: "occupied"})
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.Equal(t, *contract.UnitID, busy[0].ID)

	free, err := svc.ListUnits(ctx, UnitFilter{Status: "free", Entrance: 2})
	require.NoError(t, err)
	assert.Len(t, free, 2)

	byCity, err := svc.ListUnits(ctx, UnitFilter{CityID: *env.building.CityID})
	require.NoError(t, err)
	assert.Len(t, byCity, 3)

	assert.ErrorIs(t, svc.DeleteUnit(ctx, *contract.UnitID), ErrHasDependents)
}

func TestPropertyService_UpdateUnitKeepsBusy(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	contract := env.createContract(t, 40, 0, 4, models.ContractStatusFinalized)

	req := unitRequest(2, 5, "15A")
	req.Price = m(7_000_000)
	unit, err := svc.UpdateUnit(ctx, *contract.UnitID, req)
	require.NoError(t, err)
	assert.Equal(t, "15A", unit.Number)
	assert.True(t, m(7_000_000).Equal(unit.Price))
	assert.True(t, env.unitBusy(t, unit.ID))

	_, err = svc.UpdateUnit(ctx, 999, req)
	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func unitsWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range append([][]interface{}{{"price", "number", "entrance", "floor", "rooms", "area"}}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestPropertyService_ImportExportUnits(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	file := unitsWorkbook(t, [][]interface{}{
		{"6 500 000", "101", 1, 2, 3, "72,5"},
		{},
		{"abc", "102", 1, 2, 3, 60},
		{7000000, "103", 2, 9, 1, 38},
	})

	result, err := svc.ImportUnits(ctx, env.building.ID, file)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	assert.Equal(t, "101", result.Created[0].Number)
	assert.True(t, m(6_500_000).Equal(result.Created[0].Price))
	assert.Equal(t, "72.5", result.Created[0].Area.String())
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "строка 4")

	_, err = svc.ImportUnits(ctx, env.building.ID, strings.NewReader("not an excel file"))
	assert.ErrorIs(t, err, ErrInvalidFile)

	var out bytes.Buffer
	require.NoError(t, svc.ExportUnits(ctx, UnitFilter{BuildingID: env.building.ID}, &out))

	exported, err := excelize.OpenReader(&out)
	require.NoError(t, err)
	defer exported.Close()

	rows, err := exported.GetRows("Xonadonlar")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"price", "number", "entrance", "floor", "rooms", "area", "building", "total_price", "busy"}, rows[0])
	assert.Equal(t, "101", rows[1][1])
	assert.Equal(t, env.building.Name, rows[1][6])
}

func TestPropertyService_SaveFloorPlan(t *testing.T) {
	svc, env := newPropertyService(t)
	ctx := context.Background()

	unit := env.newUnit(t, 50)

	var img bytes.Buffer
	require.NoError(t, imaging.Encode(&img, imaging.New(1600, 900, color.NRGBA{R: 200, G: 200, B: 200, A: 255}), imaging.PNG))

	saved, err := svc.SaveFloorPlan(ctx, unit.ID, FloorPlanLayout, "plan.png", bytes.NewReader(img.Bytes()))
	require.NoError(t, err)
	require.NotEmpty(t, saved.FloorPlan)

	path := filepath.Join(svc.mediaDir, saved.FloorPlan)
	stored, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 450), stored.Bounds())

	// повторная загрузка заменяет файл
	replaced, err := svc.SaveFloorPlan(ctx, unit.ID, FloorPlanLayout, "plan.png", bytes.NewReader(img.Bytes()))
	require.NoError(t, err)
	assert.NotEqual(t, saved.FloorPlan, replaced.FloorPlan)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = svc.SaveFloorPlan(ctx, unit.ID, FloorPlanLayout, "plan.txt", strings.NewReader("text"))
	assert.ErrorIs(t, err, ErrInvalidFile)

	_, err = svc.SaveFloorPlan(ctx, unit.ID, "photo", "plan.png", bytes.NewReader(img.Bytes()))
	assert.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.DeleteUnit(ctx, unit.ID))
	_, err = os.Stat(filepath.Join(svc.mediaDir, replaced.FloorPlan))
	assert.True(t, os.IsNotExist(err))
}
