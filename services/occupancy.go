package services

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/database"
	"qurilish/models"
)

// activeStatuses статусы договора, при которых квартира закреплена за клиентом
var activeStatuses = []models.ContractStatus{
	models.ContractStatusForming,
	models.ContractStatusFinalized,
}

// OccupancyGate связывает занятость квартиры со статусом договора.
// Только он меняет units.busy.
type OccupancyGate struct {
	log *zap.Logger
}

// NewOccupancyGate создает новый экземпляр OccupancyGate
func NewOccupancyGate(log *zap.Logger) *OccupancyGate {
	return &OccupancyGate{log: log.Named("occupancy")}
}

// CheckAvailable проверяет, что квартиру можно закрепить за договором.
// exceptContractID исключает из проверки сам договор при его редактировании.
func (g *OccupancyGate) CheckAvailable(tx *gorm.DB, unitID, exceptContractID uint) (*models.Unit, error) {
	unit, err := database.LockUnit(tx, unitID)
	if err != nil {
		return nil, notFound(err, ErrUnitNotFound)
	}

	if unit.Busy {
		return nil, ErrUnitUnavailable.With("квартира %s уже занята", unit.Number)
	}

	var active int64
	q := tx.Model(&models.Contract{}).
		Where("unit_id = ? AND status IN ?", unitID, activeStatuses)
	if exceptContractID != 0 {
		q = q.Where("id <> ?", exceptContractID)
	}
	if err := q.Count(&active).Error; err != nil {
		return nil, transient(err)
	}
	if active > 0 {
		return nil, ErrUnitUnavailable.With("на квартиру %s уже оформляется договор", unit.Number)
	}

	return unit, nil
}

// OnStatus обновляет занятость квартиры после смены статуса договора
func (g *OccupancyGate) OnStatus(tx *gorm.DB, unitID uint, status models.ContractStatus) error {
	switch status {
	case models.ContractStatusFinalized, models.ContractStatusCompleted:
		return g.setBusy(tx, unitID, true)
	case models.ContractStatusCancelled:
		return g.setBusy(tx, unitID, false)
	}
	return nil
}

// Release освобождает квартиру при удалении договора
func (g *OccupancyGate) Release(tx *gorm.DB, unitID uint) error {
	return g.setBusy(tx, unitID, false)
}

func (g *OccupancyGate) setBusy(tx *gorm.DB, unitID uint, busy bool) error {
	if err := tx.Model(&models.Unit{}).Where("id = ?", unitID).Update("busy", busy).Error; err != nil {
		return transient(err)
	}
	g.log.Debug("занятость квартиры изменена", zap.Uint("unit_id", unitID), zap.Bool("busy", busy))
	return nil
}

// transitionContract меняет статус договора строго по таблице переходов
// и сообщает о новом статусе проверке занятости
func transitionContract(tx *gorm.DB, gate *OccupancyGate, c *models.Contract, next models.ContractStatus) error {
	if !c.Status.CanTransitionTo(next) {
		return ErrInvalidTransition.With("переход договора из статуса %q в %q недопустим", c.Status, next)
	}
	c.Status = next
	if c.UnitID != nil {
		return gate.OnStatus(tx, *c.UnitID, next)
	}
	return nil
}
