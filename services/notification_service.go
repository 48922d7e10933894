package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/models"
	"qurilish/utils"
)

// Notifier получает события по договорам после фиксации транзакции.
// Реализации не должны блокировать вызывающего.
type Notifier interface {
	ContractCreated(contractID uint)
	PaymentReceived(contractID uint, amount decimal.Decimal)
	ContractCompleted(contractID uint)
	ContractCancelled(contractID uint, paid decimal.Decimal)
}

// NopNotifier ничего не отправляет
type NopNotifier struct{}

func (NopNotifier) ContractCreated(uint) {}
func (NopNotifier) PaymentReceived(uint, decimal.Decimal) {}
func (NopNotifier) ContractCompleted(uint) {}
func (NopNotifier) ContractCancelled(uint, decimal.Decimal) {}

// NotificationService отправляет SMS клиенту и письма отделу продаж.
// Ошибки отправки только логируются.
type NotificationService struct {
	db      *gorm.DB
	sms     SMSSender
	email   *EmailService
	metrics *utils.Metrics
	log     *zap.Logger
	timeout time.Duration
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(db *gorm.DB, sms SMSSender, email *EmailService, metrics *utils.Metrics, log *zap.Logger) *NotificationService {
	return &NotificationService{
		db:      db,
		sms:     sms,
		email:   email,
		metrics: metrics,
		log:     log.Named("notify"),
		timeout: 30 * time.Second,
	}
}

// ContractCreated отправляет клиенту номер договора и сумму ежемесячного платежа
func (n *NotificationService) ContractCreated(contractID uint) {
	n.async("contract_created", contractID, func(ctx context.Context, c *models.Contract) {
		text := fmt.Sprintf("Hurmatli %s! %d-sonli shartnoma rasmiylashtirildi. Oylik to'lov: %s so'm, to'lov kuni: har oyning %d-sanasi.",
			clientName(c), c.Number, c.OylikTolov.StringFixed(0), c.PayDay)
		n.sendSMS(ctx, c, text)
	})
}

// PaymentReceived подтверждает клиенту прием платежа
func (n *NotificationService) PaymentReceived(contractID uint, amount decimal.Decimal) {
	n.async("payment_received", contractID, func(ctx context.Context, c *models.Contract) {
		text := fmt.Sprintf("Hurmatli %s! %d-sonli shartnoma bo'yicha %s so'm qabul qilindi. Qoldiq: %s so'm.",
			clientName(c), c.Number, amount.StringFixed(0), c.Residual.StringFixed(0))
		n.sendSMS(ctx, c, text)
	})
}

// ContractCompleted поздравляет клиента и сообщает отделу продаж
func (n *NotificationService) ContractCompleted(contractID uint) {
	n.async("contract_completed", contractID, func(ctx context.Context, c *models.Contract) {
		text := fmt.Sprintf("Hurmatli %s! %d-sonli shartnoma bo'yicha to'lovlar to'liq amalga oshirildi. Rahmat!",
			clientName(c), c.Number)
		n.sendSMS(ctx, c, text)

		if n.email != nil && n.email.Enabled() {
			err := n.email.SendContractCompleted(c, clientName(c))
			n.metrics.RecordNotification("email", err)
			if err != nil {
				n.log.Error("ошибка отправки письма", zap.Uint("contract_id", c.ID), zap.Error(err))
			}
		}
	})
}

// ContractCancelled сообщает отделу продаж об отмене договора
func (n *NotificationService) ContractCancelled(contractID uint, paid decimal.Decimal) {
	n.async("contract_cancelled", contractID, func(ctx context.Context, c *models.Contract) {
		if n.email == nil || !n.email.Enabled() {
			return
		}
		err := n.email.SendContractCancelled(c, clientName(c), paid)
		n.metrics.RecordNotification("email", err)
		if err != nil {
			n.log.Error("ошибка отправки письма", zap.Uint("contract_id", c.ID), zap.Error(err))
		}
	})
}

func (n *NotificationService) async(event string, contractID uint, fn func(ctx context.Context, c *models.Contract)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				n.log.Error("паника при отправке уведомления", zap.String("event", event), zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		var contract models.Contract
		if err := n.db.WithContext(ctx).Preload("Client").First(&contract, contractID).Error; err != nil {
			n.log.Warn("договор для уведомления не найден",
				zap.String("event", event),
				zap.Uint("contract_id", contractID),
				zap.Error(err),
			)
			return
		}

		fn(ctx, &contract)
	}()
}

func (n *NotificationService) sendSMS(ctx context.Context, c *models.Contract, text string) {
	if n.sms == nil || c.Client == nil || c.Client.Phone == "" {
		return
	}
	err := n.sms.Send(ctx, c.Client.Phone, text)
	n.metrics.RecordNotification("sms", err)
	if err != nil {
		n.log.Error("ошибка отправки SMS", zap.Uint("contract_id", c.ID), zap.Error(err))
	}
}

func clientName(c *models.Contract) string {
	if c.Client == nil {
		return "mijoz"
	}
	return c.Client.FullName
}
