package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"qurilish/config"
	"qurilish/models"
)

// EmailService отправляет служебные письма отделу продаж
type EmailService struct {
	dialer *gomail.Dialer
	from   string
	office string
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		dialer: dialer,
		from:   cfg.SMTP.From,
		office: cfg.SMTP.Office,
	}
}

// Enabled адрес отдела продаж настроен
func (s *EmailService) Enabled() bool {
	return s.office != ""
}

// SendEmail отправляет письмо
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// SendContractCompleted уведомляет отдел продаж о полностью оплаченном договоре
func (s *EmailService) SendContractCompleted(contract *models.Contract, clientName string) error {
	subject := fmt.Sprintf("Договор №%d полностью оплачен", contract.Number)
	body := fmt.Sprintf(`
		<h2>Договор полностью оплачен</h2>
		<p>Договор: №%d</p>
		<p>Клиент: %s</p>
		<p>Стоимость: %s</p>
		<p>Дата: %s</p>
	`, contract.Number, clientName, contract.HomePrice.StringFixed(2), time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(s.office, subject, body)
}

// SendContractCancelled уведомляет отдел продаж об отмене договора
func (s *EmailService) SendContractCancelled(contract *models.Contract, clientName string, paid decimal.Decimal) error {
	subject := fmt.Sprintf("Договор №%d отменен", contract.Number)
	body := fmt.Sprintf(`
		<h2>Договор отменен</h2>
		<p>Договор: №%d</p>
		<p>Клиент: %s</p>
		<p>Оплачено клиентом: %s</p>
		<p>Дата: %s</p>
	`, contract.Number, clientName, paid.StringFixed(2), time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(s.office, subject, body)
}
