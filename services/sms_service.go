package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"qurilish/config"
	"qurilish/utils"
)

// SMSSender отправляет SMS клиенту
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}

// SmsService отправляет SMS через шлюз eskiz.uz
type SmsService struct {
	client  *http.Client
	baseURL string
	token   string
	sender  string
	enabled bool
	log     *zap.Logger
}

// NewSmsService создает новый экземпляр SmsService
func NewSmsService(cfg *config.Config, log *zap.Logger) *SmsService {
	return &SmsService{
		client:  &http.Client{Timeout: cfg.SMS.Timeout},
		baseURL: strings.TrimRight(cfg.SMS.BaseURL, "/"),
		token:   cfg.SMS.Token,
		sender:  cfg.SMS.Sender,
		enabled: cfg.SMS.Enabled,
		log:     log.Named("sms"),
	}
}

// Send отправляет одно сообщение. Номер приводится к формату +998XXXXXXXXX.
func (s *SmsService) Send(ctx context.Context, phone, text string) error {
	digits := utils.PhoneDigits(phone)
	if digits == "" {
		return ErrValidation.With("неверный номер телефона: %q", phone)
	}
	if strings.TrimSpace(text) == "" {
		return ErrValidation.With("текст SMS не указан")
	}

	if !s.enabled {
		s.log.Debug("отправка SMS отключена", zap.String("phone", digits))
		return nil
	}

	form := url.Values{}
	form.Set("mobile_phone", digits)
	form.Set("message", text)
	form.Set("from", s.sender)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/message/sms/send", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("ошибка формирования запроса SMS: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки SMS: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("шлюз SMS вернул статус %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	s.log.Info("SMS отправлено", zap.String("phone", digits), zap.Duration("timeout", s.client.Timeout))
	return nil
}

// SendMany отправляет одно сообщение нескольким получателям.
// Ошибки отдельных номеров логируются, возвращается число доставленных.
func (s *SmsService) SendMany(ctx context.Context, phones []string, text string) int {
	sent := 0
	for _, phone := range phones {
		sendCtx, cancel := context.WithTimeout(ctx, s.client.Timeout+time.Second)
		err := s.Send(sendCtx, phone, text)
		cancel()
		if err != nil {
			s.log.Warn("не удалось отправить SMS", zap.String("phone", phone), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
