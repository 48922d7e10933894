package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/models"
	"qurilish/utils"
)

// ClientRequest данные клиента
type ClientRequest struct {
	FullName string             `json:"full_name" validate:"required,max=150"`
	Phone    string             `json:"phone" validate:"required"`
	Phone2   string             `json:"phone2"`
	Heard    models.HeardSource `json:"heard" validate:"required"`
}

// ClientFilter параметры списка клиентов
type ClientFilter struct {
	Search   string
	Heard    models.HeardSource
	Page     int
	PageSize int
}

// ClientList страница списка клиентов
type ClientList struct {
	Items    []models.Client `json:"results"`
	Total    int64           `json:"count"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// SendSMSRequest рассылка SMS клиентам
type SendSMSRequest struct {
	Text string `json:"sms_text" validate:"required,max=900"`
	// Recipients all, telegram, instagram, youtube, people или custom
	Recipients  string `json:"recipient_type" validate:"required,oneof=all telegram instagram youtube people custom"`
	CustomPhone string `json:"custom_phone"`
}

// recipientSources каналы для рассылки
var recipientSources = map[string]models.HeardSource{
	"telegram":  models.HeardTelegram,
	"instagram": models.HeardInstagram,
	"youtube":   models.HeardYouTube,
	"people":    models.HeardPeople,
}

// HeardByCode каналы по числовому коду фильтра
var HeardByCode = map[string]models.HeardSource{
	"0": models.HeardTelegram,
	"1": models.HeardInstagram,
	"2": models.HeardYouTube,
	"3": models.HeardPeople,
	"4": models.HeardNowhere,
}

// ClientService управляет справочником клиентов
type ClientService struct {
	db  *gorm.DB
	sms *SmsService
	log *zap.Logger
}

// NewClientService создает новый экземпляр ClientService
func NewClientService(db *gorm.DB, sms *SmsService, log *zap.Logger) *ClientService {
	return &ClientService{db: db, sms: sms, log: log.Named("client")}
}

// ListClients возвращает клиентов по поиску или каналу, новые первыми
func (s *ClientService) ListClients(ctx context.Context, f ClientFilter) (*ClientList, error) {
	page, size := normalizePage(f.Page, f.PageSize)

	q := s.db.WithContext(ctx).Model(&models.Client{})
	if search := strings.TrimSpace(f.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR phone LIKE ?", like, like)
	} else if f.Heard != "" {
		q = q.Where("heard = ?", f.Heard)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, transient(err)
	}

	var clients []models.Client
	if err := q.Order("created_at DESC, id DESC").Offset((page - 1) * size).Limit(size).Find(&clients).Error; err != nil {
		return nil, transient(err)
	}

	return &ClientList{Items: clients, Total: total, Page: page, PageSize: size}, nil
}

// GetClient возвращает клиента
func (s *ClientService) GetClient(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("клиент не найден"))
	}
	return &client, nil
}

// CreateClient добавляет клиента. Клиент с тем же телефоном или именем уже считается существующим.
func (s *ClientService) CreateClient(ctx context.Context, req ClientRequest) (*models.Client, error) {
	client, err := buildClient(req)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Client{}).
			Where("phone = ? OR full_name = ?", client.Phone, client.FullName).
			Count(&existing).Error; err != nil {
			return transient(err)
		}
		if existing > 0 {
			return ErrDuplicateClient.With("клиент %q или номер %s уже есть в базе", client.FullName, client.Phone)
		}

		if err := tx.Create(client).Error; err != nil {
			return transient(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// UpdateClient меняет данные клиента
func (s *ClientService) UpdateClient(ctx context.Context, id uint, req ClientRequest) (*models.Client, error) {
	updated, err := buildClient(req)
	if err != nil {
		return nil, err
	}

	var client models.Client
	if err := s.db.WithContext(ctx).First(&client, id).Error; err != nil {
		return nil, notFound(err, ErrNotFound.With("клиент не найден"))
	}

	client.FullName = updated.FullName
	client.Phone = updated.Phone
	client.Phone2 = updated.Phone2
	client.Heard = updated.Heard
	if err := s.db.WithContext(ctx).Save(&client).Error; err != nil {
		return nil, transient(err)
	}
	return &client, nil
}

func buildClient(req ClientRequest) (*models.Client, error) {
	phone := utils.NormalizePhone(req.Phone)
	if phone == "" {
		return nil, ErrValidation.With("неверный формат номера телефона: %q", req.Phone)
	}
	phone2 := ""
	if req.Phone2 != "" {
		if phone2 = utils.NormalizePhone(req.Phone2); phone2 == "" {
			return nil, ErrValidation.With("неверный формат второго номера телефона: %q", req.Phone2)
		}
	}
	if !validHeard(req.Heard) {
		return nil, ErrValidation.With("неизвестный источник: %q", req.Heard)
	}

	return &models.Client{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    phone,
		Phone2:   phone2,
		Heard:    req.Heard,
	}, nil
}

// DeleteClient удаляет клиента без договоров
func (s *ClientService) DeleteClient(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var client models.Client
		if err := tx.First(&client, id).Error; err != nil {
			return notFound(err, ErrNotFound.With("клиент не найден"))
		}

		var contracts int64
		if err := tx.Model(&models.Contract{}).Where("client_id = ?", id).Count(&contracts).Error; err != nil {
			return transient(err)
		}
		if contracts > 0 {
			return ErrHasDependents.With("на клиента %q оформлены договоры, удалить нельзя", client.FullName)
		}

		if err := tx.Delete(&client).Error; err != nil {
			return transient(err)
		}
		return nil
	})
}

// SendSMS рассылает сообщение клиентам выбранного канала или на один номер.
// Возвращает количество отправленных сообщений.
func (s *ClientService) SendSMS(ctx context.Context, req SendSMSRequest) (int, error) {
	if strings.TrimSpace(req.Text) == "" {
		return 0, ErrValidation.With("текст SMS не указан")
	}

	if req.Recipients == "custom" {
		phone := utils.NormalizePhone(req.CustomPhone)
		if phone == "" {
			return 0, ErrValidation.With("неверный формат номера телефона: %q", req.CustomPhone)
		}
		if err := s.sms.Send(ctx, phone, req.Text); err != nil {
			return 0, err
		}
		return 1, nil
	}

	q := s.db.WithContext(ctx).Model(&models.Client{}).Where("phone <> ''")
	if req.Recipients != "all" {
		source, ok := recipientSources[req.Recipients]
		if !ok {
			return 0, ErrValidation.With("неизвестный тип получателей: %q", req.Recipients)
		}
		q = q.Where("heard = ?", source)
	}

	var phones []string
	if err := q.Pluck("phone", &phones).Error; err != nil {
		return 0, transient(err)
	}

	sent := s.sms.SendMany(ctx, phones, req.Text)
	s.log.Info("рассылка SMS завершена",
		zap.String("recipients", req.Recipients),
		zap.Int("total", len(phones)),
		zap.Int("sent", sent),
	)
	return sent, nil
}
