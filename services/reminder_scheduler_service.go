package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"qurilish/models"
	"qurilish/utils"
)

// Reminder напоминание по одному месяцу графика
type Reminder struct {
	ContractID uint
	Number     uint
	ClientName string
	Phone      string
	Month      int
	Date       time.Time
	Qoldiq     decimal.Decimal
	Overdue    bool
}

// ReminderSchedulerService рассылает напоминания о платежах по графику.
// Графики он только читает.
type ReminderSchedulerService struct {
	db        *gorm.DB
	sms       SMSSender
	metrics   *utils.Metrics
	log       *zap.Logger
	interval  time.Duration
	daysAhead int
	now       func() time.Time

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReminderSchedulerService создает новый экземпляр ReminderSchedulerService
func NewReminderSchedulerService(db *gorm.DB, sms SMSSender, metrics *utils.Metrics, log *zap.Logger, interval time.Duration, daysAhead int) *ReminderSchedulerService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &ReminderSchedulerService{
		db:        db,
		sms:       sms,
		metrics:   metrics,
		log:       log.Named("reminder"),
		interval:  interval,
		daysAhead: daysAhead,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start запускает планировщик напоминаний
func (s *ReminderSchedulerService) Start() {
	s.started = true
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sent, err := s.RunOnce(context.Background())
				if err != nil {
					s.log.Error("ошибка рассылки напоминаний", zap.Error(err))
					continue
				}
				s.log.Info("напоминания разосланы", zap.Int("sent", sent))
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop останавливает планировщик и ждет завершения текущей рассылки
func (s *ReminderSchedulerService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.started {
			<-s.done
		}
	})
}

// RunOnce рассылает напоминания за один проход: за daysAhead дней до срока
// и на следующий день после просрочки
func (s *ReminderSchedulerService) RunOnce(ctx context.Context) (int, error) {
	reminders, err := s.DueReminders(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, r := range reminders {
		err := s.sms.Send(ctx, r.Phone, reminderText(r))
		s.metrics.RecordNotification("reminder", err)
		if err != nil {
			s.log.Warn("напоминание не отправлено",
				zap.Uint("contract_id", r.ContractID),
				zap.Int("month", r.Month),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// DueReminders возвращает месяцы, по которым сегодня нужно напомнить
func (s *ReminderSchedulerService) DueReminders(ctx context.Context) ([]Reminder, error) {
	today := utils.StartOfDay(s.now())
	upcoming := today.AddDate(0, 0, s.daysAhead)
	overdue := today.AddDate(0, 0, -1)

	var rows []struct {
		ContractID uint
		Number     uint
		FullName   string
		Phone      string
		Month      int
		Date       time.Time
		Qoldiq     decimal.Decimal
	}
	err := s.db.WithContext(ctx).Model(&models.ScheduleLine{}).
		Select("schedule_lines.contract_id, contracts.number, clients.full_name, clients.phone, "+
			"schedule_lines.month, schedule_lines.date, schedule_lines.qoldiq").
		Joins("JOIN contracts ON contracts.id = schedule_lines.contract_id").
		Joins("JOIN clients ON clients.id = contracts.client_id").
		Where("contracts.status = ?", models.ContractStatusFinalized).
		Where("schedule_lines.month > 0 AND schedule_lines.qoldiq > 0").
		Where("(schedule_lines.date >= ? AND schedule_lines.date < ?) OR (schedule_lines.date >= ? AND schedule_lines.date < ?)",
			upcoming, upcoming.AddDate(0, 0, 1), overdue, today).
		Order("schedule_lines.date, schedule_lines.contract_id").
		Scan(&rows).Error
	if err != nil {
		return nil, transient(err)
	}

	reminders := make([]Reminder, 0, len(rows))
	for _, r := range rows {
		if r.Phone == "" {
			continue
		}
		reminders = append(reminders, Reminder{
			ContractID: r.ContractID,
			Number:     r.Number,
			ClientName: r.FullName,
			Phone:      r.Phone,
			Month:      r.Month,
			Date:       r.Date,
			Qoldiq:     r.Qoldiq,
			Overdue:    r.Date.Before(today),
		})
	}
	return reminders, nil
}

func reminderText(r Reminder) string {
	name := r.ClientName
	if name == "" {
		name = "mijoz"
	}
	if r.Overdue {
		return fmt.Sprintf("Hurmatli %s! %d-sonli shartnoma bo'yicha %s sanasidagi %s so'm to'lov muddati o'tdi. Iltimos, to'lovni amalga oshiring.",
			name, r.Number, r.Date.Format("02.01.2006"), r.Qoldiq.StringFixed(0))
	}
	return fmt.Sprintf("Hurmatli %s! %d-sonli shartnoma bo'yicha %s sanasida %s so'm to'lov kutilmoqda.",
		name, r.Number, r.Date.Format("02.01.2006"), r.Qoldiq.StringFixed(0))
}
