package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qurilish/models"
	"qurilish/utils"
)

type sentSMS struct {
	phone string
	text  string
}

// fakeSMS запоминает сообщения вместо отправки
type fakeSMS struct {
	mu   sync.Mutex
	sent []sentSMS
	fail bool
}

func (f *fakeSMS) Send(_ context.Context, phone, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("шлюз недоступен")
	}
	f.sent = append(f.sent, sentSMS{phone: phone, text: text})
	return nil
}

func (f *fakeSMS) messages() []sentSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentSMS(nil), f.sent...)
}

func newReminder(env *testEnv, sms SMSSender, now time.Time) *ReminderSchedulerService {
	r := NewReminderSchedulerService(env.db, sms, utils.NewMetrics(), zap.NewNop(), time.Hour, 3)
	r.now = func() time.Time { return now }
	return r
}

func TestReminder_UpcomingPayment(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, 103, 300_000, 7, models.ContractStatusFinalized)
	env.createContract(t, 44, 0, 3, models.ContractStatusForming)

	sms := &fakeSMS{}
	// 15 февраля срок второго месяца
	reminder := newReminder(env, sms, time.Date(2025, time.February, 12, 9, 0, 0, 0, time.UTC))

	due, err := reminder.DueReminders(context.Background())
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, contract.ID, due[0].ContractID)
	assert.Equal(t, 2, due[0].Month)
	assert.False(t, due[0].Overdue)

	sent, err := reminder.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	messages := sms.messages()
	require.Len(t, messages, 1)
	assert.Equal(t, contract.Client.Phone, messages[0].phone)
	assert.Contains(t, messages[0].text, "15.02.2025")
	assert.Contains(t, messages[0].text, "1400000")
	assert.Contains(t, messages[0].text, "kutilmoqda")
}

func TestReminder_OverdueNextDay(t *testing.T) {
	env := newTestEnv(t)
	env.createContract(t, 103, 300_000, 7, models.ContractStatusFinalized)

	sms := &fakeSMS{}
	reminder := newReminder(env, sms, time.Date(2025, time.January, 16, 9, 0, 0, 0, time.UTC))

	sent, err := reminder.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Contains(t, sms.messages()[0].text, "muddati o'tdi")
}

func TestReminder_SkipsPaidLines(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, 103, 300_000, 7, models.ContractStatusFinalized)

	_, err := env.schedule.ApplyLumpPayment(context.Background(), contract.ID, m(2_800_000))
	require.NoError(t, err)

	reminder := newReminder(env, &fakeSMS{}, time.Date(2025, time.February, 12, 9, 0, 0, 0, time.UTC))
	due, err := reminder.DueReminders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestReminder_SendFailuresAreCounted(t *testing.T) {
	env := newTestEnv(t)
	env.createContract(t, 103, 300_000, 7, models.ContractStatusFinalized)

	reminder := newReminder(env, &fakeSMS{fail: true}, time.Date(2025, time.February, 12, 9, 0, 0, 0, time.UTC))

	sent, err := reminder.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
}

func TestReminder_StartStop(t *testing.T) {
	env := newTestEnv(t)
	reminder := newReminder(env, &fakeSMS{}, time.Now())

	// Stop без Start не блокируется
	idle := newReminder(env, &fakeSMS{}, time.Now())
	idle.Stop()

	reminder.Start()
	reminder.Stop()
	reminder.Stop()
}
