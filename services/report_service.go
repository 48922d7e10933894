package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"qurilish/utils"
)

var uzMonths = [...]string{
	"yanvar", "fevral", "mart", "aprel", "may", "iyun",
	"iyul", "avgust", "sentabr", "oktabr", "noyabr", "dekabr",
}

// ScheduleReportRow строка печатного графика
type ScheduleReportRow struct {
	Month     int
	Date      time.Time
	Payment   decimal.Decimal
	Paid      decimal.Decimal
	Remaining decimal.Decimal
}

// ScheduleReport печатный график платежей
type ScheduleReport struct {
	State *ScheduleState
	// DownPercent доля первоначального взноса в процентах
	DownPercent int64
	// Balance сумма к оплате в рассрочку
	Balance      decimal.Decimal
	PriceInWords string
	Rows         []ScheduleReportRow
}

// ReportService выгружает график платежей в XML и Excel
type ReportService struct {
	schedule *ScheduleService
	log      *zap.Logger
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(schedule *ScheduleService, log *zap.Logger) *ReportService {
	return &ReportService{schedule: schedule, log: log.Named("report")}
}

// BuildScheduleReport готовит данные печатного графика.
// Остаток после каждого месяца считается от суммы рассрочки и не уходит ниже нуля.
func (s *ReportService) BuildScheduleReport(ctx context.Context, contractID uint) (*ScheduleReport, error) {
	state, err := s.schedule.GetSchedule(ctx, contractID)
	if err != nil {
		return nil, err
	}

	report := &ScheduleReport{
		State:        state,
		Balance:      state.HomePrice.Sub(state.Payment),
		PriceInWords: utils.AmountInWordsUz(state.HomePrice),
	}
	if state.HomePrice.IsPositive() {
		report.DownPercent = state.Payment.Mul(decimal.NewFromInt(100)).Div(state.HomePrice).IntPart()
	}

	balance := report.Balance
	for _, line := range state.Lines {
		if line.IsInitial {
			continue
		}
		payment := decimal.Min(line.Amount, decimal.Max(balance, decimal.Zero))
		balance = decimal.Max(balance.Sub(payment), decimal.Zero)
		report.Rows = append(report.Rows, ScheduleReportRow{
			Month:     line.Month,
			Date:      line.Date,
			Payment:   payment,
			Paid:      line.AmountPaid,
			Remaining: balance,
		})
	}
	return report, nil
}

// WriteScheduleXML выгружает график в XML
func (s *ReportService) WriteScheduleXML(ctx context.Context, contractID uint, w io.Writer) error {
	report, err := s.BuildScheduleReport(ctx, contractID)
	if err != nil {
		return err
	}
	state := report.State

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("schedule")
	root.CreateAttr("contract", strconv.FormatUint(uint64(state.Number), 10))
	root.CreateAttr("status", string(state.Status))

	root.CreateElement("client").SetText(state.ClientName)
	price := root.CreateElement("total_price")
	price.SetText(state.HomePrice.StringFixed(2))
	price.CreateAttr("words", report.PriceInWords)
	down := root.CreateElement("down_payment")
	down.SetText(state.Payment.StringFixed(2))
	down.CreateAttr("percent", strconv.FormatInt(report.DownPercent, 10))
	root.CreateElement("remaining_balance").SetText(report.Balance.StringFixed(2))
	root.CreateElement("residual").SetText(state.Residual.StringFixed(2))

	payments := root.CreateElement("payments")
	payments.CreateAttr("count", strconv.Itoa(len(report.Rows)))
	for _, row := range report.Rows {
		p := payments.CreateElement("payment")
		p.CreateAttr("number", strconv.Itoa(row.Month))
		p.CreateAttr("day", strconv.Itoa(row.Date.Day()))
		p.CreateAttr("month", uzMonths[row.Date.Month()-1])
		p.CreateAttr("year", strconv.Itoa(row.Date.Year()))
		p.CreateElement("amount").SetText(row.Payment.StringFixed(2))
		p.CreateElement("paid").SetText(row.Paid.StringFixed(2))
		p.CreateElement("remaining").SetText(row.Remaining.StringFixed(2))
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("ошибка записи XML: %v", err)
	}
	s.log.Debug("график выгружен в XML", zap.Uint("contract_id", contractID), zap.Int("rows", len(report.Rows)))
	return nil
}

// WriteScheduleXLSX выгружает график в Excel
func (s *ReportService) WriteScheduleXLSX(ctx context.Context, contractID uint, w io.Writer) error {
	report, err := s.BuildScheduleReport(ctx, contractID)
	if err != nil {
		return err
	}
	state := report.State

	file := excelize.NewFile()
	defer file.Close()

	sheetName := "Grafik"
	index, err := file.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("ошибка создания листа: %v", err)
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	file.SetCellValue(sheetName, "A1", fmt.Sprintf("Shartnoma № %d", state.Number))
	file.SetCellValue(sheetName, "A2", "Mijoz")
	file.SetCellValue(sheetName, "B2", state.ClientName)
	file.SetCellValue(sheetName, "A3", "Umumiy narx")
	file.SetCellValue(sheetName, "B3", state.HomePrice.InexactFloat64())
	file.SetCellValue(sheetName, "C3", report.PriceInWords)
	file.SetCellValue(sheetName, "A4", "Boshlang'ich to'lov")
	file.SetCellValue(sheetName, "B4", state.Payment.InexactFloat64())
	file.SetCellValue(sheetName, "C4", fmt.Sprintf("%d%%", report.DownPercent))
	file.SetCellValue(sheetName, "A5", "Qoldiq")
	file.SetCellValue(sheetName, "B5", report.Balance.InexactFloat64())

	headers := []string{"№", "Kun", "Oy", "Yil", "To'lov", "To'langan", "Qoldiq"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		file.SetCellValue(sheetName, cell, header)
	}

	for i, r := range report.Rows {
		row := i + 8
		file.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.Month)
		file.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.Date.Day())
		file.SetCellValue(sheetName, fmt.Sprintf("C%d", row), uzMonths[r.Date.Month()-1])
		file.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.Date.Year())
		file.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.Payment.InexactFloat64())
		file.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Paid.InexactFloat64())
		file.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.Remaining.InexactFloat64())
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("ошибка записи Excel файла: %v", err)
	}
	s.log.Debug("график выгружен в Excel", zap.Uint("contract_id", contractID), zap.Int("rows", len(report.Rows)))
	return nil
}
