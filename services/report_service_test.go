package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"qurilish/models"
)

func TestReportService_BuildScheduleReport(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.schedule, zap.NewNop())

	contract := env.createContract(t, 103, 300_000, 7, models.ContractStatusFinalized)

	report, err := reports.BuildScheduleReport(context.Background(), contract.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(2), report.DownPercent)
	assert.True(t, m(10_000_000).Equal(report.Balance))
	assert.NotEmpty(t, report.PriceInWords)
	require.Len(t, report.Rows, 7)

	assert.Equal(t, 1, report.Rows[0].Month)
	assert.True(t, m(1_400_000).Equal(report.Rows[0].Payment))
	assert.True(t, m(8_600_000).Equal(report.Rows[0].Remaining))
	assert.True(t, m(1_600_000).Equal(report.Rows[6].Payment))
	assert.True(t, report.Rows[6].Remaining.IsZero())
}

func TestReportService_WriteScheduleXML(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.schedule, zap.NewNop())
	ctx := context.Background()

	contract := env.createContract(t, 103, 300_000, 7, models.ContractStatusFinalized)
	_, err := env.schedule.ApplyLumpPayment(ctx, contract.ID, m(1_000_000))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reports.WriteScheduleXML(ctx, contract.ID, &buf))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	root := doc.SelectElement("schedule")
	require.NotNil(t, root)
	assert.Equal(t, "1", root.SelectAttrValue("contract", ""))
	assert.Equal(t, string(models.ContractStatusFinalized), root.SelectAttrValue("status", ""))
	assert.Equal(t, "10300000.00", root.SelectElement("total_price").Text())
	assert.Equal(t, "2", root.SelectElement("down_payment").SelectAttrValue("percent", ""))
	assert.Equal(t, "9000000.00", root.SelectElement("residual").Text())

	payments := root.FindElements("./payments/payment")
	require.Len(t, payments, 7)
	first := payments[0]
	assert.Equal(t, "15", first.SelectAttrValue("day", ""))
	assert.Equal(t, "yanvar", first.SelectAttrValue("month", ""))
	assert.Equal(t, "2025", first.SelectAttrValue("year", ""))
	assert.Equal(t, "1000000.00", first.SelectElement("paid").Text())
	assert.Equal(t, "8600000.00", first.SelectElement("remaining").Text())
}

func TestReportService_WriteScheduleXLSX(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.schedule, zap.NewNop())
	ctx := context.Background()

	contract := env.createContract(t, 50, 500_000, 3, models.ContractStatusFinalized)

	var buf bytes.Buffer
	require.NoError(t, reports.WriteScheduleXLSX(ctx, contract.ID, &buf))

	file, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer file.Close()

	title, err := file.GetCellValue("Grafik", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Shartnoma № 1", title)

	header, err := file.GetCellValue("Grafik", "E7")
	require.NoError(t, err)
	assert.Equal(t, "To'lov", header)

	rows, err := file.GetRows("Grafik")
	require.NoError(t, err)
	assert.Len(t, rows, 10)

	month, err := file.GetCellValue("Grafik", "C8")
	require.NoError(t, err)
	assert.Equal(t, "yanvar", month)

	remaining, err := file.GetCellValue("Grafik", "G10")
	require.NoError(t, err)
	assert.Equal(t, "0", remaining)
}

func TestReportService_ContractNotFound(t *testing.T) {
	env := newTestEnv(t)
	reports := NewReportService(env.schedule, zap.NewNop())

	var buf bytes.Buffer
	err := reports.WriteScheduleXML(context.Background(), 999, &buf)
	assert.ErrorIs(t, err, ErrContractNotFound)
	assert.Zero(t, buf.Len())
}
