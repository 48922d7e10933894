package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qurilish/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrInvalidAmount, http.StatusBadRequest},
		{services.ErrExceedsBalance.With("остаток 100"), http.StatusBadRequest},
		{services.ErrNoUnpaidLines, http.StatusBadRequest},
		{services.ErrAlreadySettled, http.StatusConflict},
		{services.ErrContractClosed, http.StatusConflict},
		{services.ErrUnitUnavailable, http.StatusConflict},
		{services.ErrContractNotFound, http.StatusNotFound},
		{services.ErrLineNotFound, http.StatusNotFound},
		{services.ErrNegativeResidual, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: connection reset", services.ErrTransient), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestRespondError(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	respondError(c, zap.NewNop(), services.ErrNoUnpaidLines)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"по договору нет неоплаченных месяцев","code":"no_unpaid_lines"}`, rr.Body.String())
}

func TestRespondError_HidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, zap.NewNop(), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestValidator_Messages(t *testing.T) {
	v := NewValidator()

	err := validateRequest(v, SignUpRequest{FirstName: "A", LastName: "Karimov", Email: "bad", Password: "parolparol"})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "поле firstName должно быть не меньше 2")
	assert.Contains(t, msg, "поле email должно содержать корректный email")
	assert.Contains(t, msg, "пароль должен содержать")

	assert.NoError(t, validateRequest(v, SignUpRequest{FirstName: "Aziz", LastName: "Karimov", Email: "aziz@example.com", Password: "Parol#2025"}))

	err = validateRequest(v, ProcessPaymentRequest{PaymentType: "monthly"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment_id")

	err = validateRequest(v, ProcessPaymentRequest{PaymentType: "weekly"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "должно быть одним из: monthly custom")

	assert.NoError(t, validateRequest(v, ProcessPaymentRequest{PaymentType: "custom"}))
}

func TestBind(t *testing.T) {
	v := NewValidator()

	for _, tc := range []struct {
		body string
		code string
		ok   bool
	}{
		{`{"name":`, "invalid_body", false},
		{`{"name":""}`, "validation", false},
		{`{"name":"Toshkent"}`, "", true},
	} {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
		c.Request.Header.Set("Content-Type", "application/json")

		var req services.CityRequest
		ok := bind(c, v, &req)
		assert.Equal(t, tc.ok, ok, tc.body)
		if !ok {
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Contains(t, rr.Body.String(), tc.code)
		}
	}
}

func TestParseID(t *testing.T) {
	for _, tc := range []struct {
		param string
		want  uint
		ok    bool
	}{
		{"42", 42, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
	} {
		rr := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rr)
		c.Params = gin.Params{{Key: "id", Value: tc.param}}

		id, ok := parseID(c, "id")
		assert.Equal(t, tc.ok, ok, tc.param)
		assert.Equal(t, tc.want, id)
	}
}
