package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"qurilish/services"
)

var (
	hasNumber  = regexp.MustCompile(`[0-9]`)
	hasUpper   = regexp.MustCompile(`[A-Z]`)
	hasLower   = regexp.MustCompile(`[a-z]`)
	hasSpecial = regexp.MustCompile(`[!@#$%^&*]`)
)

// NewValidator создает валидатор с правилом password и именами полей из json тегов
func NewValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	// Пароль: цифра, заглавная и строчная буквы и спецсимвол
	validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		password := fl.Field().String()
		return hasNumber.MatchString(password) &&
			hasUpper.MatchString(password) &&
			hasLower.MatchString(password) &&
			hasSpecial.MatchString(password)
	})

	return validate
}

// validateRequest валидирует DTO и возвращает ошибки валидации
func validateRequest(v *validator.Validate, dto interface{}) error {
	err := v.Struct(dto)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var errorMessages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			errorMessages = append(errorMessages, "поле "+e.Field()+" обязательно")
		case "gt":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть больше "+e.Param())
		case "gte", "min":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть не меньше "+e.Param())
		case "lte", "max":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть не больше "+e.Param())
		case "oneof":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно быть одним из: "+e.Param())
		case "email":
			errorMessages = append(errorMessages, "поле "+e.Field()+" должно содержать корректный email")
		case "password":
			errorMessages = append(errorMessages, "пароль должен содержать цифру, заглавную и строчную буквы и спецсимвол")
		default:
			errorMessages = append(errorMessages, "поле "+e.Field()+" заполнено неверно")
		}
	}
	return errors.New(strings.Join(errorMessages, "; "))
}

// bind читает JSON тело запроса и валидирует его.
// При ошибке ответ уже отправлен.
func bind(c *gin.Context, v *validator.Validate, dto interface{}) bool {
	if err := c.ShouldBindJSON(dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверное тело запроса", "code": "invalid_body"})
		return false
	}
	if err := validateRequest(v, dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation"})
		return false
	}
	return true
}

// StatusFor переводит вид ошибки сервиса в HTTP статус
func StatusFor(err error) int {
	var e *services.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}

	switch e.Kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindState:
		return http.StatusConflict
	case services.KindUnavailable:
		if errors.Is(err, services.ErrUnitUnavailable) {
			return http.StatusConflict
		}
		return http.StatusNotFound
	case services.KindArithmetic:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}

// respondError отправляет ошибку сервиса клиенту
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := StatusFor(err)

	var e *services.Error
	code := "internal"
	message := "внутренняя ошибка сервера"
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if status >= http.StatusInternalServerError {
		log.Error("ошибка обработки запроса",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": message, "code": code})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sendFile отдает сформированный файл как вложение
func sendFile(c *gin.Context, filename, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

// parseID получает числовой идентификатор из пути
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "неверный идентификатор " + name, "code": "invalid_id"})
		return 0, false
	}
	return uint(id), true
}

// queryUint читает необязательный числовой параметр запроса
func queryUint(c *gin.Context, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 32)
	if err != nil {
		return 0
	}
	return uint(v)
}

func queryInt(c *gin.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return v
}
