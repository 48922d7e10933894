package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind вид ошибки бизнес-логики
type ErrorKind string

const (
	KindValidation  ErrorKind = "ValidationError"
	KindState       ErrorKind = "StateConflict"
	KindUnavailable ErrorKind = "ResourceUnavailable"
	KindArithmetic  ErrorKind = "ArithmeticError"
	KindTransient   ErrorKind = "TransientError"
)

// Error ошибка бизнес-логики с видом и кодом причины
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал
// и для ошибок с уточненным сообщением
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// With возвращает копию ошибки с уточненным сообщением
func (e *Error) With(format string, args ...any) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

var (
	// Ошибки сервисов, сравниваются через errors.Is
	ErrValidation              = newError(KindValidation, "validation", "ошибка валидации")
	ErrInvalidAmount           = newError(KindValidation, "invalid_amount", "сумма должна быть больше 0")
	ErrInvalidRange            = newError(KindValidation, "invalid_range", "количество месяцев должно быть от 1 до 120")
	ErrInvalidPayDay           = newError(KindValidation, "invalid_pay_day", "день платежа должен быть от 1 до 31")
	ErrInvalidPrice            = newError(KindValidation, "invalid_price", "стоимость квартиры должна быть больше 0")
	ErrExceedsBalance          = newError(KindValidation, "exceeds_balance", "сумма платежа больше остатка по месяцу")
	ErrZeroTermPartialPayment  = newError(KindValidation, "zero_term_partial_payment", "срок 0 месяцев допустим только при полной оплате")
	ErrBelowAmountPaid         = newError(KindValidation, "below_amount_paid", "сумма месяца не может быть меньше уже оплаченной")
	ErrNoUnpaidLines           = newError(KindValidation, "no_unpaid_lines", "по договору нет неоплаченных месяцев")
	ErrEmptyEdit               = newError(KindValidation, "empty_edit", "нет изменений для сохранения")
	ErrBelowPaidFloor          = newError(KindState, "below_paid_floor", "новое количество месяцев меньше количества оплаченных месяцев")
	ErrCannotDeleteSettledLine = newError(KindState, "cannot_delete_settled_line", "нельзя удалить оплаченные месяцы")
	ErrInvalidFile             = newError(KindValidation, "invalid_file", "неверный формат файла")
	ErrInvalidCredentials      = newError(KindValidation, "invalid_credentials", "неверный email или пароль")
	ErrDuplicateEmail          = newError(KindState, "duplicate_email", "пользователь с таким email уже существует")
	ErrDuplicateClient         = newError(KindState, "duplicate_client", "такой клиент уже существует")
	ErrNoChange                = newError(KindState, "no_change", "количество месяцев не изменилось")
	ErrAlreadySettled          = newError(KindState, "already_settled", "этот месяц уже полностью оплачен")
	ErrInvalidTransition       = newError(KindState, "invalid_transition", "недопустимая смена статуса договора")
	ErrContractClosed          = newError(KindState, "contract_closed", "договор закрыт, изменения невозможны")
	ErrTermsLocked             = newError(KindState, "terms_locked", "условия договора можно менять только при оформлении")
	ErrRegenerateAfterPayments = newError(KindState, "regenerate_after_payments", "по договору уже есть оплаты, пересоздать график нельзя")
	ErrNoLineForBalance        = newError(KindState, "no_line_for_balance", "не осталось неоплаченных месяцев для остатка")
	ErrHasDependents           = newError(KindState, "has_dependents", "запись используется и не может быть удалена")
	ErrUnitUnavailable         = newError(KindUnavailable, "unit_unavailable", "квартира уже занята")
	ErrNotFound                = newError(KindUnavailable, "not_found", "запись не найдена")
	ErrContractNotFound        = newError(KindUnavailable, "contract_not_found", "договор не найден")
	ErrLineNotFound            = newError(KindUnavailable, "line_not_found", "месяц графика не найден")
	ErrUnitNotFound            = newError(KindUnavailable, "unit_not_found", "квартира не найдена")
	ErrNegativeResidual        = newError(KindArithmetic, "negative_residual", "остаток по договору получился отрицательным")
	ErrTransient               = newError(KindTransient, "transient", "временная ошибка базы данных, повторите запрос")
)

// KindOf возвращает вид ошибки. Неизвестные ошибки считаются временными.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// notFound переводит gorm.ErrRecordNotFound в ошибку сервиса
func notFound(err error, target *Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return transient(err)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// transient оборачивает ошибку базы данных
func transient(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
