// errors стандартизирует ошибки клиентского слоя MyData.
//
// Для вызывающего (CLI/UI) любая ошибка сводится к одной человекочитаемой
// строке (см. Message). Источники:
//   - ответ бэкенда с не-2xx статусом — *APIError, сообщение берётся из
//     body.message, затем body.errors[0].message, затем FallbackMessage;
//   - локальная валидация и состояние сессии — ошибки-сентинелы ниже,
//     возвращаются до любого сетевого вызова;
//   - сетевые сбои (DNS, TLS, отказ соединения) — пробрасываются как есть,
//     обёрнутые op-префиксом.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FallbackMessage — сообщение, если бэкенд не прислал ни message, ни errors[].
const FallbackMessage = "Something went wrong"

// StatusClientClosedRequest — нестандартный код "клиент закрыл соединение".
const StatusClientClosedRequest = 499

var (
	// ErrSessionExpired — нет Pending-Auth Marker (userId) на шаге ввода OTP.
	ErrSessionExpired = newLocal("Session expired. Please try logging in again.")
	// ErrInvalidOTP — код не из 6 цифр, либо бэкенд отверг его.
	ErrInvalidOTP = newLocal("Please enter a valid 6-digit OTP")
	// ErrPolicyIncomplete — пустое название организации или текст политики.
	ErrPolicyIncomplete = newLocal("Please provide both policy text and organization name")
	// ErrPolicyTooShort — текст политики короче 100 символов.
	ErrPolicyTooShort = newLocal("Policy text too short. Minimum 100 characters required.")
	// ErrNoFieldsApproved — ни одно поле не отмечено, отправка согласия запрещена.
	ErrNoFieldsApproved = newLocal("Select at least one data field to approve")
	// ErrInvalidRole — роль не user и не organization.
	ErrInvalidRole = newLocal("Role must be either user or organization")
	// ErrMissingField — не заполнено обязательное поле (см. MissingField).
	ErrMissingField = newLocal("Required field is missing")
	// ErrUnknownField — поля нет в запросе организации (см. UnknownField).
	ErrUnknownField = newLocal("Data field is not part of this request")
	// ErrInvalidLanguage — язык вне {en, pidgin, yo, ig, ha}.
	ErrInvalidLanguage = newLocal("Unsupported summary language")
	// ErrInvalidExpiration — отрицательный срок действия согласия.
	ErrInvalidExpiration = newLocal("Expiration must be zero or a positive number of days")
	// ErrInvalidAction — неизвестное действие при подтверждении алерта.
	ErrInvalidAction = newLocal("Unknown alert action")
	// ErrInvalidIndustry — отрасль вне поддерживаемого списка.
	ErrInvalidIndustry = newLocal("Unknown industry")
	// ErrBusy — предыдущее действие ещё выполняется (аналог disabled-кнопки).
	ErrBusy = newLocal("Another request is still in progress")
)

// localError — ошибка, отклонённая на клиенте до отправки запроса.
// kind позволяет уточнённой ошибке (MissingField) матчиться на общий сентинел.
type localError struct {
	msg  string
	kind error
}

func newLocal(msg string) error { return &localError{msg: msg} }

func (e *localError) Error() string { return e.msg }

func (e *localError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// MissingField возвращает ошибку вида "<name> is required",
// которая матчится на ErrMissingField.
func MissingField(name string) error {
	return &localError{msg: name + " is required", kind: ErrMissingField}
}

// UnknownField — поле name отсутствует в запросе; матчится на ErrUnknownField.
func UnknownField(name string) error {
	return &localError{msg: name + " is not part of this request", kind: ErrUnknownField}
}

// APIError — нормализованный отказ бэкенда.
// Message — единственное значимое поле для вызывающего.
// Kind — необязательный сентинел для errors.Is (например, ErrInvalidOTP).
type APIError struct {
	Status    int
	Message   string
	RequestID string
	Kind      error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return FallbackMessage
	}

	return e.Message
}

func (e *APIError) Is(target error) bool {
	return e.Kind != nil && target == e.Kind
}

// GRPCStatus позволяет использовать status.Code(err) для APIError.
func (e *APIError) GRPCStatus() *status.Status {
	return status.New(CodeFromHTTP(e.Status), e.Error())
}

// WithKind возвращает копию ошибки с заданным сентинелом.
func (e *APIError) WithKind(kind error) *APIError {
	cp := *e
	cp.Kind = kind
	return &cp
}

// FromResponse строит APIError из статуса и сырого тела ответа.
func FromResponse(statusCode int, body []byte, requestID string) *APIError {
	return &APIError{
		Status:    statusCode,
		Message:   MessageFromBody(body),
		RequestID: requestID,
	}
}

// MessageFromBody извлекает сообщение по приоритету:
// body.message -> body.errors[0].message -> FallbackMessage.
// Нестроковые и пустые значения пропускаются, невалидный JSON даёт fallback.
func MessageFromBody(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return FallbackMessage
	}

	if msg := stringField(fields["message"]); msg != "" {
		return msg
	}

	var list []map[string]json.RawMessage
	if raw, ok := fields["errors"]; ok && json.Unmarshal(raw, &list) == nil && len(list) > 0 {
		if msg := stringField(list[0]["message"]); msg != "" {
			return msg
		}
	}

	return FallbackMessage
}

func stringField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}

// Message сводит любую ошибку к строке для показа пользователю.
func Message(err error) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Error()
	}

	var local *localError
	if stderrors.As(err, &local) {
		return local.Error()
	}

	return err.Error()
}

// IsLocal сообщает, что ошибка отклонена на клиенте без сетевого вызова.
func IsLocal(err error) bool {
	var local *localError
	return stderrors.As(err, &local)
}

// CodeFromHTTP — обратный маппинг HTTP-статуса в gRPC-код
// (зеркало таблицы шлюза: 400 -> InvalidArgument, 401 -> Unauthenticated и т.д.).
func CodeFromHTTP(statusCode int) codes.Code {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return codes.OK
	case statusCode == http.StatusBadRequest:
		return codes.InvalidArgument
	case statusCode == http.StatusUnauthorized:
		return codes.Unauthenticated
	case statusCode == http.StatusForbidden:
		return codes.PermissionDenied
	case statusCode == http.StatusNotFound:
		return codes.NotFound
	case statusCode == http.StatusConflict:
		return codes.AlreadyExists
	case statusCode == http.StatusPreconditionFailed:
		return codes.FailedPrecondition
	case statusCode == http.StatusTooManyRequests:
		return codes.ResourceExhausted
	case statusCode == StatusClientClosedRequest:
		return codes.Canceled
	case statusCode == http.StatusNotImplemented:
		return codes.Unimplemented
	case statusCode == http.StatusServiceUnavailable:
		return codes.Unavailable
	case statusCode == http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	case statusCode >= 500:
		return codes.Internal
	default:
		return codes.Unknown
	}
}
