package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	logctx "github.com/mydata-ng/privacy-client/internal/pkg/log"
	"github.com/mydata-ng/privacy-client/internal/pkg/redact"
)

// Эндпойнты /auth.
const (
	PathRegister       = "/auth/register"
	PathLogin          = "/auth/login"
	PathVerifyOTP      = "/auth/verify-otp"
	PathPasswordless   = "/auth/passwordless"
	PathForgotPassword = "/auth/forgot-password"
	PathResetPassword  = "/auth/reset-password"
	PathLogout         = "/auth/logout"
)

// OTPLength — длина одноразового кода.
const OTPLength = 6

// AuthAPI — вход, регистрация и восстановление доступа.
// Состояние сессии здесь не хранится: этим занимается вызывающий (internal/flow).
type AuthAPI struct {
	c Caller
}

// Register регистрирует пользователя или организацию.
func (a *AuthAPI) Register(ctx context.Context, req models.RegisterRequest) (models.Envelope[models.RegisterResult], error) {
	if err := validateRegister(req); err != nil {
		return models.Envelope[models.RegisterResult]{}, err
	}

	logctx.From(ctx).Debug("auth_register",
		"email", redact.Email(req.Email),
		"phone", redact.Phone(req.Phone),
		"password", redact.Password(),
		"role", req.Role,
	)

	return send[models.RegisterResult](ctx, a.c, http.MethodPost, PathRegister, req)
}

// Login проверяет пароль; при успехе бэкенд отправляет OTP.
func (a *AuthAPI) Login(ctx context.Context, req models.LoginRequest) (models.Envelope[models.LoginResult], error) {
	logctx.From(ctx).Debug("auth_login",
		"email", redact.Email(req.Email),
		"password", redact.Password(),
		"role", req.Role,
	)

	return send[models.LoginResult](ctx, a.c, http.MethodPost, PathLogin, req)
}

// VerifyOTP проверяет код. Код не из 6 цифр отклоняется без сетевого вызова;
// отказ бэкенда (4xx) приходит как APIError, который матчится на ErrInvalidOTP.
func (a *AuthAPI) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (models.Envelope[models.VerifyOTPResult], error) {
	if !ValidOTP(req.OTP) {
		return models.Envelope[models.VerifyOTPResult]{}, apierrors.ErrInvalidOTP
	}

	if req.Purpose == "" {
		req.Purpose = models.OTPPurposeLogin
	}

	logctx.From(ctx).Debug("auth_verify_otp", "user_id", req.UserID, "otp", redact.OTP())

	env, err := send[models.VerifyOTPResult](ctx, a.c, http.MethodPost, PathVerifyOTP, req)
	if err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			return env, apiErr.WithKind(apierrors.ErrInvalidOTP)
		}
		return env, err
	}

	return env, nil
}

// PasswordlessLogin запрашивает вход по ссылке на почту.
func (a *AuthAPI) PasswordlessLogin(ctx context.Context, email string) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, a.c, http.MethodPost, PathPasswordless, models.EmailRequest{Email: email})
}

// ForgotPassword запрашивает ссылку для сброса пароля.
func (a *AuthAPI) ForgotPassword(ctx context.Context, email string) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, a.c, http.MethodPost, PathForgotPassword, models.EmailRequest{Email: email})
}

// ResetPassword устанавливает новый пароль по токену из письма.
func (a *AuthAPI) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (models.Envelope[json.RawMessage], error) {
	logctx.From(ctx).Debug("auth_reset_password", "token", redact.Token(), "password", redact.Password())

	return send[json.RawMessage](ctx, a.c, http.MethodPost, PathResetPassword, req)
}

// Logout отзывает refresh-токен на бэкенде. Локальное состояние не трогает.
func (a *AuthAPI) Logout(ctx context.Context, refreshToken string) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, a.c, http.MethodPost, PathLogout, models.LogoutRequest{RefreshToken: refreshToken})
}

// ValidOTP — ровно 6 ASCII-цифр.
func ValidOTP(otp string) bool {
	if len(otp) != OTPLength {
		return false
	}

	for i := 0; i < len(otp); i++ {
		if otp[i] < '0' || otp[i] > '9' {
			return false
		}
	}

	return true
}

type field struct{ name, value string }

// validateRegister проверяет роль и обязательные для неё поля.
func validateRegister(req models.RegisterRequest) error {
	if !req.Role.Valid() {
		return apierrors.ErrInvalidRole
	}

	required := []field{
		{"email", req.Email},
		{"phone", req.Phone},
		{"password", req.Password},
	}

	switch req.Role {
	case models.RoleUser:
		required = append(required, field{"firstName", req.FirstName}, field{"lastName", req.LastName})
	case models.RoleOrganization:
		required = append(required, field{"organizationName", req.OrganizationName})
	}

	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return apierrors.MissingField(f.name)
		}
	}

	return nil
}
