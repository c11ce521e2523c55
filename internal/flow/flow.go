// flow — сценарии входа и выхода на стороне клиента.
//
// AuthAPI только передаёт запросы; flow отвечает за состояние сессии между
// шагами: сохраняет Pending-Auth Marker после регистрации или входа, токены и
// профиль после проверки OTP, очищает всё при выходе. Одновременно выполняется
// не более одного действия: повторный вызов во время выполнения получает ErrBusy.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	logctx "github.com/mydata-ng/privacy-client/internal/pkg/log"
	"github.com/mydata-ng/privacy-client/internal/pkg/redact"
	"github.com/mydata-ng/privacy-client/internal/session"
)

// Auth — контракт клиента /auth (api.AuthAPI).
type Auth interface {
	Register(ctx context.Context, req models.RegisterRequest) (models.Envelope[models.RegisterResult], error)
	Login(ctx context.Context, req models.LoginRequest) (models.Envelope[models.LoginResult], error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (models.Envelope[models.VerifyOTPResult], error)
	PasswordlessLogin(ctx context.Context, email string) (models.Envelope[json.RawMessage], error)
	ForgotPassword(ctx context.Context, email string) (models.Envelope[json.RawMessage], error)
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (models.Envelope[json.RawMessage], error)
	Logout(ctx context.Context, refreshToken string) (models.Envelope[json.RawMessage], error)
}

// Flow — сценарии аутентификации поверх Auth и Session.
type Flow struct {
	auth Auth
	sess *session.Session
	busy atomic.Bool
}

// New создаёт Flow.
func New(auth Auth, sess *session.Session) *Flow {
	return &Flow{auth: auth, sess: sess}
}

// acquire занимает Flow на время действия.
func (f *Flow) acquire() (func(), error) {
	if !f.busy.CompareAndSwap(false, true) {
		return nil, apierrors.ErrBusy
	}

	return func() { f.busy.Store(false) }, nil
}

// Register регистрирует учётную запись и сохраняет маркер для шага OTP.
func (f *Flow) Register(ctx context.Context, req models.RegisterRequest) (models.RegisterResult, error) {
	release, err := f.acquire()
	if err != nil {
		return models.RegisterResult{}, err
	}
	defer release()

	env, err := f.auth.Register(ctx, req)
	if err != nil {
		return models.RegisterResult{}, err
	}

	if err := f.sess.SavePendingAuth(ctx, models.PendingAuth{UserID: env.Data.UserID, TempEmail: req.Email}); err != nil {
		return env.Data, err
	}

	logctx.From(ctx).Info("otp_pending", "step", "register", "user_id", env.Data.UserID, "email", redact.Email(req.Email))
	return env.Data, nil
}

// Login проверяет пароль и сохраняет маркер для шага OTP.
func (f *Flow) Login(ctx context.Context, req models.LoginRequest) (models.LoginResult, error) {
	release, err := f.acquire()
	if err != nil {
		return models.LoginResult{}, err
	}
	defer release()

	env, err := f.auth.Login(ctx, req)
	if err != nil {
		return models.LoginResult{}, err
	}

	if err := f.sess.SavePendingAuth(ctx, models.PendingAuth{UserID: env.Data.UserID, TempEmail: req.Email}); err != nil {
		return env.Data, err
	}

	logctx.From(ctx).Info("otp_pending", "step", "login", "user_id", env.Data.UserID, "email", redact.Email(req.Email))
	return env.Data, nil
}

// VerifyOTP завершает вход. Без маркера — ErrSessionExpired без сетевого вызова.
// При успехе сохраняет токены и профиль, маркер удаляется.
func (f *Flow) VerifyOTP(ctx context.Context, otp string) (models.User, error) {
	release, err := f.acquire()
	if err != nil {
		return models.User{}, err
	}
	defer release()

	pending, ok, err := f.sess.PendingAuth(ctx)
	if err != nil {
		return models.User{}, err
	}

	if !ok {
		return models.User{}, apierrors.ErrSessionExpired
	}

	env, err := f.auth.VerifyOTP(ctx, models.VerifyOTPRequest{
		UserID:  pending.UserID,
		OTP:     otp,
		Purpose: models.OTPPurposeLogin,
	})
	if err != nil {
		return models.User{}, err
	}

	if err := f.sess.SaveLogin(ctx, env.Data); err != nil {
		return models.User{}, err
	}

	logctx.From(ctx).Info("login_completed", "user_id", env.Data.User.ID, "role", env.Data.User.Role)
	return env.Data.User, nil
}

// PendingEmail — адрес, на который отправлен OTP, если маркер есть.
func (f *Flow) PendingEmail(ctx context.Context) (string, bool, error) {
	p, ok, err := f.sess.PendingAuth(ctx)
	if err != nil || !ok {
		return "", false, err
	}

	return p.TempEmail, true, nil
}

// PasswordlessLogin запрашивает ссылку для входа без пароля.
func (f *Flow) PasswordlessLogin(ctx context.Context, email string) (string, error) {
	release, err := f.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	env, err := f.auth.PasswordlessLogin(ctx, email)
	return env.Message, err
}

// ForgotPassword запрашивает ссылку для сброса пароля.
func (f *Flow) ForgotPassword(ctx context.Context, email string) (string, error) {
	release, err := f.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	env, err := f.auth.ForgotPassword(ctx, email)
	return env.Message, err
}

// ResetPassword устанавливает новый пароль по токену из письма.
func (f *Flow) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) (string, error) {
	release, err := f.acquire()
	if err != nil {
		return "", err
	}
	defer release()

	env, err := f.auth.ResetPassword(ctx, req)
	return env.Message, err
}

// Logout отзывает refresh-токен и очищает сессию. Локальное состояние
// очищается при любом ответе сервера; ошибка сервера возвращается.
func (f *Flow) Logout(ctx context.Context) error {
	release, err := f.acquire()
	if err != nil {
		return err
	}
	defer release()

	log := logctx.From(ctx)

	tokens, err := f.sess.Tokens(ctx)
	if err != nil {
		return err
	}

	var remote error
	if tokens.AccessToken != "" || tokens.RefreshToken != "" {
		_, remote = f.auth.Logout(ctx, tokens.RefreshToken)
		if remote != nil {
			log.Warn("logout_rejected", "err", apierrors.Message(remote))
		}
	}

	if err := f.sess.Clear(ctx); err != nil {
		return errors.Join(remote, err)
	}

	log.Info("session_cleared")
	return remote
}
