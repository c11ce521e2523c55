package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mydata-ng/privacy-client/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Ключи, под которыми состояние сессии лежит в Store.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyUserID       = "userId"
	KeyTempEmail    = "tempEmail"
)

// AllKeys — все ключи сессии; Clear удаляет именно их.
var AllKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyUserID, KeyTempEmail}

// Session — типизированная обёртка над Store с фиксированным набором ключей.
// Реализует transport.TokenSource.
type Session struct {
	store Store
}

// New оборачивает хранилище.
func New(store Store) *Session {
	return &Session{store: store}
}

// AccessToken — текущий access-токен; "" если сессии нет.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("session/AccessToken: %w", err)
	}

	return v, nil
}

// Tokens возвращает пару токенов; отсутствующие поля пустые.
func (s *Session) Tokens(ctx context.Context) (models.TokenPair, error) {
	const op = "session/Tokens"

	access, _, err := s.store.Get(ctx, KeyAccessToken)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, _, err := s.store.Get(ctx, KeyRefreshToken)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// SaveLogin сохраняет токены и профиль после успешной проверки OTP
// и удаляет Pending-Auth Marker.
func (s *Session) SaveLogin(ctx context.Context, res models.VerifyOTPResult) error {
	const op = "session/SaveLogin"

	user, err := json.Marshal(res.User)
	if err != nil {
		return fmt.Errorf("%s: encode user: %w", op, err)
	}

	tokens := res.Tokens()
	for _, kv := range [][2]string{
		{KeyAccessToken, tokens.AccessToken},
		{KeyRefreshToken, tokens.RefreshToken},
		{KeyUser, string(user)},
	} {
		if err := s.store.Set(ctx, kv[0], kv[1]); err != nil {
			// Частично записанный вход не должен выглядеть как активная сессия.
			if rerr := s.store.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.ClearPendingAuth(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// User возвращает сохранённый профиль и признак его наличия.
func (s *Session) User(ctx context.Context) (models.User, bool, error) {
	const op = "session/User"

	raw, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return models.User{}, false, fmt.Errorf("%s: %w", op, err)
	}

	if !ok || raw == "" {
		return models.User{}, false, nil
	}

	var u models.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return models.User{}, false, fmt.Errorf("%s: decode: %w", op, err)
	}

	return u, true, nil
}

// PendingAuth возвращает маркер незавершённого входа.
// Маркер считается присутствующим, только если userId непустой.
func (s *Session) PendingAuth(ctx context.Context) (models.PendingAuth, bool, error) {
	const op = "session/PendingAuth"

	uid, _, err := s.store.Get(ctx, KeyUserID)
	if err != nil {
		return models.PendingAuth{}, false, fmt.Errorf("%s: %w", op, err)
	}

	if uid == "" {
		return models.PendingAuth{}, false, nil
	}

	email, _, err := s.store.Get(ctx, KeyTempEmail)
	if err != nil {
		return models.PendingAuth{}, false, fmt.Errorf("%s: %w", op, err)
	}

	return models.PendingAuth{UserID: uid, TempEmail: email}, true, nil
}

// SavePendingAuth сохраняет маркер после регистрации или входа.
func (s *Session) SavePendingAuth(ctx context.Context, p models.PendingAuth) error {
	const op = "session/SavePendingAuth"

	if err := s.store.Set(ctx, KeyUserID, p.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.Set(ctx, KeyTempEmail, p.TempEmail); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ClearPendingAuth удаляет маркер.
func (s *Session) ClearPendingAuth(ctx context.Context) error {
	if err := s.store.Delete(ctx, KeyUserID, KeyTempEmail); err != nil {
		return fmt.Errorf("session/ClearPendingAuth: %w", err)
	}

	return nil
}

// Clear удаляет всё состояние сессии.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.store.Delete(ctx, AllKeys...); err != nil {
		return fmt.Errorf("session/Clear: %w", err)
	}

	return nil
}

// Status — снимок сессии для отображения.
type Status struct {
	LoggedIn      bool                `json:"loggedIn"`
	User          *models.User        `json:"user,omitempty"`
	Name          string              `json:"name,omitempty"`
	AccessExpires *time.Time          `json:"accessExpires,omitempty"`
	Pending       *models.PendingAuth `json:"pending,omitempty"`
}

// Status собирает снимок. Нечитаемый access-токен не считается ошибкой:
// срок действия просто не показывается.
func (s *Session) Status(ctx context.Context) (Status, error) {
	var st Status

	tokens, err := s.Tokens(ctx)
	if err != nil {
		return Status{}, err
	}
	st.LoggedIn = tokens.AccessToken != ""

	if st.LoggedIn {
		if exp, ok, err := AccessExpiry(tokens.AccessToken); err == nil && ok {
			st.AccessExpires = &exp
		}
	}

	u, ok, err := s.User(ctx)
	if err != nil {
		return Status{}, err
	}
	if ok {
		st.User = &u
		st.Name = u.DisplayName()
	}

	p, ok, err := s.PendingAuth(ctx)
	if err != nil {
		return Status{}, err
	}
	if ok {
		st.Pending = &p
	}

	return st, nil
}

// ErrMalformedToken — access-токен не является JWT.
var ErrMalformedToken = errors.New("malformed access token")

// AccessExpiry читает claim exp из access-токена без проверки подписи.
// Только для отображения: клиент не обновляет токены сам.
func AccessExpiry(token string) (time.Time, bool, error) {
	const op = "session/AccessExpiry"

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w: %v", op, ErrMalformedToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w: %v", op, ErrMalformedToken, err)
	}

	if exp == nil {
		return time.Time{}, false, nil
	}

	return exp.Time.UTC(), true, nil
}
