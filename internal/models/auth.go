package models

// Role — тип учётной записи при регистрации и входе.
type Role string

const (
	RoleUser         Role = "user"
	RoleOrganization Role = "organization"
)

// Valid сообщает, что роль входит в {user, organization}.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleOrganization
}

// OTPPurposeLogin — единственное назначение OTP, которое использует клиент.
const OTPPurposeLogin = "login"

// RegisterRequest — тело POST /auth/register.
// FirstName/LastName обязательны для роли user, OrganizationName — для organization.
type RegisterRequest struct {
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	Role             Role   `json:"role"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// RegisterResult — data ответа на регистрацию.
type RegisterResult struct {
	UserID string `json:"userId"`
}

// LoginRequest — тело POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// LoginResult — data ответа на вход: кому и каким каналом отправлен OTP.
type LoginResult struct {
	UserID string `json:"userId"`
	Method string `json:"method"`
}

// VerifyOTPRequest — тело POST /auth/verify-otp.
type VerifyOTPRequest struct {
	UserID  string `json:"userId"`
	OTP     string `json:"otp"`
	Purpose string `json:"purpose"`
}

// VerifyOTPResult — data ответа на проверку OTP: пара токенов и профиль.
type VerifyOTPResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}

// Tokens возвращает пару токенов из результата проверки OTP.
func (r VerifyOTPResult) Tokens() TokenPair {
	return TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// EmailRequest — тело /auth/passwordless и /auth/forgot-password.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest — тело POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// LogoutRequest — тело POST /auth/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPair — пара токенов сессии, хранится только на устройстве клиента.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// PendingAuth — временный маркер между шагом login/register и вводом OTP.
type PendingAuth struct {
	UserID    string
	TempEmail string
}
