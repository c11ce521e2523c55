package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/mydata-ng/privacy-client/internal/client"
	"github.com/mydata-ng/privacy-client/internal/client/clienttest"
	"github.com/mydata-ng/privacy-client/internal/client/transport"
	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	"github.com/stretchr/testify/require"
)

// tokenBox — потокобезопасный источник токена для тестов.
type tokenBox struct {
	mu  sync.Mutex
	tok string
}

func (b *tokenBox) set(tok string) {
	b.mu.Lock()
	b.tok = tok
	b.mu.Unlock()
}

func (b *tokenBox) AccessToken(context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tok, nil
}

var _ transport.TokenSource = (*tokenBox)(nil)

func newAPI(t *testing.T) (*Clients, *clienttest.Backend, *tokenBox) {
	t.Helper()

	be := clienttest.New(t)
	tokens := &tokenBox{}

	c, err := client.New(client.Options{
		BaseURL:   be.BaseURL(),
		Tokens:    tokens,
		Transport: http.DefaultTransport,
	})
	require.NoError(t, err)

	return New(c), be, tokens
}

func userRegistration() models.RegisterRequest {
	return models.RegisterRequest{
		Email:     "ada@example.com",
		Phone:     "+2348012345678",
		Password:  "S3cret!pass",
		Role:      models.RoleUser,
		FirstName: "Ada",
		LastName:  "Obi",
	}
}

// stubCaller — Caller с заранее заданным ответом.
type stubCaller struct {
	raw json.RawMessage
	err error
}

func (s stubCaller) Call(context.Context, string, client.RequestOptions) (json.RawMessage, error) {
	return s.raw, s.err
}

func TestDecodeEnvelope_SuccessFalseIsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "with message", raw: `{"success":false,"message":"Account locked"}`, want: "Account locked"},
		{name: "without message", raw: `{"success":false}`, want: apierrors.FallbackMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a := New(stubCaller{raw: json.RawMessage(tt.raw)})
			_, err := a.Users.GetProfile(context.Background())
			require.EqualError(t, err, tt.want)

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, http.StatusOK, apiErr.Status)
		})
	}
}

func TestDecodeEnvelope_EmptyAndMissingSuccess(t *testing.T) {
	t.Parallel()

	env, err := New(stubCaller{}).Users.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.User{}, env.Data)

	env, err = New(stubCaller{raw: json.RawMessage(`{"data":{"id":"u1"}}`)}).Users.GetProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", env.Data.ID)
}

func TestAuth_RegisterValidation(t *testing.T) {
	t.Parallel()

	a, be, _ := newAPI(t)

	tests := []struct {
		name    string
		mutate  func(*models.RegisterRequest)
		wantErr error
		wantMsg string
	}{
		{name: "bad role", mutate: func(r *models.RegisterRequest) { r.Role = "admin" }, wantErr: apierrors.ErrInvalidRole},
		{name: "no email", mutate: func(r *models.RegisterRequest) { r.Email = " " }, wantErr: apierrors.ErrMissingField, wantMsg: "email is required"},
		{name: "no phone", mutate: func(r *models.RegisterRequest) { r.Phone = "" }, wantErr: apierrors.ErrMissingField, wantMsg: "phone is required"},
		{name: "user without last name", mutate: func(r *models.RegisterRequest) { r.LastName = "" }, wantErr: apierrors.ErrMissingField, wantMsg: "lastName is required"},
		{name: "org without name", mutate: func(r *models.RegisterRequest) {
			r.Role = models.RoleOrganization
			r.FirstName, r.LastName = "", ""
		}, wantErr: apierrors.ErrMissingField, wantMsg: "organizationName is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := userRegistration()
			tt.mutate(&req)

			_, err := a.Auth.Register(context.Background(), req)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				require.EqualError(t, err, tt.wantMsg)
			}
		})
	}

	require.Zero(t, be.Count(http.MethodPost, PathRegister))
}

func TestAuth_RegisterAndLogin(t *testing.T) {
	t.Parallel()

	a, be, _ := newAPI(t)
	ctx := context.Background()

	reg, err := a.Auth.Register(ctx, userRegistration())
	require.NoError(t, err)
	require.True(t, reg.Success)
	require.NotEmpty(t, reg.Data.UserID)

	rec, ok := be.Last(http.MethodPost, PathRegister)
	require.True(t, ok)
	require.Empty(t, rec.Header.Get("Authorization"))
	var sent map[string]any
	rec.Decode(t, &sent)
	require.Equal(t, "Ada", sent["firstName"])
	require.NotContains(t, sent, "organizationName")

	login, err := a.Auth.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "S3cret!pass", Role: models.RoleUser})
	require.NoError(t, err)
	require.Equal(t, reg.Data.UserID, login.Data.UserID)

	_, err = a.Auth.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "wrong", Role: models.RoleUser})
	require.EqualError(t, err, "Invalid credentials")

	_, err = a.Auth.Register(ctx, userRegistration())
	require.EqualError(t, err, "User already exists")
}

func TestAuth_VerifyOTP(t *testing.T) {
	t.Parallel()

	a, be, _ := newAPI(t)
	ctx := context.Background()
	uid := be.AddUser("ada@example.com", "pw", models.RoleUser)

	for _, bad := range []string{"", "12345", "1234567", "12a456", "１２３４５６"} {
		_, err := a.Auth.VerifyOTP(ctx, models.VerifyOTPRequest{UserID: uid, OTP: bad})
		require.ErrorIs(t, err, apierrors.ErrInvalidOTP, "otp=%q", bad)
	}
	require.Zero(t, be.Count(http.MethodPost, PathVerifyOTP))

	_, err := a.Auth.VerifyOTP(ctx, models.VerifyOTPRequest{UserID: uid, OTP: "000000"})
	require.ErrorIs(t, err, apierrors.ErrInvalidOTP)
	require.EqualError(t, err, "Invalid or expired OTP")

	res, err := a.Auth.VerifyOTP(ctx, models.VerifyOTPRequest{UserID: uid, OTP: clienttest.ValidOTP})
	require.NoError(t, err)
	require.Equal(t, "access-"+uid, res.Data.AccessToken)
	require.Equal(t, "ada@example.com", res.Data.User.Email)

	rec, _ := be.Last(http.MethodPost, PathVerifyOTP)
	var sent models.VerifyOTPRequest
	rec.Decode(t, &sent)
	require.Equal(t, models.OTPPurposeLogin, sent.Purpose)
}

func TestAuth_VerifyOTP_ServerErrorKeepsKind(t *testing.T) {
	t.Parallel()

	a, be, _ := newAPI(t)
	be.Fail(http.MethodPost, PathVerifyOTP, http.StatusInternalServerError, `{"message":"db down"}`)

	_, err := a.Auth.VerifyOTP(context.Background(), models.VerifyOTPRequest{UserID: "u", OTP: "123456"})
	require.EqualError(t, err, "db down")
	require.NotErrorIs(t, err, apierrors.ErrInvalidOTP)
}

func TestAuth_PasswordRecovery(t *testing.T) {
	t.Parallel()

	a, be, _ := newAPI(t)
	ctx := context.Background()

	env, err := a.Auth.PasswordlessLogin(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "Login link sent to your email", env.Message)

	env, err = a.Auth.ForgotPassword(ctx, "ada@example.com")
	require.NoError(t, err)
	require.True(t, env.Success)

	rec, _ := be.Last(http.MethodPost, PathForgotPassword)
	require.JSONEq(t, `{"email":"ada@example.com"}`, string(rec.Body))

	_, err = a.Auth.ResetPassword(ctx, models.ResetPasswordRequest{Password: "x"})
	require.EqualError(t, err, "Reset token is required")

	_, err = a.Auth.ResetPassword(ctx, models.ResetPasswordRequest{Token: "t", Password: "x", ConfirmPassword: "x"})
	require.NoError(t, err)
}

func TestAuth_LogoutRequiresBearer(t *testing.T) {
	t.Parallel()

	a, be, tokens := newAPI(t)
	ctx := context.Background()

	_, err := a.Auth.Logout(ctx, "refresh-x")
	require.EqualError(t, err, "Unauthorized")

	uid := be.AddUser("ada@example.com", "pw", models.RoleUser)
	tokens.set(be.IssueToken(uid))

	_, err = a.Auth.Logout(ctx, "refresh-"+uid)
	require.NoError(t, err)

	rec, _ := be.Last(http.MethodPost, PathLogout)
	require.Equal(t, "Bearer access-"+uid, rec.Header.Get("Authorization"))
	require.JSONEq(t, `{"refreshToken":"refresh-`+uid+`"}`, string(rec.Body))
}

func TestUsers_ProfileAndLists(t *testing.T) {
	t.Parallel()

	a, be, tokens := newAPI(t)
	ctx := context.Background()
	uid := be.AddUser("ada@example.com", "pw", models.RoleUser)
	tokens.set(be.IssueToken(uid))

	p, err := a.Users.GetProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, uid, p.Data.ID)

	p, err = a.Users.UpdateProfile(ctx, models.UpdateProfileRequest{Phone: "+2348000000000"})
	require.NoError(t, err)
	require.Equal(t, "+2348000000000", p.Data.Phone)
	require.Equal(t, 1, be.Count(http.MethodPut, PathProfile))

	perms, err := a.Users.GetPermissions(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(perms.Data), "["))

	_, err = a.Users.GetAccessLogs(ctx)
	require.NoError(t, err)
}

func TestDashboard_Reads(t *testing.T) {
	t.Parallel()

	a, be, tokens := newAPI(t)
	ctx := context.Background()
	tokens.set(be.IssueToken(be.AddUser("ada@example.com", "pw", models.RoleUser)))

	_, err := a.Dashboard.GetOverview(ctx)
	require.NoError(t, err)
	_, err = a.Dashboard.GetPermissionStats(ctx)
	require.NoError(t, err)
	_, err = a.Dashboard.GetSecurityInsights(ctx)
	require.NoError(t, err)

	alerts, err := a.Dashboard.GetAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts.Data, 2)
	require.Equal(t, "QuickLoans Ltd", alerts.Data[0].OrganizationName())

	for _, p := range []string{PathDashboard, PathPermissionStats, PathSecurity, PathAlerts} {
		require.Equal(t, 1, be.Count(http.MethodGet, p), p)
	}
}

func TestDashboard_RepeatedReadsAreNotCached(t *testing.T) {
	t.Parallel()

	a, be, tokens := newAPI(t)
	ctx := context.Background()
	token := be.IssueToken(be.AddUser("ada@example.com", "pw", models.RoleUser))
	tokens.set(token)

	first, err := a.Dashboard.GetOverview(ctx)
	require.NoError(t, err)
	second, err := a.Dashboard.GetOverview(ctx)
	require.NoError(t, err)
	require.Equal(t, first.Data, second.Data)

	require.Equal(t, 2, be.Count(http.MethodGet, PathDashboard))

	var seen []http.Header
	for _, r := range be.Requests() {
		if r.Method == http.MethodGet && r.Path == clienttest.BasePath+PathDashboard {
			seen = append(seen, r.Header.Clone())
		}
	}
	require.Len(t, seen, 2)

	require.Equal(t, "Bearer "+token, seen[0].Get("Authorization"))
	require.Equal(t, seen[0].Get("Authorization"), seen[1].Get("Authorization"))
	require.Equal(t, "application/json", seen[1].Get("Content-Type"))

	// X-Request-Id уникален для каждого запроса, остальные заголовки совпадают.
	require.NotEmpty(t, seen[0].Get(transport.HeaderRequestID))
	require.NotEqual(t, seen[0].Get(transport.HeaderRequestID), seen[1].Get(transport.HeaderRequestID))
	for _, h := range seen {
		h.Del(transport.HeaderRequestID)
	}
	require.Equal(t, seen[0], seen[1])
}

func TestAlerts_Acknowledge(t *testing.T) {
	t.Parallel()

	a, be, tokens := newAPI(t)
	ctx := context.Background()
	tokens.set(be.IssueToken(be.AddUser("ada@example.com", "pw", models.RoleUser)))

	_, err := a.Alerts.Acknowledge(ctx, "alert-1", "ignore")
	require.ErrorIs(t, err, apierrors.ErrInvalidAction)

	_, err = a.Alerts.Acknowledge(ctx, "alert-1", models.ActionRevokedConsent)
	require.NoError(t, err)
	require.Equal(t, models.ActionRevokedConsent, be.Acknowledged()["alert-1"])

	_, err = a.Alerts.Acknowledge(ctx, "nope", models.ActionReported)
	require.EqualError(t, err, "Alert not found")
}

func TestConsent_SubmitAndSummary(t *testing.T) {
	t.Parallel()

	a, be, tokens := newAPI(t)
	ctx := context.Background()
	tokens.set(be.IssueToken(be.AddUser("ada@example.com", "pw", models.RoleUser)))

	_, err := a.Consent.Submit(ctx, models.ConsentDecision{})
	require.ErrorIs(t, err, apierrors.ErrNoFieldsApproved)

	d := models.ConsentDecision{
		DataFields:  []models.ApprovedField{{FieldName: "email", Approved: true, Purpose: "KYC"}},
		Purpose:     "KYC",
		ConsentType: models.ConsentOneTime,
		Language:    models.LanguageEnglish,
	}
	_, err = a.Consent.Submit(ctx, d)
	require.NoError(t, err)
	require.Len(t, be.Consents(), 1)

	rec, _ := be.Last(http.MethodPost, PathConsents)
	var sent map[string]any
	rec.Decode(t, &sent)
	require.Contains(t, sent, "expiresAt")
	require.Nil(t, sent["expiresAt"])
	require.Nil(t, sent["organizationId"])

	_, err = a.Consent.Summary(ctx, "req-1", "fr")
	require.ErrorIs(t, err, apierrors.ErrInvalidLanguage)

	sum, err := a.Consent.Summary(ctx, "req-1", models.LanguageYoruba)
	require.NoError(t, err)
	require.Equal(t, models.LanguageYoruba, sum.Data.Language)

	rec, _ = be.Last(http.MethodGet, "/consents/req-1/summary")
	require.Equal(t, "language=yo", rec.Query)
}

func TestPolicy_Analyze(t *testing.T) {
	t.Parallel()

	a, be, _ := newAPI(t)
	ctx := context.Background()

	_, err := a.Policy.Analyze(ctx, models.PolicyAnalysisRequest{OrganizationName: "Acme", PolicyText: "too short"})
	require.ErrorIs(t, err, apierrors.ErrPolicyTooShort)

	_, err = a.Policy.Analyze(ctx, models.PolicyAnalysisRequest{OrganizationName: " ", PolicyText: strings.Repeat("x", 200)})
	require.ErrorIs(t, err, apierrors.ErrPolicyIncomplete)
	require.Zero(t, be.Count(http.MethodPost, PathAnalyzePolicy))

	res, err := a.Policy.Analyze(ctx, models.PolicyAnalysisRequest{OrganizationName: " Acme ", PolicyText: strings.Repeat("x", 200)})
	require.NoError(t, err)
	require.Equal(t, clienttest.DefaultAnalysis(), res)

	rec, _ := be.Last(http.MethodPost, PathAnalyzePolicy)
	var sent models.PolicyAnalysisRequest
	rec.Decode(t, &sent)
	require.Equal(t, "Acme", sent.OrganizationName)

	be.Fail(http.MethodPost, PathAnalyzePolicy, http.StatusBadGateway, `upstream timeout`)
	_, err = a.Policy.Analyze(ctx, models.PolicyAnalysisRequest{OrganizationName: "Acme", PolicyText: strings.Repeat("x", 200)})
	require.EqualError(t, err, apierrors.FallbackMessage)
}

func TestPaths(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/dashboard/alerts/a%2Fb/acknowledge", AcknowledgePath("a/b"))
	require.Equal(t, "/consents/r1/summary?language=pidgin", SummaryPath("r1", models.LanguagePidgin))
}

func TestValidOTP(t *testing.T) {
	t.Parallel()

	require.True(t, ValidOTP("123456"))
	require.True(t, ValidOTP("000000"))
	require.False(t, ValidOTP("12345"))
	require.False(t, ValidOTP("12 456"))
	require.False(t, ValidOTP("١٢٣٤٥٦"))
}
