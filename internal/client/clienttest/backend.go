// clienttest — фейковый бэкенд MyData для тестов клиентского слоя.
//
// Backend поднимает httptest.Server с chi-роутером под /api/v1,
// записывает каждый входящий запрос и ведёт минимальное состояние:
// зарегистрированные пользователи, выданные токены, алерты, согласия.
// OTP принимается только ValidOTP.
package clienttest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mydata-ng/privacy-client/internal/models"
)

// ValidOTP — единственный код, который принимает /auth/verify-otp.
const ValidOTP = "123456"

// BasePath — префикс API, под которым смонтированы маршруты.
const BasePath = "/api/v1"

// Recorded — снимок входящего запроса.
type Recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// Decode разбирает тело записанного запроса.
func (r Recorded) Decode(t testing.TB, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("decode recorded %s %s: %v", r.Method, r.Path, err)
	}
}

type account struct {
	password string
	user     models.User
}

type override struct {
	status int
	body   string
	hold   chan struct{}
}

// Backend — фейковый сервер. Все методы безопасны для конкурентного вызова.
type Backend struct {
	Server *httptest.Server

	mu        sync.Mutex
	seq       int
	requests  []Recorded
	accounts  map[string]*account // email -> account
	byID      map[string]*account
	tokens    map[string]string // access token -> user id
	alerts    []models.Alert
	acked     map[string]models.AlertAction
	consents  []models.ConsentDecision
	analysis  models.PolicyAnalysis
	overrides map[string]*override // "METHOD /path" -> override
}

// New запускает фейковый бэкенд и закрывает его по завершении теста.
func New(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{
		accounts:  make(map[string]*account),
		byID:      make(map[string]*account),
		tokens:    make(map[string]string),
		acked:     make(map[string]models.AlertAction),
		overrides: make(map[string]*override),
		alerts:    DefaultAlerts(),
		analysis:  DefaultAnalysis(),
	}

	root := chi.NewRouter()
	root.Use(b.record, b.override)

	sub := chi.NewRouter()
	b.routes(sub)
	root.Mount(BasePath, sub)

	b.Server = httptest.NewServer(root)
	t.Cleanup(b.Server.Close)

	return b
}

// BaseURL — корень API для client.Options.BaseURL.
func (b *Backend) BaseURL() string { return b.Server.URL + BasePath }

func (b *Backend) routes(r chi.Router) {
	// auth
	r.Post("/auth/register", b.register)
	r.Post("/auth/login", b.login)
	r.Post("/auth/verify-otp", b.verifyOTP)
	r.Post("/auth/passwordless", b.message("Login link sent to your email"))
	r.Post("/auth/forgot-password", b.message("Password reset link sent"))
	r.Post("/auth/reset-password", b.resetPassword)
	r.Post("/analyze-policy", b.analyzePolicy)

	r.Group(func(r chi.Router) {
		r.Use(b.requireAuth)

		r.Post("/auth/logout", b.logout)

		// users
		r.Get("/users/me", b.profile)
		r.Put("/users/me", b.updateProfile)
		r.Get("/users/permissions", b.static([]map[string]any{
			{"organizationName": "GTBank", "dataFields": []string{"email", "phone"}, "status": "active"},
		}))
		r.Get("/users/access-logs", b.static([]map[string]any{
			{"organizationName": "GTBank", "field": "email", "accessedAt": "2025-01-01T10:00:00.000Z"},
		}))

		// dashboard
		r.Get("/dashboard", b.static(map[string]any{"activeConsents": 3, "organizations": 2}))
		r.Get("/dashboard/permissions/stats", b.static(map[string]any{"granted": 5, "revoked": 1}))
		r.Get("/dashboard/security", b.static(map[string]any{"riskLevel": "low", "insights": []string{}}))
		r.Get("/dashboard/alerts", b.listAlerts)
		r.Post("/dashboard/alerts/{id}/acknowledge", b.acknowledge)

		// consents
		r.Post("/consents", b.submitConsent)
		r.Get("/consents/{id}/summary", b.consentSummary)
	})
}

// ---- управление из тестов ----

// AddUser регистрирует пользователя напрямую и возвращает его id.
func (b *Backend) AddUser(email, password string, role models.Role) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.addUserLocked(models.RegisterRequest{Email: email, Password: password, Role: role, FirstName: "Test"})
}

// IssueToken выдаёт access-токен для пользователя в обход OTP.
func (b *Backend) IssueToken(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	tok := "access-" + userID
	b.tokens[tok] = userID
	return tok
}

// Fail заставляет маршрут отвечать заданным статусом и телом.
func (b *Backend) Fail(method, path string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.overrides[method+" "+BasePath+path] = &override{status: status, body: body}
}

// Hold задерживает ответ маршрута до вызова release.
func (b *Backend) Hold(method, path string) (release func()) {
	ch := make(chan struct{})

	b.mu.Lock()
	b.overrides[method+" "+BasePath+path] = &override{hold: ch}
	b.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetAlerts заменяет набор алертов.
func (b *Backend) SetAlerts(alerts []models.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.alerts = append([]models.Alert(nil), alerts...)
}

// Acknowledged — подтверждённые алерты: id -> действие.
func (b *Backend) Acknowledged() map[string]models.AlertAction {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]models.AlertAction, len(b.acked))
	for k, v := range b.acked {
		out[k] = v
	}

	return out
}

// Consents — принятые решения о согласии.
func (b *Backend) Consents() []models.ConsentDecision {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]models.ConsentDecision(nil), b.consents...)
}

// Requests — все записанные запросы по порядку.
func (b *Backend) Requests() []Recorded {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Recorded(nil), b.requests...)
}

// Count — число запросов на METHOD path (path без BasePath).
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == BasePath+path {
			n++
		}
	}

	return n
}

// Last — последний запрос на METHOD path.
func (b *Backend) Last(method, path string) (Recorded, bool) {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == BasePath+path {
			return reqs[i], true
		}
	}

	return Recorded{}, false
}

// DefaultAlerts — два алерта с разными организациями.
func DefaultAlerts() []models.Alert {
	detected := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	return []models.Alert{
		{
			ID:           "alert-1",
			Summary:      "Unusual access volume to your phone number",
			Organization: models.OrganizationRef{ID: "org-1", Name: "QuickLoans Ltd"},
			DetectedAt:   detected,
			AnomalyScore: 87,
			SubAlerts: []models.SubAlert{{
				Type:           "volume_spike",
				Severity:       models.SeverityHigh,
				Description:    "42 reads in 10 minutes",
				Recommendation: "Consider revoking consent",
			}},
		},
		{
			ID:           "alert-2",
			Summary:      "Access outside consented hours",
			Organization: models.OrganizationRef{ID: "org-2", Name: "ShopNow"},
			DetectedAt:   detected.Add(time.Hour),
			AnomalyScore: 55,
			SubAlerts: []models.SubAlert{{
				Type:           "off_hours",
				Severity:       models.SeverityMedium,
				Description:    "Reads at 03:00",
				Recommendation: "Contact the organization",
			}},
		},
	}
}

// DefaultAnalysis — ответ /analyze-policy.
func DefaultAnalysis() models.PolicyAnalysis {
	return models.PolicyAnalysis{
		NDPRScore:       72,
		Summary:         "The policy covers most NDPR requirements.",
		DataCollected:   []string{"name", "email", "phone"},
		RedFlags:        []models.RedFlag{{Item: "Retention period", Risk: "Not specified", Action: "State a retention period"}},
		Recommendations: []string{"Name a data protection officer"},
		UserRights:      []string{"access", "rectification"},
	}
}

// ---- middleware ----

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   body,
		})
		b.mu.Unlock()

		if id := r.Header.Get("X-Request-Id"); id != "" {
			w.Header().Set("X-Request-Id", id)
		}

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		ov := b.overrides[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if ov == nil {
			next.ServeHTTP(w, r)
			return
		}

		if ov.hold != nil {
			select {
			case <-ov.hold:
			case <-r.Context().Done():
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ov.status)
		_, _ = io.WriteString(w, ov.body)
	})
}

func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")

		b.mu.Lock()
		uid, ok := b.tokens[strings.TrimPrefix(auth, prefix)]
		b.mu.Unlock()

		if !strings.HasPrefix(auth, prefix) || !ok {
			fail(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		r.Header.Set("X-User-Id", uid)
		next.ServeHTTP(w, r)
	})
}

// ---- handlers ----

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  []map[string]string{{"field": "email", "message": "Email and password are required"}},
		})
		return
	}

	b.mu.Lock()
	if _, exists := b.accounts[req.Email]; exists {
		b.mu.Unlock()
		fail(w, http.StatusConflict, "User already exists")
		return
	}
	id := b.addUserLocked(req)
	b.mu.Unlock()

	ok(w, http.StatusCreated, "Registration successful. OTP sent.", models.RegisterResult{UserID: id})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acc, exists := b.accounts[req.Email]
	b.mu.Unlock()

	if !exists || acc.password != req.Password || (req.Role != "" && acc.user.Role != req.Role) {
		fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	ok(w, http.StatusOK, "OTP sent", models.LoginResult{UserID: acc.user.ID, Method: "email"})
}

func (b *Backend) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.OTP != ValidOTP {
		fail(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}

	b.mu.Lock()
	acc, exists := b.byID[req.UserID]
	var res models.VerifyOTPResult
	if exists {
		res = models.VerifyOTPResult{
			AccessToken:  "access-" + acc.user.ID,
			RefreshToken: "refresh-" + acc.user.ID,
			User:         acc.user,
		}
		b.tokens[res.AccessToken] = acc.user.ID
	}
	b.mu.Unlock()

	if !exists {
		fail(w, http.StatusNotFound, "User not found")
		return
	}

	ok(w, http.StatusOK, "Login successful", res)
}

func (b *Backend) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"errors":  []map[string]string{{"field": "token", "message": "Reset token is required"}},
		})
		return
	}

	ok(w, http.StatusOK, "Password reset successful", nil)
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	delete(b.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	b.mu.Unlock()

	ok(w, http.StatusOK, "Logged out", nil)
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	acc := b.byID[r.Header.Get("X-User-Id")]
	b.mu.Unlock()

	if acc == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}

	ok(w, http.StatusOK, "", acc.user)
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acc := b.byID[r.Header.Get("X-User-Id")]
	if acc != nil {
		if req.Phone != "" {
			acc.user.Phone = req.Phone
		}
		if req.FirstName != "" {
			acc.user.FirstName = req.FirstName
		}
		if req.LastName != "" {
			acc.user.LastName = req.LastName
		}
		if req.OrganizationName != "" {
			acc.user.OrganizationName = req.OrganizationName
		}
	}
	var user models.User
	if acc != nil {
		user = acc.user
	}
	b.mu.Unlock()

	if acc == nil {
		fail(w, http.StatusNotFound, "User not found")
		return
	}

	ok(w, http.StatusOK, "Profile updated", user)
}

func (b *Backend) listAlerts(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	alerts := make([]models.Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		if _, done := b.acked[a.ID]; !done {
			alerts = append(alerts, a)
		}
	}
	b.mu.Unlock()

	ok(w, http.StatusOK, "", alerts)
}

func (b *Backend) acknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.AcknowledgeAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.ActionTaken.Valid() {
		fail(w, http.StatusBadRequest, "Invalid action")
		return
	}

	b.mu.Lock()
	found := false
	for _, a := range b.alerts {
		if a.ID == id {
			found = true
			break
		}
	}
	if found {
		b.acked[id] = req.ActionTaken
	}
	b.mu.Unlock()

	if !found {
		fail(w, http.StatusNotFound, "Alert not found")
		return
	}

	ok(w, http.StatusOK, "Alert acknowledged", nil)
}

func (b *Backend) analyzePolicy(w http.ResponseWriter, r *http.Request) {
	var req models.PolicyAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.PolicyText) == "" || strings.TrimSpace(req.OrganizationName) == "" {
		fail(w, http.StatusBadRequest, "Policy text and organization name are required")
		return
	}

	b.mu.Lock()
	res := b.analysis
	b.mu.Unlock()

	// Ответ анализа отдаётся без обёртки.
	writeJSON(w, http.StatusOK, res)
}

func (b *Backend) submitConsent(w http.ResponseWriter, r *http.Request) {
	var req models.ConsentDecision
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.DataFields) == 0 {
		fail(w, http.StatusBadRequest, "At least one data field must be approved")
		return
	}

	b.mu.Lock()
	b.consents = append(b.consents, req)
	b.seq++
	id := fmt.Sprintf("consent-%d", b.seq)
	b.mu.Unlock()

	ok(w, http.StatusCreated, "Consent recorded", map[string]string{"consentId": id})
}

func (b *Backend) consentSummary(w http.ResponseWriter, r *http.Request) {
	lang := models.Language(r.URL.Query().Get("language"))
	if lang == "" {
		lang = models.LanguageEnglish
	}

	if !lang.Valid() {
		fail(w, http.StatusBadRequest, "Unsupported language")
		return
	}

	ok(w, http.StatusOK, "", models.ConsentSummary{
		Language: lang,
		Summary:  fmt.Sprintf("[%s] Request %s wants your email for KYC.", lang, chi.URLParam(r, "id")),
	})
}

func (b *Backend) message(msg string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.EmailRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			fail(w, http.StatusBadRequest, "Email is required")
			return
		}

		ok(w, http.StatusOK, msg, nil)
	}
}

func (b *Backend) static(data any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ok(w, http.StatusOK, "", data)
	}
}

func (b *Backend) addUserLocked(req models.RegisterRequest) string {
	b.seq++
	id := fmt.Sprintf("usr-%d", b.seq)

	acc := &account{
		password: req.Password,
		user: models.User{
			ID:               id,
			Email:            req.Email,
			Phone:            req.Phone,
			Role:             req.Role,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			OrganizationName: req.OrganizationName,
		},
	}
	b.accounts[req.Email] = acc
	b.byID[id] = acc

	return id
}

// writeJSON — единый ответ JSON с нужным Content-Type.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func ok(w http.ResponseWriter, status int, msg string, data any) {
	writeJSON(w, status, map[string]any{"success": true, "message": msg, "data": data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
