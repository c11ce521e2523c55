package models

import (
	"strings"
	"time"
)

// Language — язык, на котором показано простое изложение запроса согласия.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguagePidgin  Language = "pidgin"
	LanguageYoruba  Language = "yo"
	LanguageIgbo    Language = "ig"
	LanguageHausa   Language = "ha"
)

// Languages — поддерживаемые языки в порядке показа.
func Languages() []Language {
	return []Language{LanguageEnglish, LanguagePidgin, LanguageYoruba, LanguageIgbo, LanguageHausa}
}

// Valid сообщает, что язык поддерживается.
func (l Language) Valid() bool {
	for _, v := range Languages() {
		if v == l {
			return true
		}
	}

	return false
}

// ConsentType — политика срока действия согласия.
type ConsentType string

const (
	ConsentOneTime         ConsentType = "one_time"
	ConsentDurationLimited ConsentType = "duration_limited"
)

// ApprovedField — одно разрешённое поле. Отклонённые поля в payload не попадают.
type ApprovedField struct {
	FieldName string `json:"fieldName"`
	Approved  bool   `json:"approved"`
	Purpose   string `json:"purpose"`
}

// ConsentDecision — ответ пользователя на запрос доступа к данным.
// OrganizationID и ExpiresAt сериализуются как null, если не заданы.
type ConsentDecision struct {
	OrganizationID *string         `json:"organizationId"`
	DataFields     []ApprovedField `json:"dataFields"`
	Purpose        string          `json:"purpose"`
	ConsentType    ConsentType     `json:"consentType"`
	ExpiresAt      *Timestamp      `json:"expiresAt"`
	Language       Language        `json:"language"`
}

// ConsentRequest — входящий запрос организации на доступ к данным.
type ConsentRequest struct {
	ID                string   `json:"_id,omitempty"`
	OrganizationID    *string  `json:"organizationId,omitempty"`
	OrganizationName  string   `json:"organizationName"`
	ComplianceScore   float64  `json:"complianceScore,omitempty"`
	DataFields        []string `json:"dataFields"`
	Purpose           string   `json:"purpose"`
	ThirdPartySharing bool     `json:"thirdPartySharing"`
}

// ConsentSummary — простое изложение запроса на выбранном языке.
type ConsentSummary struct {
	Language Language `json:"language"`
	Summary  string   `json:"summary"`
}

// isoLayout — формат Date.prototype.toISOString: UTC, миллисекунды, суффикс Z.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Timestamp — момент времени в формате ISO-8601 с миллисекундами (UTC).
type Timestamp time.Time

// NewTimestamp приводит время к UTC и обрезает до миллисекунд.
func NewTimestamp(t time.Time) *Timestamp {
	ts := Timestamp(t.UTC().Truncate(time.Millisecond))
	return &ts
}

// Time возвращает значение как time.Time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) String() string { return time.Time(t).UTC().Format(isoLayout) }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}

	*t = Timestamp(parsed.UTC())
	return nil
}
