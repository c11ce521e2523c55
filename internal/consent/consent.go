// consent собирает решение пользователя о согласии на доступ к данным.
// Пакет чистый: без I/O, время передаётся явно.
package consent

import (
	"time"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
)

// Field — поле из запроса организации и отметка пользователя.
type Field struct {
	Name     string
	Approved bool
}

// ExpirationOption — вариант срока действия; Days == 0 — бессрочно (one_time).
type ExpirationOption struct {
	Days  int
	Label string
}

// ExpirationOptions — варианты срока в порядке показа.
var ExpirationOptions = []ExpirationOption{
	{Days: 7, Label: "7 Days"},
	{Days: 30, Label: "30 Days"},
	{Days: 90, Label: "90 Days"},
	{Days: 0, Label: "Ongoing"},
}

// DefaultExpirationDays — срок, выбранный изначально.
const DefaultExpirationDays = 30

// Build превращает отметки пользователя в ConsentDecision.
// В dataFields попадают только отмеченные поля в исходном порядке.
func Build(fields []Field, purpose string, expirationDays int, language models.Language, organizationID *string, now time.Time) (models.ConsentDecision, error) {
	if expirationDays < 0 {
		return models.ConsentDecision{}, apierrors.ErrInvalidExpiration
	}

	if !language.Valid() {
		return models.ConsentDecision{}, apierrors.ErrInvalidLanguage
	}

	approved := make([]models.ApprovedField, 0, len(fields))
	for _, f := range fields {
		if !f.Approved {
			continue
		}
		approved = append(approved, models.ApprovedField{
			FieldName: f.Name,
			Approved:  true,
			Purpose:   purpose,
		})
	}

	if len(approved) == 0 {
		return models.ConsentDecision{}, apierrors.ErrNoFieldsApproved
	}

	d := models.ConsentDecision{
		OrganizationID: organizationID,
		DataFields:     approved,
		Purpose:        purpose,
		ConsentType:    models.ConsentOneTime,
		Language:       language,
	}

	if expirationDays > 0 {
		d.ConsentType = models.ConsentDurationLimited
		d.ExpiresAt = models.NewTimestamp(now.UTC().AddDate(0, 0, expirationDays))
	}

	return d, nil
}

// Selection — состояние экрана согласия: отметки полей, срок и язык.
// Изначально отмечены все поля. Не безопасна для конкурентного использования.
type Selection struct {
	req      models.ConsentRequest
	selected map[string]bool

	ExpirationDays int
	Language       models.Language
}

// NewSelection создаёт выбор по запросу организации.
func NewSelection(req models.ConsentRequest) *Selection {
	s := &Selection{
		req:            req,
		selected:       make(map[string]bool, len(req.DataFields)),
		ExpirationDays: DefaultExpirationDays,
		Language:       models.LanguageEnglish,
	}

	for _, f := range req.DataFields {
		s.selected[f] = true
	}

	return s
}

// Toggle переключает отметку поля. Поле вне запроса — ErrUnknownField.
func (s *Selection) Toggle(name string) error {
	cur, ok := s.selected[name]
	if !ok {
		return apierrors.UnknownField(name)
	}

	s.selected[name] = !cur
	return nil
}

// Set задаёт отметку поля явно. Поле вне запроса — ErrUnknownField.
func (s *Selection) Set(name string, approved bool) error {
	if _, ok := s.selected[name]; !ok {
		return apierrors.UnknownField(name)
	}

	s.selected[name] = approved
	return nil
}

// Fields — поля в порядке запроса с текущими отметками.
func (s *Selection) Fields() []Field {
	out := make([]Field, 0, len(s.req.DataFields))
	for _, name := range s.req.DataFields {
		out = append(out, Field{Name: name, Approved: s.selected[name]})
	}

	return out
}

// CanSubmit — отмечено хотя бы одно поле.
func (s *Selection) CanSubmit() bool {
	for _, name := range s.req.DataFields {
		if s.selected[name] {
			return true
		}
	}

	return false
}

// Decision собирает решение на момент now.
func (s *Selection) Decision(now time.Time) (models.ConsentDecision, error) {
	return Build(s.Fields(), s.req.Purpose, s.ExpirationDays, s.Language, s.req.OrganizationID, now)
}
