// policy — правила запроса на анализ политики конфиденциальности
// и шкала оценки соответствия NDPR.
package policy

import (
	"strings"
	"unicode/utf8"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
)

// MinTextLength — минимальная длина текста политики в символах.
const MinTextLength = 100

// Validate проверяет запрос до отправки и возвращает его с обрезанными
// пробелами по краям. Длина считается по исходному, необрезанному тексту.
func Validate(req models.PolicyAnalysisRequest) (models.PolicyAnalysisRequest, error) {
	org := strings.TrimSpace(req.OrganizationName)
	if org == "" || strings.TrimSpace(req.PolicyText) == "" {
		return req, apierrors.ErrPolicyIncomplete
	}

	if utf8.RuneCountInString(req.PolicyText) < MinTextLength {
		return req, apierrors.ErrPolicyTooShort
	}

	req.OrganizationName = org
	req.PolicyText = strings.TrimSpace(req.PolicyText)
	return req, nil
}

// Grade — словесная оценка балла NDPR.
type Grade string

const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradePoor      Grade = "Poor"
)

// GradeOf переводит балл 0..100 в оценку.
func GradeOf(score float64) Grade {
	switch {
	case score >= 85:
		return GradeExcellent
	case score >= 70:
		return GradeGood
	case score >= 50:
		return GradeFair
	default:
		return GradePoor
	}
}
