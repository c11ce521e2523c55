package models

// Industry — отрасль организации для отчёта об анализе политики.
type Industry string

const (
	IndustryFintech    Industry = "fintech"
	IndustryBanking    Industry = "banking"
	IndustryHealthcare Industry = "healthcare"
	IndustryEcommerce  Industry = "ecommerce"
	IndustryTelecom    Industry = "telecom"
	IndustryEducation  Industry = "education"
	IndustryGovernment Industry = "government"
	IndustryOther      Industry = "other"
)

// Industries — список отраслей в порядке показа.
func Industries() []Industry {
	return []Industry{
		IndustryFintech, IndustryBanking, IndustryHealthcare, IndustryEcommerce,
		IndustryTelecom, IndustryEducation, IndustryGovernment, IndustryOther,
	}
}

// Valid сообщает, что отрасль из поддерживаемого списка.
func (i Industry) Valid() bool {
	for _, v := range Industries() {
		if v == i {
			return true
		}
	}

	return false
}

// PolicyAnalysisRequest — тело POST /analyze-policy.
type PolicyAnalysisRequest struct {
	OrganizationName string `json:"organizationName"`
	PolicyText       string `json:"policyText"`
}

// RedFlag — проблемное место политики.
type RedFlag struct {
	Item   string `json:"item"`
	Risk   string `json:"risk"`
	Action string `json:"action,omitempty"`
}

// PolicyAnalysis — результат анализа на соответствие NDPR (ndprScore 0..100).
// Неизменяем после получения; новый анализ заменяет его целиком.
type PolicyAnalysis struct {
	NDPRScore       float64   `json:"ndprScore"`
	Summary         string    `json:"summary"`
	DataCollected   []string  `json:"dataCollected"`
	RedFlags        []RedFlag `json:"red_flags"`
	Recommendations []string  `json:"recommendations"`
	UserRights      []string  `json:"user_rights"`
}
