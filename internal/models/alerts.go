package models

import (
	"encoding/json"
	"time"
)

// Severity — уровень отдельного сигнала внутри алерта.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AlertAction — действие пользователя при подтверждении алерта.
type AlertAction string

const (
	ActionRevokedConsent AlertAction = "revoked_consent"
	ActionContactedOrg   AlertAction = "contacted_org"
	ActionReported       AlertAction = "reported"
	ActionAcknowledged   AlertAction = "acknowledged"
)

// Valid сообщает, что действие входит в допустимый набор.
func (a AlertAction) Valid() bool {
	switch a {
	case ActionRevokedConsent, ActionContactedOrg, ActionReported, ActionAcknowledged:
		return true
	default:
		return false
	}
}

// OrganizationRef — ссылка на организацию. Бэкенд отдаёт либо объект
// {_id, name}, либо голый идентификатор строкой.
type OrganizationRef struct {
	ID   string `json:"_id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (o *OrganizationRef) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		o.ID = id
		return nil
	}

	type plain OrganizationRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	*o = OrganizationRef(p)
	return nil
}

// SubAlert — конкретный сигнал аномалии с рекомендацией.
type SubAlert struct {
	Type           string   `json:"type"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// Alert — алерт мониторинга доступа к данным (anomalyScore 0..100).
type Alert struct {
	ID           string          `json:"_id"`
	Summary      string          `json:"summary"`
	Organization OrganizationRef `json:"organizationId"`
	DetectedAt   time.Time       `json:"detectedAt"`
	AnomalyScore float64         `json:"anomalyScore"`
	SubAlerts    []SubAlert      `json:"alerts"`
}

// OrganizationName — имя организации или её идентификатор, если имени нет.
func (a Alert) OrganizationName() string {
	if a.Organization.Name != "" {
		return a.Organization.Name
	}

	return a.Organization.ID
}

// AcknowledgeAlertRequest — тело POST /dashboard/alerts/{id}/acknowledge.
type AcknowledgeAlertRequest struct {
	ActionTaken AlertAction `json:"actionTaken"`
}
