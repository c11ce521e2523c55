package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
)

// AlertsAPI — действия над отдельными алертами.
type AlertsAPI struct {
	c Caller
}

// AcknowledgePath — эндпойнт подтверждения алерта.
func AcknowledgePath(id string) string {
	return PathAlerts + "/" + url.PathEscape(id) + "/acknowledge"
}

// Acknowledge сообщает бэкенду, какое действие пользователь выбрал для алерта.
func (a *AlertsAPI) Acknowledge(ctx context.Context, id string, action models.AlertAction) (models.Envelope[json.RawMessage], error) {
	if id == "" {
		return models.Envelope[json.RawMessage]{}, apierrors.MissingField("alertId")
	}

	if !action.Valid() {
		return models.Envelope[json.RawMessage]{}, apierrors.ErrInvalidAction
	}

	return send[json.RawMessage](ctx, a.c, http.MethodPost, AcknowledgePath(id), models.AcknowledgeAlertRequest{ActionTaken: action})
}
