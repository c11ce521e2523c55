package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
)

// PathConsents — коллекция решений о согласии.
const PathConsents = "/consents"

// ConsentAPI — отправка решений о согласии и простое изложение запросов.
type ConsentAPI struct {
	c Caller
}

// Submit отправляет собранное решение (см. internal/consent.Build).
func (a *ConsentAPI) Submit(ctx context.Context, d models.ConsentDecision) (models.Envelope[json.RawMessage], error) {
	if len(d.DataFields) == 0 {
		return models.Envelope[json.RawMessage]{}, apierrors.ErrNoFieldsApproved
	}

	return send[json.RawMessage](ctx, a.c, http.MethodPost, PathConsents, d)
}

// SummaryPath — эндпойнт изложения запроса на выбранном языке.
func SummaryPath(requestID string, lang models.Language) string {
	q := url.Values{"language": []string{string(lang)}}
	return PathConsents + "/" + url.PathEscape(requestID) + "/summary?" + q.Encode()
}

// Summary запрашивает изложение запроса согласия на языке lang.
func (a *ConsentAPI) Summary(ctx context.Context, requestID string, lang models.Language) (models.Envelope[models.ConsentSummary], error) {
	if requestID == "" {
		return models.Envelope[models.ConsentSummary]{}, apierrors.MissingField("requestId")
	}

	if !lang.Valid() {
		return models.Envelope[models.ConsentSummary]{}, apierrors.ErrInvalidLanguage
	}

	return send[models.ConsentSummary](ctx, a.c, http.MethodGet, SummaryPath(requestID, lang), nil)
}
