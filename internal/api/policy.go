package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mydata-ng/privacy-client/internal/client"
	"github.com/mydata-ng/privacy-client/internal/models"
	"github.com/mydata-ng/privacy-client/internal/policy"
)

// PathAnalyzePolicy — анализ политики конфиденциальности на соответствие NDPR.
const PathAnalyzePolicy = "/analyze-policy"

// PolicyAPI — анализ политик конфиденциальности.
type PolicyAPI struct {
	c Caller
}

// Analyze проверяет запрос локально и отправляет его на анализ.
// Ответ приходит без обёртки: тело и есть результат анализа.
func (p *PolicyAPI) Analyze(ctx context.Context, req models.PolicyAnalysisRequest) (models.PolicyAnalysis, error) {
	const op = "api/PolicyAPI.Analyze"

	req, err := policy.Validate(req)
	if err != nil {
		return models.PolicyAnalysis{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return models.PolicyAnalysis{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, err := p.c.Call(ctx, PathAnalyzePolicy, client.RequestOptions{Method: http.MethodPost, Body: body})
	if err != nil {
		return models.PolicyAnalysis{}, err
	}

	var out models.PolicyAnalysis
	if len(raw) == 0 {
		return out, nil
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return models.PolicyAnalysis{}, fmt.Errorf("%s: decode: %w", op, err)
	}

	return out, nil
}
