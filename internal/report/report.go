// report — выгрузка результата анализа политики в JSON-отчёт.
//
// Отчёт: {organization, industry, analysisDate, analysis}, отформатирован
// с отступом в 2 пробела. Имя файла: название организации, где серии
// пробельных символов заменены на "_", плюс суффикс _NDPR_Analysis.json.
// Куда писать, решает Sink: локальный каталог или бакет MinIO/S3.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
)

// FileSuffix — окончание имени файла отчёта.
const FileSuffix = "_NDPR_Analysis.json"

// ContentType — MIME-тип отчёта.
const ContentType = "application/json"

// unsafeName — пробельные серии и разделители пути; в имени файла и ключе объекта их нет.
var unsafeName = regexp.MustCompile(`[\s/\\]+`)

// Report — выгружаемый отчёт.
type Report struct {
	Organization string                `json:"organization"`
	Industry     models.Industry       `json:"industry"`
	AnalysisDate models.Timestamp      `json:"analysisDate"`
	Analysis     models.PolicyAnalysis `json:"analysis"`
}

// New собирает отчёт на момент now.
func New(org string, industry models.Industry, analysis models.PolicyAnalysis, now time.Time) (Report, error) {
	if org == "" {
		return Report{}, apierrors.MissingField("organization")
	}

	if !industry.Valid() {
		return Report{}, apierrors.ErrInvalidIndustry
	}

	return Report{
		Organization: org,
		Industry:     industry,
		AnalysisDate: *models.NewTimestamp(now),
		Analysis:     analysis,
	}, nil
}

// FileName — имя файла отчёта для организации.
func FileName(org string) string {
	return unsafeName.ReplaceAllString(org, "_") + FileSuffix
}

// Encode сериализует отчёт с отступом в 2 пробела.
func (r Report) Encode() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report/Encode: %w", err)
	}

	return b, nil
}

// Sink — место назначения отчётов.
type Sink interface {
	// Save сохраняет объект и возвращает его расположение (путь или URL).
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// Export сериализует отчёт и сохраняет его под FileName(r.Organization).
func Export(ctx context.Context, sink Sink, r Report) (string, error) {
	const op = "report/Export"

	b, err := r.Encode()
	if err != nil {
		return "", err
	}

	loc, err := sink.Save(ctx, FileName(r.Organization), b)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return loc, nil
}
