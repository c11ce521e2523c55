package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	"github.com/stretchr/testify/require"
)

func analysis() models.PolicyAnalysis {
	return models.PolicyAnalysis{
		NDPRScore:       64,
		Summary:         "Partially compliant",
		DataCollected:   []string{"email"},
		RedFlags:        []models.RedFlag{{Item: "Retention", Risk: "Unbounded"}},
		Recommendations: []string{"Add retention period"},
		UserRights:      []string{"access"},
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	tests := []struct{ org, want string }{
		{"Acme", "Acme_NDPR_Analysis.json"},
		{"Acme Bank  Plc", "Acme_Bank_Plc_NDPR_Analysis.json"},
		{"Tab\tand\nnewline", "Tab_and_newline_NDPR_Analysis.json"},
		{" Lead", "_Lead_NDPR_Analysis.json"},
		{"Acme/Pay", "Acme_Pay_NDPR_Analysis.json"},
		{`..\Acme / Pay`, ".._Acme_Pay_NDPR_Analysis.json"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, FileName(tt.org), tt.org)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	now := time.Now()

	_, err := New("", models.IndustryFintech, analysis(), now)
	require.ErrorIs(t, err, apierrors.ErrMissingField)

	_, err = New("Acme", "mining", analysis(), now)
	require.ErrorIs(t, err, apierrors.ErrInvalidIndustry)
}

func TestEncode_Shape(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 2, 3, 4, 5, 6, 7_000_000, time.UTC)
	r, err := New("Acme Bank", models.IndustryBanking, analysis(), now)
	require.NoError(t, err)

	b, err := r.Encode()
	require.NoError(t, err)
	require.Contains(t, string(b), "\n  \"organization\": \"Acme Bank\"")

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	require.Equal(t, "Acme Bank", got["organization"])
	require.Equal(t, "banking", got["industry"])
	require.Equal(t, "2025-02-03T04:05:06.007Z", got["analysisDate"])
	require.Equal(t, 64.0, got["analysis"].(map[string]any)["ndprScore"])
}

func TestExport_FileSink(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "out")
	r, err := New("Acme Bank", models.IndustryBanking, analysis(), time.Now())
	require.NoError(t, err)

	loc, err := Export(context.Background(), FileSink{Dir: dir}, r)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Acme_Bank_NDPR_Analysis.json"), loc)

	b, err := os.ReadFile(loc)
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, r.Analysis, back.Analysis)
	require.True(t, r.AnalysisDate.Time().Equal(back.AnalysisDate.Time()))
}

func TestExport_FileSinkKeepsSlashedNameInDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r, err := New("Acme/Pay Ltd", models.IndustryFintech, analysis(), time.Now())
	require.NoError(t, err)

	loc, err := Export(context.Background(), FileSink{Dir: dir}, r)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "Acme_Pay_Ltd_NDPR_Analysis.json"), loc)

	_, err = os.Stat(loc)
	require.NoError(t, err)
}

type failingSink struct{ err error }

func (f failingSink) Save(context.Context, string, []byte) (string, error) { return "", f.err }

func TestExport_SinkError(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	r, err := New("Acme", models.IndustryOther, analysis(), time.Now())
	require.NoError(t, err)

	_, err = Export(context.Background(), failingSink{err: boom}, r)
	require.ErrorIs(t, err, boom)
}
