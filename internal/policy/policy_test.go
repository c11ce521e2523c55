package policy

import (
	"strings"
	"testing"

	apierrors "github.com/mydata-ng/privacy-client/internal/errors"
	"github.com/mydata-ng/privacy-client/internal/models"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", MinTextLength)

	tests := []struct {
		name    string
		req     models.PolicyAnalysisRequest
		wantErr error
		wantOrg string
	}{
		{name: "ok trims org", req: models.PolicyAnalysisRequest{OrganizationName: "  Acme  ", PolicyText: long}, wantOrg: "Acme"},
		{name: "blank org", req: models.PolicyAnalysisRequest{OrganizationName: "   ", PolicyText: long}, wantErr: apierrors.ErrPolicyIncomplete},
		{name: "blank text", req: models.PolicyAnalysisRequest{OrganizationName: "Acme", PolicyText: " \n\t"}, wantErr: apierrors.ErrPolicyIncomplete},
		{name: "99 chars", req: models.PolicyAnalysisRequest{OrganizationName: "Acme", PolicyText: long[:99]}, wantErr: apierrors.ErrPolicyTooShort},
		{name: "length before trim", req: models.PolicyAnalysisRequest{OrganizationName: "Acme", PolicyText: "  " + long[:98]}, wantOrg: "Acme"},
		{name: "multibyte counted as runes", req: models.PolicyAnalysisRequest{OrganizationName: "Acme", PolicyText: strings.Repeat("ọ", MinTextLength)}, wantOrg: "Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Validate(tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.True(t, apierrors.IsLocal(err))
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.wantOrg, got.OrganizationName)
			require.Equal(t, strings.TrimSpace(tt.req.PolicyText), got.PolicyText)
		})
	}
}

func TestGradeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		score float64
		want  Grade
	}{
		{100, GradeExcellent},
		{85, GradeExcellent},
		{84.9, GradeGood},
		{70, GradeGood},
		{69, GradeFair},
		{50, GradeFair},
		{49.5, GradePoor},
		{0, GradePoor},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, GradeOf(tt.score), "score=%v", tt.score)
	}
}
