package assess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScore() *Score {
	return &Score{
		Total:                 4,
		NutritionalImpairment: 2,
		DiseaseSeverity:       1,
		Age:                   1,
		Basis:                 "体重下降超过5%，慢性疾病急性发作，年龄75岁",
	}
}

func TestScoreValidateAccepts(t *testing.T) {
	assert.NoError(t, validScore().Validate())

	zero := &Score{Basis: "营养状态正常"}
	assert.NoError(t, zero.Validate())

	max := &Score{Total: 7, NutritionalImpairment: 3, DiseaseSeverity: 3, Age: 1, Basis: "极重度"}
	assert.NoError(t, max.Validate())
}

func TestScoreValidateRejects(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Score)
		wantField string
	}{
		{"impairment above range", func(s *Score) { s.NutritionalImpairment = 4; s.Total = 6 }, "nutritional_impairment"},
		{"impairment below range", func(s *Score) { s.NutritionalImpairment = -1; s.Total = 1 }, "nutritional_impairment"},
		{"severity above range", func(s *Score) { s.DiseaseSeverity = 5; s.Total = 8 }, "disease_severity"},
		{"age not binary", func(s *Score) { s.Age = 2; s.Total = 5 }, "age"},
		{"total above range", func(s *Score) { s.Total = 9 }, "score"},
		{"total not the sum", func(s *Score) { s.Total = 3 }, "score"},
		{"empty basis", func(s *Score) { s.Basis = "" }, "basis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := validScore()
			tt.mutate(score)

			err := score.Validate()
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}

func TestScoreValidateReportsOffendingValue(t *testing.T) {
	score := validScore()
	score.NutritionalImpairment = 7
	score.Total = 9

	err := score.Validate()
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	// The out-of-range value is reported as-is, never clamped.
	assert.Equal(t, 7, validationErr.Value)
}

func TestScoreAtRisk(t *testing.T) {
	assert.False(t, (&Score{Total: 2}).AtRisk())
	assert.True(t, (&Score{Total: 3}).AtRisk())
	assert.True(t, (&Score{Total: 7}).AtRisk())
}
