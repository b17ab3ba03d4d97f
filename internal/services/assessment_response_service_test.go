package services

import (
	"testing"

	"bakerapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func sampleQuestions() []models.AssessmentQuestion {
	return []models.AssessmentQuestion{
		{Identifier: "interest", ResponseType: models.ResponseTypeLikert, Required: true},
		{Identifier: "down", ResponseType: models.ResponseTypeLikert, Required: true},
		{Identifier: "notes", ResponseType: models.ResponseTypeFreeText, Required: false},
	}
}

func TestValidateResponsesComplete(t *testing.T) {
	responses := map[string]interface{}{
		"interest": float64(2),
		"down":     float64(1),
	}
	assert.NoError(t, validateResponses(sampleQuestions(), responses))
}

func TestValidateResponsesMissingRequired(t *testing.T) {
	responses := map[string]interface{}{
		"interest": float64(2),
	}
	err := validateResponses(sampleQuestions(), responses)
	assert.ErrorContains(t, err, "down")
}

func TestValidateResponsesEmptyStringIsMissing(t *testing.T) {
	responses := map[string]interface{}{
		"interest": "",
		"down":     float64(1),
	}
	err := validateResponses(sampleQuestions(), responses)
	assert.ErrorContains(t, err, "interest")
}

func TestValidateResponsesUnknownIdentifier(t *testing.T) {
	responses := map[string]interface{}{
		"interest": float64(2),
		"down":     float64(1),
		"bogus":    float64(3),
	}
	err := validateResponses(sampleQuestions(), responses)
	assert.ErrorContains(t, err, "bogus")
}

func TestValidateResponsesOptionalMayBeOmitted(t *testing.T) {
	responses := map[string]interface{}{
		"interest": float64(0),
		"down":     float64(0),
	}
	assert.NoError(t, validateResponses(sampleQuestions(), responses))
}

func TestToScoreValue(t *testing.T) {
	cases := []struct {
		responseType string
		value        interface{}
		want         float64
		countable    bool
	}{
		{models.ResponseTypeLikert, float64(3), 3, true},
		{models.ResponseTypeNumeric, "2.5", 2.5, true},
		{models.ResponseTypeYesNo, true, 1, true},
		{models.ResponseTypeYesNo, false, 0, true},
		{models.ResponseTypeFreeText, "感觉还好", 0, false},
		{models.ResponseTypeMultiChoice, []interface{}{"a"}, 0, false},
		{models.ResponseTypeLikert, "not-a-number", 0, false},
	}
	for _, tc := range cases {
		got, countable := toScoreValue(tc.responseType, tc.value)
		assert.Equal(t, tc.countable, countable, "%s %v", tc.responseType, tc.value)
		if countable {
			assert.Equal(t, tc.want, got, "%s %v", tc.responseType, tc.value)
		}
	}
}

func scoredAssessment(t *testing.T) *models.Assessment {
	t.Helper()
	return &models.Assessment{
		Slug:      "mood-check-in",
		Questions: sampleQuestions(),
		Scoring: &models.AssessmentScoringConfig{
			Method: models.ScoringMethodSum,
			Configuration: datatypes.JSON([]byte(`{"bands":[
				{"id":"minimal","label":"轻微","min":0,"max":2},
				{"id":"mild","label":"轻度","min":3,"max":4},
				{"id":"moderate","label":"中度","min":5,"max":6}
			]}`)),
		},
	}
}

func TestCalculateScoreSumWithBand(t *testing.T) {
	responses := map[string]interface{}{
		"interest": float64(2),
		"down":     float64(1),
		"notes":    "自由文本不计分",
	}

	score, err := calculateScore(scoredAssessment(t), responses)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, models.ScoringMethodSum, score.Method)
	assert.Equal(t, float64(3), score.Total)
	require.NotNil(t, score.Band)
	assert.Equal(t, "mild", score.Band.ID)
}

func TestCalculateScoreBandBoundaries(t *testing.T) {
	assessment := scoredAssessment(t)

	score, err := calculateScore(assessment, map[string]interface{}{"interest": float64(0), "down": float64(0)})
	require.NoError(t, err)
	require.NotNil(t, score.Band)
	assert.Equal(t, "minimal", score.Band.ID)

	score, err = calculateScore(assessment, map[string]interface{}{"interest": float64(3), "down": float64(3)})
	require.NoError(t, err)
	require.NotNil(t, score.Band)
	assert.Equal(t, "moderate", score.Band.ID)
}

func TestCalculateScoreOutOfBands(t *testing.T) {
	score, err := calculateScore(scoredAssessment(t), map[string]interface{}{
		"interest": float64(10),
		"down":     float64(10),
	})
	require.NoError(t, err)
	assert.Equal(t, float64(20), score.Total)
	assert.Nil(t, score.Band)
}

func TestCalculateScoreNoScoringConfig(t *testing.T) {
	assessment := &models.Assessment{Slug: "no-scoring", Questions: sampleQuestions()}
	score, err := calculateScore(assessment, map[string]interface{}{"interest": float64(1)})
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestCalculateScoreNonSumMethodSkipped(t *testing.T) {
	assessment := scoredAssessment(t)
	assessment.Scoring.Method = models.ScoringMethodCustom

	score, err := calculateScore(assessment, map[string]interface{}{"interest": float64(1)})
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestCalculateScoreBadBandConfig(t *testing.T) {
	assessment := scoredAssessment(t)
	assessment.Scoring.Configuration = datatypes.JSON([]byte(`{"bands":[{"id":"x","label":"坏区间","min":5}]}`))

	_, err := calculateScore(assessment, map[string]interface{}{"interest": float64(1)})
	assert.Error(t, err)
}
