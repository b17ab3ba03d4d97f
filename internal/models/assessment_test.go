package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestDecodeBands(t *testing.T) {
	sc := &AssessmentScoringConfig{
		Configuration: datatypes.JSON([]byte(`{"bands":[{"id":"a","label":"低","min":0,"max":4},{"id":"b","label":"高","min":5,"max":10}]}`)),
	}

	bands, err := sc.DecodeBands()
	require.NoError(t, err)
	require.Len(t, bands, 2)
	assert.Equal(t, "a", bands[0].ID)
	assert.Equal(t, float64(5), *bands[1].Min)
}

func TestDecodeBandsEmpty(t *testing.T) {
	bands, err := (&AssessmentScoringConfig{}).DecodeBands()
	require.NoError(t, err)
	assert.Nil(t, bands)
}

func TestDecodeBandsMissingBounds(t *testing.T) {
	sc := &AssessmentScoringConfig{
		Configuration: datatypes.JSON([]byte(`{"bands":[{"id":"a","label":"坏","min":0}]}`)),
	}
	_, err := sc.DecodeBands()
	assert.Error(t, err)
}

func TestDecodeBandsInvertedBounds(t *testing.T) {
	sc := &AssessmentScoringConfig{
		Configuration: datatypes.JSON([]byte(`{"bands":[{"id":"a","label":"坏","min":9,"max":3}]}`)),
	}
	_, err := sc.DecodeBands()
	assert.Error(t, err)
}

func TestValidResponseType(t *testing.T) {
	assert.True(t, ValidResponseType(ResponseTypeLikert))
	assert.True(t, ValidResponseType(ResponseTypeFreeText))
	assert.False(t, ValidResponseType("essay"))
}
