package services

import (
	"testing"
	"time"

	"bakerapi/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientDetailsNormalize(t *testing.T) {
	details := &ClientDetails{
		FirstName:       "  Jane ",
		LastName:        " Doe ",
		Email:           " Jane.Doe@Example.COM ",
		DOB:             "1990-04-15",
		Gender:          " Female ",
		Informant1Email: "MUM@Example.com",
	}

	require.NoError(t, details.Normalize())
	assert.Equal(t, "Jane", details.FirstName)
	assert.Equal(t, "Doe", details.LastName)
	assert.Equal(t, "jane.doe@example.com", details.Email)
	assert.Equal(t, "female", details.Gender)
	assert.Equal(t, "mum@example.com", details.Informant1Email)
}

func TestClientDetailsNormalizeRejectsMissingFields(t *testing.T) {
	err := (&ClientDetails{Email: "a@b.com"}).Normalize()
	assert.Error(t, err)

	err = (&ClientDetails{FirstName: "Jane"}).Normalize()
	assert.Error(t, err)
}

func TestClientDetailsNormalizeRejectsBadGender(t *testing.T) {
	details := &ClientDetails{FirstName: "Jane", Email: "a@b.com", Gender: "unknown"}
	assert.Error(t, details.Normalize())
}

func TestClientDetailsNormalizeRejectsBadDOB(t *testing.T) {
	details := &ClientDetails{FirstName: "Jane", Email: "a@b.com", DOB: "15/04/1990"}
	assert.Error(t, details.Normalize())

	details = &ClientDetails{FirstName: "Jane", Email: "a@b.com", DOB: "1990-04-15"}
	assert.NoError(t, details.Normalize())
}

func TestApplyDetailsMergesWithoutBlanking(t *testing.T) {
	dob := time.Date(1985, 6, 1, 0, 0, 0, 0, time.UTC)
	client := &models.Client{
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		DOB:             &dob,
		Gender:          models.GenderFemale,
		Informant1Name:  "Mum",
		Informant1Email: "mum@example.com",
	}

	applyDetails(client, &ClientDetails{
		FirstName: "Janet",
		Email:     "jane@example.com",
	})

	// 提交的非空字段被覆盖
	assert.Equal(t, "Janet", client.FirstName)
	// 未提交的字段保持原值
	assert.Equal(t, "Doe", client.LastName)
	assert.Equal(t, models.GenderFemale, client.Gender)
	require.NotNil(t, client.DOB)
	assert.Equal(t, dob, *client.DOB)
	assert.Equal(t, "Mum", client.Informant1Name)
}

func TestApplyDetailsFillsEmptyFields(t *testing.T) {
	client := &models.Client{FirstName: "Jane", Email: "jane@example.com"}

	applyDetails(client, &ClientDetails{
		LastName: "Doe",
		DOB:      "1990-04-15",
		Gender:   models.GenderDiverse,
	})

	assert.Equal(t, "Doe", client.LastName)
	assert.Equal(t, models.GenderDiverse, client.Gender)
	require.NotNil(t, client.DOB)
	assert.Equal(t, 1990, client.DOB.Year())
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Jane Doe":        "jane-doe",
		"  Jane   Doe  ":  "jane-doe",
		"jane_doe.2":      "jane-doe-2",
		"Jane--Doe":       "jane-doe",
		"Ω!!!":            "ω",
		"!!!":             "",
		"MOOD Check-In 9": "mood-check-in-9",
	}
	for input, want := range cases {
		assert.Equal(t, want, slugify(input), input)
	}
}

func TestUniqueSlugAppendsSuffix(t *testing.T) {
	taken := map[string]bool{"jane-doe": true, "jane-doe-2": true}
	exists := func(slug string) (bool, error) { return taken[slug], nil }

	slug, err := uniqueSlug("Jane Doe", "client", exists)
	require.NoError(t, err)
	assert.Equal(t, "jane-doe-3", slug)
}

func TestUniqueSlugFallback(t *testing.T) {
	exists := func(string) (bool, error) { return false, nil }

	slug, err := uniqueSlug("!!!", "client", exists)
	require.NoError(t, err)
	assert.Equal(t, "client", slug)
}
