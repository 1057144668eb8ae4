package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/bathroom-finder/internal/model"
	"github.com/sells-group/bathroom-finder/internal/review"
)

func setReviewFlags(t *testing.T) {
	t.Helper()
	old := []any{reviewPlaceID, reviewName, reviewLat, reviewLng, reviewAddress, reviewRating, reviewCleanliness, reviewAmenities, reviewDescription}
	t.Cleanup(func() {
		reviewPlaceID = old[0].(string)
		reviewName = old[1].(string)
		reviewLat = old[2].(float64)
		reviewLng = old[3].(float64)
		reviewAddress = old[4].(string)
		reviewRating = old[5].(int)
		reviewCleanliness = old[6].(int)
		reviewAmenities = old[7].([]string)
		reviewDescription = old[8].(string)
	})
}

func TestBuildSubmission(t *testing.T) {
	setReviewFlags(t)
	reviewName = "Station"
	reviewLat, reviewLng = 51.5, -0.12
	reviewRating, reviewCleanliness = 4, 2
	reviewAmenities = []string{"baby_changing"}
	reviewAddress = ""
	reviewDescription = "fine"

	sub := buildSubmission()
	assert.Equal(t, "Station", sub.Name)
	assert.Nil(t, sub.Address)
	require.NotNil(t, sub.Description)
	assert.Equal(t, "fine", *sub.Description)
	require.NoError(t, sub.Validate())
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &review.Result{
		Location: &model.Location{ID: "loc-1", Name: "Station"},
		Review:   &model.Review{ID: "rev-1"},
		Created:  true,
	})
	assert.Equal(t, "review rev-1 added to Station (loc-1)\nnew bathroom created\n", buf.String())
}
