// Package rating derives a bathroom's displayed scores from its reviews.
package rating

import "github.com/sells-group/bathroom-finder/internal/model"

// Summary is the aggregate of a set of reviews.
type Summary struct {
	AverageRating      float64 `json:"average_rating"`
	AverageCleanliness float64 `json:"average_cleanliness"`
	ReviewCount        int     `json:"review_count"`
}

// Aggregate computes the mean rating and cleanliness of reviews. With no
// reviews both averages are 0, never NaN.
func Aggregate(reviews []model.Review) Summary {
	n := len(reviews)
	if n == 0 {
		return Summary{}
	}

	var ratingSum, cleanSum float64
	for _, r := range reviews {
		ratingSum += float64(r.Rating)
		cleanSum += float64(r.Cleanliness)
	}

	return Summary{
		AverageRating:      ratingSum / float64(n),
		AverageCleanliness: cleanSum / float64(n),
		ReviewCount:        n,
	}
}
