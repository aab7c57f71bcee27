package model

import "time"

const (
	MinRating = 1
	MaxRating = 5

	// PublicReviewLimit caps the unauthenticated recent-reviews listing.
	PublicReviewLimit = 6
)

type Review struct {
	ID              string    `json:"id"`
	ScholarshipID   string    `json:"scholarshipId"`
	ScholarshipName string    `json:"scholarshipName,omitempty"`
	UniversityName  string    `json:"universityName,omitempty"`
	UserEmail       string    `json:"userEmail"`
	UserName        string    `json:"userName,omitempty"`
	UserImage       string    `json:"userImage,omitempty"`
	RatingPoint     int       `json:"ratingPoint"`
	ReviewComment   string    `json:"reviewComment"`
	ReviewDate      time.Time `json:"reviewDate"`
}

// PublicReview is the projection served without authentication. It carries
// no owner email.
type PublicReview struct {
	ID              string    `json:"id"`
	UserName        string    `json:"userName,omitempty"`
	UserImage       string    `json:"userImage,omitempty"`
	RatingPoint     int       `json:"ratingPoint"`
	ReviewComment   string    `json:"reviewComment"`
	ScholarshipName string    `json:"scholarshipName,omitempty"`
	UniversityName  string    `json:"universityName,omitempty"`
	ReviewDate      time.Time `json:"reviewDate"`
}

func (r *Review) Public() PublicReview {
	return PublicReview{
		ID:              r.ID,
		UserName:        r.UserName,
		UserImage:       r.UserImage,
		RatingPoint:     r.RatingPoint,
		ReviewComment:   r.ReviewComment,
		ScholarshipName: r.ScholarshipName,
		UniversityName:  r.UniversityName,
		ReviewDate:      r.ReviewDate,
	}
}

// ReviewPatch only carries rating and comment; anything else in an update
// request body is dropped at decode time.
type ReviewPatch struct {
	RatingPoint   *int    `json:"ratingPoint,omitempty"`
	ReviewComment *string `json:"reviewComment,omitempty"`
}

func (p ReviewPatch) Empty() bool {
	return p.RatingPoint == nil && p.ReviewComment == nil
}

func (p ReviewPatch) Apply(r *Review) {
	if p.RatingPoint != nil {
		r.RatingPoint = *p.RatingPoint
	}
	setString(&r.ReviewComment, p.ReviewComment)
}

func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
