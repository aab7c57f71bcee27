package model

import "time"

type Scholarship struct {
	ID                  string     `json:"id"`
	Slug                string     `json:"slug"`
	ScholarshipName     string     `json:"scholarshipName"`
	UniversityName      string     `json:"universityName"`
	UniversityImage     string     `json:"universityImage,omitempty"`
	UniversityCountry   string     `json:"universityCountry"`
	UniversityCity      string     `json:"universityCity,omitempty"`
	UniversityWorldRank int        `json:"universityWorldRank,omitempty"`
	SubjectCategory     string     `json:"subjectCategory,omitempty"`
	ScholarshipCategory string     `json:"scholarshipCategory"`
	Degree              string     `json:"degree"`
	TuitionFees         float64    `json:"tuitionFees,omitempty"`
	ApplicationFees     float64    `json:"applicationFees"`
	ServiceCharge       float64    `json:"serviceCharge,omitempty"`
	ApplicationDeadline *time.Time `json:"applicationDeadline,omitempty"`
	Description         string     `json:"description,omitempty"`
	PostedUserEmail     string     `json:"postedUserEmail,omitempty"`
	PostedAt            time.Time  `json:"postedAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// ScholarshipFilter drives the public search listing.
type ScholarshipFilter struct {
	Search   string // substring of name, university or degree
	Category string // exact scholarship category, case-insensitive
	Country  string // substring of university country
	Limit    int
	Offset   int
}

// ScholarshipPatch holds the admin-editable fields; nil means unchanged.
type ScholarshipPatch struct {
	ScholarshipName     *string    `json:"scholarshipName,omitempty"`
	UniversityName      *string    `json:"universityName,omitempty"`
	UniversityImage     *string    `json:"universityImage,omitempty"`
	UniversityCountry   *string    `json:"universityCountry,omitempty"`
	UniversityCity      *string    `json:"universityCity,omitempty"`
	UniversityWorldRank *int       `json:"universityWorldRank,omitempty"`
	SubjectCategory     *string    `json:"subjectCategory,omitempty"`
	ScholarshipCategory *string    `json:"scholarshipCategory,omitempty"`
	Degree              *string    `json:"degree,omitempty"`
	TuitionFees         *float64   `json:"tuitionFees,omitempty"`
	ApplicationFees     *float64   `json:"applicationFees,omitempty"`
	ServiceCharge       *float64   `json:"serviceCharge,omitempty"`
	ApplicationDeadline *time.Time `json:"applicationDeadline,omitempty"`
	Description         *string    `json:"description,omitempty"`
}

func (p ScholarshipPatch) Empty() bool {
	return p == ScholarshipPatch{}
}

// Apply copies the set fields onto s.
func (p ScholarshipPatch) Apply(s *Scholarship) {
	setString(&s.ScholarshipName, p.ScholarshipName)
	setString(&s.UniversityName, p.UniversityName)
	setString(&s.UniversityImage, p.UniversityImage)
	setString(&s.UniversityCountry, p.UniversityCountry)
	setString(&s.UniversityCity, p.UniversityCity)
	if p.UniversityWorldRank != nil {
		s.UniversityWorldRank = *p.UniversityWorldRank
	}
	setString(&s.SubjectCategory, p.SubjectCategory)
	setString(&s.ScholarshipCategory, p.ScholarshipCategory)
	setString(&s.Degree, p.Degree)
	setFloat(&s.TuitionFees, p.TuitionFees)
	setFloat(&s.ApplicationFees, p.ApplicationFees)
	setFloat(&s.ServiceCharge, p.ServiceCharge)
	if p.ApplicationDeadline != nil {
		d := *p.ApplicationDeadline
		s.ApplicationDeadline = &d
	}
	setString(&s.Description, p.Description)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
