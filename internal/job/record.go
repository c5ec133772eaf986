package job

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
)

// Field names double as column names in the job_postings table.
type Field string

const (
	FieldJobID              Field = "job_id"
	FieldTitle              Field = "title"
	FieldInstitution        Field = "institution"
	FieldLocation           Field = "location"
	FieldDescription        Field = "description"
	FieldPostedDate         Field = "posted_date"
	FieldDeadline           Field = "deadline"
	FieldContactInfo        Field = "contact_info"
	FieldSection            Field = "section"
	FieldKeywords           Field = "keywords"
	FieldJELClassifications Field = "jel_classifications"
	FieldSalaryRange        Field = "salary_range"

	FieldRequirements                Field = "requirements"
	FieldExtractedDeadline           Field = "extracted_deadline"
	FieldApplicationPortalURL        Field = "application_portal_url"
	FieldRequiresSeparateApplication Field = "requires_separate_application"
	FieldCountry                     Field = "country"
	FieldApplicationMaterials        Field = "application_materials"
	FieldReferencesSeparateEmail     Field = "references_separate_email"
	FieldField                       Field = "field"
	FieldLevel                       Field = "level"
	FieldPositionType                Field = "position_type"
	FieldPositionTrack               Field = "position_track"

	FieldFitScore            Field = "fit_score"
	FieldFitReasoning        Field = "fit_reasoning"
	FieldFitAlignment        Field = "fit_alignment"
	FieldDifficultyScore     Field = "difficulty_score"
	FieldDifficultyReasoning Field = "difficulty_reasoning"
	FieldFitUpdatedAt        Field = "fit_updated_at"
	FieldFitPortfolioHash    Field = "fit_portfolio_hash"

	FieldApplicationStatus Field = "application_status"
	FieldLastUpdated       Field = "last_updated"
)

// Record is one posting as stored. Text columns use "" for empty, nullable
// booleans and scores are pointers so "unset" stays distinct from false or 0.
type Record struct {
	JobID              string `mapstructure:"job_id"`
	Title              string `mapstructure:"title"`
	Institution        string `mapstructure:"institution"`
	Location           string `mapstructure:"location"`
	Description        string `mapstructure:"description"`
	PostedDate         string `mapstructure:"posted_date"`
	Deadline           string `mapstructure:"deadline"`
	ContactInfo        string `mapstructure:"contact_info"`
	Section            string `mapstructure:"section"`
	Keywords           string `mapstructure:"keywords"`
	JELClassifications string `mapstructure:"jel_classifications"`
	SalaryRange        string `mapstructure:"salary_range"`

	Requirements                string `mapstructure:"requirements"`
	ExtractedDeadline           string `mapstructure:"extracted_deadline"`
	ApplicationPortalURL        string `mapstructure:"application_portal_url"`
	RequiresSeparateApplication *bool  `mapstructure:"requires_separate_application"`
	Country                     string `mapstructure:"country"`
	ApplicationMaterials        string `mapstructure:"application_materials"`
	ReferencesSeparateEmail     *bool  `mapstructure:"references_separate_email"`
	Field                       string `mapstructure:"field"`
	Level                       string `mapstructure:"level"`
	PositionType                string `mapstructure:"position_type"`
	PositionTrack               string `mapstructure:"position_track"`

	FitScore            *float64 `mapstructure:"fit_score"`
	FitReasoning        string   `mapstructure:"fit_reasoning"`
	FitAlignment        string   `mapstructure:"fit_alignment"`
	DifficultyScore     *float64 `mapstructure:"difficulty_score"`
	DifficultyReasoning string   `mapstructure:"difficulty_reasoning"`
	FitUpdatedAt        string   `mapstructure:"fit_updated_at"`
	FitPortfolioHash    string   `mapstructure:"fit_portfolio_hash"`

	ApplicationStatus string `mapstructure:"application_status"`
	LastUpdated       string `mapstructure:"last_updated"`
}

// Get returns the stored value of f: a string, bool or float64, or nil when
// a nullable column is unset or the field is unknown.
func (r *Record) Get(f Field) any {
	switch f {
	case FieldJobID:
		return r.JobID
	case FieldTitle:
		return r.Title
	case FieldInstitution:
		return r.Institution
	case FieldLocation:
		return r.Location
	case FieldDescription:
		return r.Description
	case FieldPostedDate:
		return r.PostedDate
	case FieldDeadline:
		return r.Deadline
	case FieldContactInfo:
		return r.ContactInfo
	case FieldSection:
		return r.Section
	case FieldKeywords:
		return r.Keywords
	case FieldJELClassifications:
		return r.JELClassifications
	case FieldSalaryRange:
		return r.SalaryRange
	case FieldRequirements:
		return r.Requirements
	case FieldExtractedDeadline:
		return r.ExtractedDeadline
	case FieldApplicationPortalURL:
		return r.ApplicationPortalURL
	case FieldRequiresSeparateApplication:
		return derefBool(r.RequiresSeparateApplication)
	case FieldCountry:
		return r.Country
	case FieldApplicationMaterials:
		return r.ApplicationMaterials
	case FieldReferencesSeparateEmail:
		return derefBool(r.ReferencesSeparateEmail)
	case FieldField:
		return r.Field
	case FieldLevel:
		return r.Level
	case FieldPositionType:
		return r.PositionType
	case FieldPositionTrack:
		return r.PositionTrack
	case FieldFitScore:
		return derefFloat(r.FitScore)
	case FieldFitReasoning:
		return r.FitReasoning
	case FieldFitAlignment:
		return r.FitAlignment
	case FieldDifficultyScore:
		return derefFloat(r.DifficultyScore)
	case FieldDifficultyReasoning:
		return r.DifficultyReasoning
	case FieldFitUpdatedAt:
		return r.FitUpdatedAt
	case FieldFitPortfolioHash:
		return r.FitPortfolioHash
	case FieldApplicationStatus:
		return r.ApplicationStatus
	case FieldLastUpdated:
		return r.LastUpdated
	}
	return nil
}

// Apply writes the patch values onto the record in place.
func (r *Record) Apply(p Patch) error {
	if len(p) == 0 {
		return nil
	}

	input := make(map[string]any, len(p))
	for field, value := range p {
		input[string(field)] = value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           r,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "building record decoder")
	}

	if err := decoder.Decode(input); err != nil {
		return errors.Wrapf(err, "applying patch to job %s", r.JobID)
	}
	return nil
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.RequiresSeparateApplication = clonePtr(r.RequiresSeparateApplication)
	c.ReferencesSeparateEmail = clonePtr(r.ReferencesSeparateEmail)
	c.FitScore = clonePtr(r.FitScore)
	c.DifficultyScore = clonePtr(r.DifficultyScore)
	return &c
}

func derefBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
