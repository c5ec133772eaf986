package job

import "sort"

// Kind is the value type a field carries.
type Kind int

const (
	KindText Kind = iota
	KindList
	KindBool
	KindFloat
	KindDate
)

// Class is the provenance of a field.
type Class int

const (
	ClassSource Class = iota
	ClassEnrichment
	ClassScoring
	ClassUser
)

// Policy decides how an incoming value is folded into a stored one.
type Policy int

const (
	// Overwrite replaces the stored value whenever the new one differs.
	Overwrite Policy = iota
	// FillEmpty adopts the new value only when nothing is stored yet.
	FillEmpty
	// Accumulate appends new text or list items that are not already present.
	Accumulate
	// NeverOverwrite keeps a value once it moved away from its default.
	NeverOverwrite
)

// FieldSpec describes one column of the merge table.
type FieldSpec struct {
	Kind    Kind
	Class   Class
	Policy  Policy
	Default string
}

const (
	StatusNew      = "new"
	StatusApplied  = "applied"
	StatusExpired  = "expired"
	StatusRejected = "rejected"
	StatusAccepted = "accepted"
)

// Statuses lists every accepted application_status value.
var Statuses = []string{StatusNew, StatusApplied, StatusExpired, StatusRejected, StatusAccepted}

// ValidStatus reports whether s is one of Statuses.
func ValidStatus(s string) bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Schema is the merge table. job_id and last_updated are managed by the store
// and are intentionally absent.
var Schema = map[Field]FieldSpec{
	FieldTitle:              {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldInstitution:        {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldLocation:           {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldDescription:        {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldPostedDate:         {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldDeadline:           {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldContactInfo:        {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldSection:            {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldKeywords:           {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldJELClassifications: {Kind: KindText, Class: ClassSource, Policy: Overwrite},
	FieldSalaryRange:        {Kind: KindText, Class: ClassSource, Policy: Overwrite},

	FieldRequirements:                {Kind: KindText, Class: ClassEnrichment, Policy: Accumulate},
	FieldExtractedDeadline:           {Kind: KindDate, Class: ClassEnrichment, Policy: FillEmpty},
	FieldApplicationPortalURL:        {Kind: KindText, Class: ClassEnrichment, Policy: FillEmpty},
	FieldRequiresSeparateApplication: {Kind: KindBool, Class: ClassEnrichment, Policy: FillEmpty},
	FieldCountry:                     {Kind: KindText, Class: ClassEnrichment, Policy: FillEmpty},
	FieldApplicationMaterials:        {Kind: KindList, Class: ClassEnrichment, Policy: Accumulate},
	FieldReferencesSeparateEmail:     {Kind: KindBool, Class: ClassEnrichment, Policy: FillEmpty},
	FieldField:                       {Kind: KindText, Class: ClassEnrichment, Policy: FillEmpty},
	FieldLevel:                       {Kind: KindText, Class: ClassEnrichment, Policy: FillEmpty},
	FieldPositionType:                {Kind: KindText, Class: ClassEnrichment, Policy: FillEmpty},
	FieldPositionTrack:               {Kind: KindText, Class: ClassEnrichment, Policy: FillEmpty},

	FieldFitScore:            {Kind: KindFloat, Class: ClassScoring, Policy: Overwrite},
	FieldFitReasoning:        {Kind: KindText, Class: ClassScoring, Policy: Overwrite},
	FieldFitAlignment:        {Kind: KindText, Class: ClassScoring, Policy: Overwrite},
	FieldDifficultyScore:     {Kind: KindFloat, Class: ClassScoring, Policy: Overwrite},
	FieldDifficultyReasoning: {Kind: KindText, Class: ClassScoring, Policy: Overwrite},
	FieldFitUpdatedAt:        {Kind: KindText, Class: ClassScoring, Policy: Overwrite},
	FieldFitPortfolioHash:    {Kind: KindText, Class: ClassScoring, Policy: Overwrite},

	FieldApplicationStatus: {Kind: KindText, Class: ClassUser, Policy: NeverOverwrite, Default: StatusNew},
}

// EnrichmentFields are the fields whose emptiness flags a record for enrichment.
var EnrichmentFields = []Field{
	FieldExtractedDeadline,
	FieldApplicationPortalURL,
	FieldRequiresSeparateApplication,
	FieldCountry,
	FieldApplicationMaterials,
	FieldReferencesSeparateEmail,
	FieldField,
	FieldLevel,
	FieldPositionType,
	FieldPositionTrack,
}

// Columns returns every persisted column in a stable order, job_id first.
func Columns() []Field {
	cols := make([]Field, 0, len(Schema)+2)
	for field := range Schema {
		cols = append(cols, field)
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i] < cols[j] })
	return append(append([]Field{FieldJobID}, cols...), FieldLastUpdated)
}

// Touches reports whether the patch changes a field of the given classes.
func (p Patch) Touches(classes ...Class) bool {
	for field := range p {
		spec, ok := Schema[field]
		if !ok {
			continue
		}
		for _, class := range classes {
			if spec.Class == class {
				return true
			}
		}
	}
	return false
}
