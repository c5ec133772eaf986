package joe

import (
	"bytes"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/job"
)

// Columns maps JOE export headers to record fields. Headers equal to a field
// name are accepted as well, so exports of this tool can be read back.
var Columns = map[string]job.Field{
	"jp_id":                job.FieldJobID,
	"jp_title":             job.FieldTitle,
	"jp_institution":       job.FieldInstitution,
	"jp_full_text":         job.FieldDescription,
	"locations":            job.FieldLocation,
	"Application_deadline": job.FieldDeadline,
	"Date_Active":          job.FieldPostedDate,
	"jp_section":           job.FieldSection,
	"jp_keywords":          job.FieldKeywords,
	"JEL_Classifications":  job.FieldJELClassifications,
	"jp_salary_range":      job.FieldSalaryRange,
}

var sourceFields = map[job.Field]bool{
	job.FieldJobID:              true,
	job.FieldTitle:              true,
	job.FieldInstitution:        true,
	job.FieldDescription:        true,
	job.FieldLocation:           true,
	job.FieldDeadline:           true,
	job.FieldPostedDate:         true,
	job.FieldSection:            true,
	job.FieldKeywords:           true,
	job.FieldJELClassifications: true,
	job.FieldSalaryRange:        true,
	job.FieldContactInfo:        true,
}

var zipMagic = []byte("PK\x03\x04")

// ID derives a stable job id when the export has none.
func ID(institution, title, postedDate string) string {
	key := institution + "|" + title
	if postedDate != "" {
		key += "|" + postedDate
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Parse reads an .xlsx workbook or a CSV export into records. Rows without a
// title or institution are skipped.
func Parse(data []byte, logger *zap.Logger) ([]*job.Record, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		rows [][]string
		err  error
	)
	if bytes.HasPrefix(data, zipMagic) {
		rows, err = readWorkbook(data)
	} else {
		rows, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("export has no header row")
	}

	index := headerIndex(rows[0])
	if _, ok := index[job.FieldTitle]; !ok {
		return nil, errors.WithHintf(
			errors.New("export has no title column"),
			"expected JOE headers such as %s", strings.Join([]string{"jp_id", "jp_title", "jp_institution"}, ", "),
		)
	}

	records := make([]*job.Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec, err := recordFromRow(index, row)
		if err != nil {
			logger.Warn("skipping export row", zap.Int("row", n+2), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	logger.Info("parsed job export", zap.Int("rows", len(rows)-1), zap.Int("jobs", len(records)))
	return records, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheets[0])
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read csv export")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func headerIndex(header []string) map[job.Field]int {
	index := make(map[job.Field]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		field, ok := Columns[name]
		if !ok {
			if f := job.Field(name); sourceFields[f] {
				field, ok = f, true
			}
		}
		if !ok {
			continue
		}
		if _, seen := index[field]; !seen {
			index[field] = i
		}
	}
	return index
}

func recordFromRow(index map[job.Field]int, row []string) (*job.Record, error) {
	value := func(f job.Field) string {
		i, ok := index[f]
		if !ok || i >= len(row) {
			return ""
		}
		v := strings.TrimSpace(row[i])
		if strings.EqualFold(v, "nan") {
			return ""
		}
		return v
	}

	rec := &job.Record{
		JobID:              value(job.FieldJobID),
		Title:              value(job.FieldTitle),
		Institution:        value(job.FieldInstitution),
		Description:        value(job.FieldDescription),
		Location:           value(job.FieldLocation),
		Deadline:           value(job.FieldDeadline),
		PostedDate:         value(job.FieldPostedDate),
		Section:            value(job.FieldSection),
		Keywords:           value(job.FieldKeywords),
		JELClassifications: value(job.FieldJELClassifications),
		SalaryRange:        value(job.FieldSalaryRange),
		ContactInfo:        value(job.FieldContactInfo),
	}

	if rec.Title == "" && rec.Institution == "" {
		return nil, errors.New("row has neither title nor institution")
	}
	if rec.JobID == "" {
		rec.JobID = ID(rec.Institution, rec.Title, rec.PostedDate)
	}
	if date, ok := job.ParseLocalDate(rec.Deadline); ok {
		rec.Deadline = date
	}
	return rec, nil
}
