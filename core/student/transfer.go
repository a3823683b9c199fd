package student

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/core/user"
)

const maxGPA = 4.0

var (
	importDateLayouts = []string{"02-01-2006", "02/01/2006", dateLayout}
	csvHeader         = []string{"code", "name", "birth_date", "gender", "class", "gpa"}
)

// ImportRow is one raw line of a student bulk import.
type ImportRow struct {
	Code      string
	Name      string
	BirthDate string // dd-mm-yyyy or dd/mm/yyyy
	Gender    string
	ClassName string
	GPA       string
}

// ReadCSV parses rows laid out as code,name,birth_date,gender,class,gpa.
// A first line equal to the header is skipped and short lines are padded.
func ReadCSV(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}

	rows := make([]ImportRow, 0, len(records))
	for i, rec := range records {
		if i == 0 && len(rec) > 0 && strings.EqualFold(core.CleanString(rec[0]), csvHeader[0]) {
			continue
		}
		for len(rec) < len(csvHeader) {
			rec = append(rec, "")
		}
		rows = append(rows, ImportRow{
			Code:      rec[0],
			Name:      rec[1],
			BirthDate: rec[2],
			Gender:    rec[3],
			ClassName: rec[4],
			GPA:       rec[5],
		})
	}
	return rows, nil
}

// WriteCSV writes students with their class name and GPA, header first.
func WriteCSV(w io.Writer, students []Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range students {
		var birthDate string
		if s.BirthDate != nil {
			birthDate = s.BirthDate.Format("02-01-2006")
		}
		rec := []string{s.Code, s.Name, birthDate, s.Gender, s.ClassName, strconv.FormatFloat(s.GPA, 'f', 2, 64)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import creates a Student per row and returns how many were added.
// Rows without a code or name are skipped, as are codes that already exist or repeat within rows.
// Unknown class names leave the class empty and unparsable GPAs become 0.
func (svc *Service) Import(ctx context.Context, rows []ImportRow) (int, error) {
	var added int
	err := svc.db.InTx(ctx, func(tx core.DBExecutor) error {
		seen := make(map[string]struct{}, len(rows))
		classes := make(map[string]*int)
		now := time.Now().UTC()

		for _, row := range rows {
			code := core.CleanString(row.Code)
			name := core.CleanString(row.Name)
			if code == "" || name == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}

			if _, err := svc.repo.GetStudentByCode(ctx, code, tx); err == nil {
				continue
			} else if errors.Cause(err) != ErrNotFound {
				return errors.Wrap(err, "finding student by code")
			}

			classID, err := svc.resolveClass(ctx, tx, classes, core.CleanString(row.ClassName))
			if err != nil {
				return err
			}

			s := Student{
				Code:      code,
				Name:      name,
				BirthDate: parseImportDate(row.BirthDate),
				Gender:    core.CleanString(row.Gender),
				ClassID:   classID,
				GPA:       parseGPA(row.GPA),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err = svc.repo.CreateStudent(ctx, s, tx); err != nil {
				return errors.Wrap(err, "inserting student")
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (svc *Service) resolveClass(ctx context.Context, tx core.DBExecutor, cache map[string]*int, name string) (*int, error) {
	if name == "" {
		return nil, nil
	}
	if id, ok := cache[name]; ok {
		return id, nil
	}
	c, err := svc.repo.GetClassByName(ctx, name, tx)
	switch {
	case err == nil:
		cache[name] = core.Int(c.ID)
	case errors.Cause(err) == ErrClassNotFound:
		cache[name] = nil
	default:
		return nil, errors.Wrap(err, "finding class by name")
	}
	return cache[name], nil
}

// Export returns the students matching filter, ready for WriteCSV.
func (svc *Service) Export(ctx context.Context, filter QueryFilter) ([]Student, error) {
	return svc.Query(ctx, filter)
}

func parseImportDate(s string) *time.Time {
	s = core.CleanString(s)
	if s == "" {
		return nil
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parseGPA reads a GPA on the 0-4 scale. Unparsable or out-of-range values become 0.
func parseGPA(s string) float64 {
	gpa, err := strconv.ParseFloat(core.CleanString(s), 64)
	if err != nil || math.IsNaN(gpa) || gpa < 0 || gpa > maxGPA {
		return 0
	}
	return gpa
}

// AccountSeeds turns students into the seeds of their login accounts.
func AccountSeeds(students []Student) []user.StudentAccount {
	accts := make([]user.StudentAccount, 0, len(students))
	for _, s := range students {
		accts = append(accts, user.StudentAccount{StudentID: s.ID, Code: s.Code, Name: s.Name})
	}
	return accts
}
