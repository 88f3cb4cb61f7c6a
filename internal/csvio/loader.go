package csvio

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/internal/service"
)

// Input file names looked up in the input directory. Every file is optional.
const (
	SubjectsFile   = "faecher.csv"
	ClassesFile    = "klassen.csv"
	StagesFile     = "oberstufe.csv"
	FirstNamesFile = "vornamen.txt"
	LastNamesFile  = "nachnamen.txt"
)

// subjectRow is one line of faecher.csv.
type subjectRow struct {
	Code string `csv:"kuerzel"`
	Name string `csv:"name"`
	Area string `csv:"aufgabenfeld"`
}

// classRow is one line of klassen.csv.
type classRow struct {
	Grade     string `csv:"jahrgang"`
	Section   string `csv:"klasse"`
	Headcount int    `csv:"anzahl"`
}

// Loader reads reference tables and name lists from delimited files.
type Loader struct {
	dir   string
	delim rune
}

// NewLoader builds a loader for dir; a zero delimiter means ';'.
func NewLoader(dir string, delim rune) *Loader {
	if delim == 0 {
		delim = ';'
	}
	return &Loader{dir: dir, delim: delim}
}

// ReferenceData starts from base and replaces every table whose file exists.
func (l *Loader) ReferenceData(base service.ReferenceData) (service.ReferenceData, error) {
	ref := base
	if l.dir == "" {
		return ref, nil
	}

	var subjects []subjectRow
	found, err := l.unmarshal(SubjectsFile, &subjects)
	if err != nil {
		return ref, err
	}
	if found {
		ref.Subjects = make([]models.Subject, 0, len(subjects))
		for i, row := range subjects {
			ref.Subjects = append(ref.Subjects, models.Subject{ID: i + 1, Code: strings.TrimSpace(row.Code), Name: row.Name, Area: row.Area})
		}
	}

	var classes []classRow
	found, err = l.unmarshal(ClassesFile, &classes)
	if err != nil {
		return ref, err
	}
	if found {
		ref.Grades = groupClasses(classes)
	}

	var stages []models.Stage
	found, err = l.unmarshal(StagesFile, &stages)
	if err != nil {
		return ref, err
	}
	if found {
		ref.Stages = stages
	}

	if err := ref.Validate(); err != nil {
		return ref, fmt.Errorf("reference data in %s: %w", l.dir, err)
	}
	return ref, nil
}

// NameLists reads vornamen.txt, split into "# Männlich" and "# Weiblich"
// sections, and nachnamen.txt. Missing files yield empty lists.
func (l *Loader) NameLists() (service.NameLists, error) {
	var names service.NameLists
	if l.dir == "" {
		return names, nil
	}

	var section *[]string
	err := l.readLines(FirstNamesFile, func(line string) {
		switch line {
		case "# Männlich":
			section = &names.Male
		case "# Weiblich":
			section = &names.Female
		default:
			if section != nil && !strings.HasPrefix(line, "#") {
				*section = append(*section, line)
			}
		}
	})
	if err != nil {
		return names, err
	}

	err = l.readLines(LastNamesFile, func(line string) {
		if !strings.HasPrefix(line, "#") {
			names.Last = append(names.Last, line)
		}
	})
	return names, err
}

// readLines calls fn for every non-blank trimmed line of name.
func (l *Loader) readLines(name string, fn func(string)) error {
	file, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}

func (l *Loader) unmarshal(name string, out interface{}) (bool, error) {
	file, err := os.Open(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", name, err)
	}
	defer file.Close()

	if err := gocsv.UnmarshalCSV(l.reader(file), out); err != nil {
		return true, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func (l *Loader) reader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = l.delim
	r.TrimLeadingSpace = true
	return r
}

func groupClasses(rows []classRow) []models.GradeRoster {
	byGrade := make(map[string]*models.GradeRoster)
	var order []string
	for _, row := range rows {
		grade := strings.TrimSpace(row.Grade)
		roster, ok := byGrade[grade]
		if !ok {
			roster = &models.GradeRoster{Grade: grade}
			byGrade[grade] = roster
			order = append(order, grade)
		}
		roster.Sections = append(roster.Sections, models.SectionCount{Section: strings.TrimSpace(row.Section), Headcount: row.Headcount})
	}
	sort.SliceStable(order, func(i, j int) bool { return models.GradeLevel(order[i]) < models.GradeLevel(order[j]) })
	out := make([]models.GradeRoster, 0, len(order))
	for _, grade := range order {
		out = append(out, *byGrade[grade])
	}
	return out
}
