package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-generator/internal/models"
	"github.com/noah-isme/sma-timetable-generator/pkg/export"
	"github.com/noah-isme/sma-timetable-generator/pkg/storage"
)

const (
	// SQLScriptName is the bulk insert script stored next to the CSV files.
	SQLScriptName = "02_beispieldaten.sql"
	// ClassTimetablesName is the PDF with one page per class.
	ClassTimetablesName = "stundenplaene_klassen.pdf"

	dateLayout = "2006-01-02"
)

type artifactStorage interface {
	Save(runID, name string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	DeleteRun(runID string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type sqlRenderer interface {
	Render(sets []export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(grids []export.TimetableGrid) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportService turns a timetable into table datasets and persists the rendered files.
type ExportService struct {
	storage artifactStorage
	csv     csvRenderer
	sql     sqlRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService. A nil signer stores files without download URLs.
func NewExportService(store artifactStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, sql sqlRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter(';')
	}
	if sql == nil {
		sql = export.NewSQLScriptExporter(1000)
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		storage: store,
		csv:     csv,
		sql:     sql,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Export renders every table as CSV plus the SQL script and the class
// timetables, and stores them under runID. A table that fails to render or
// store is skipped with a warning.
func (s *ExportService) Export(ctx context.Context, runID string, tt *models.Timetable) ([]models.RunArtifact, error) {
	if tt == nil {
		return nil, fmt.Errorf("timetable nil")
	}
	sets := BuildDatasets(tt)
	artifacts := make([]models.RunArtifact, 0, len(sets)+2)

	for _, data := range sets {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		payload, err := s.csv.Render(data)
		if err != nil {
			s.logger.Warn("skip table export", zap.String("table", data.Name), zap.Error(err))
			continue
		}
		artifact, err := s.store(runID, data.FileName(), payload)
		if err != nil {
			s.logger.Warn("skip table export", zap.String("table", data.Name), zap.Error(err))
			continue
		}
		artifacts = append(artifacts, artifact)
	}

	script, err := s.sql.Render(sets)
	if err != nil {
		return artifacts, fmt.Errorf("render sql script: %w", err)
	}
	artifact, err := s.store(runID, SQLScriptName, script)
	if err != nil {
		return artifacts, err
	}
	artifacts = append(artifacts, artifact)

	if grids := ClassTimetables(tt); len(grids) > 0 {
		pdf, err := s.pdf.Render(grids)
		if err != nil {
			s.logger.Warn("skip timetable pdf", zap.Error(err))
		} else if artifact, err := s.store(runID, ClassTimetablesName, pdf); err != nil {
			s.logger.Warn("skip timetable pdf", zap.Error(err))
		} else {
			artifacts = append(artifacts, artifact)
		}
	}

	s.logger.Info("export written", zap.String("run_id", runID), zap.Int("artifacts", len(artifacts)))
	return artifacts, nil
}

func (s *ExportService) store(runID, name string, payload []byte) (models.RunArtifact, error) {
	relPath, err := s.storage.Save(runID, name, payload)
	if err != nil {
		return models.RunArtifact{}, err
	}
	artifact := models.RunArtifact{Name: name, Path: relPath}
	if s.signer == nil {
		return artifact, nil
	}
	token, expiresAt, err := s.signer.Generate(runID, relPath)
	if err != nil {
		return models.RunArtifact{}, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	artifact.URL = fmt.Sprintf("%s/downloads/%s", prefix, token)
	artifact.ExpiresAt = expiresAt
	return artifact, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (runID, relPath string, expiresAt time.Time, err error) {
	if s.signer == nil {
		return "", "", time.Time{}, fmt.Errorf("downloads disabled")
	}
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to a stored artifact.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes every artifact of a run.
func (s *ExportService) Delete(runID string) error {
	return s.storage.DeleteRun(runID)
}

// Cleanup removes runs older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// BuildDatasets flattens a timetable into one dataset per persisted table,
// in foreign-key order. Empty cells stand for NULL.
func BuildDatasets(tt *models.Timetable) []export.Dataset {
	year := tt.SchoolYear
	yearID := itoa(year.ID)

	schoolYears := export.Dataset{Name: "schuljahr", Headers: []string{"id", "bezeichnung", "startdatum", "enddatum", "aktiv"}}
	schoolYears.Append(yearID, year.Label, date(year.Start), date(year.End), boolFlag(year.Active))

	rooms := export.Dataset{Name: "raum", Headers: []string{"id", "bezeichnung"}}
	for _, r := range tt.Rooms {
		rooms.Append(itoa(r.ID), r.Name)
	}

	weekdays := export.Dataset{Name: "wochentag", Headers: []string{"id", "name"}}
	for i, name := range models.WeekdayNames() {
		weekdays.Append(itoa(i+1), name)
	}

	subjects := export.Dataset{Name: "fach", Headers: []string{"id", "kuerzel", "name", "aufgabenfeld"}}
	for _, sub := range tt.Subjects {
		subjects.Append(itoa(sub.ID), sub.Code, sub.Name, sub.Area)
	}

	teachers := export.Dataset{Name: "lehrer", Headers: []string{"id", "kuerzel", "vorname", "nachname", "geburtsdatum", "aktiv"}}
	qualifications := export.Dataset{Name: "lehrbefaehigung", Headers: []string{"lehrer_id", "fach_id"}}
	for _, t := range tt.Teachers {
		teachers.Append(itoa(t.ID), t.Abbreviation, t.FirstName, t.LastName, date(t.BirthDate), boolFlag(true))
		for _, code := range t.Subjects() {
			if id := tt.SubjectID(code); id > 0 {
				qualifications.Append(itoa(t.ID), itoa(id))
			}
		}
	}

	students := export.Dataset{Name: "schueler", Headers: []string{"id", "vorname", "nachname", "geburtsdatum", "aktiv"}}
	for _, st := range tt.Students {
		students.Append(itoa(st.ID), st.FirstName, st.LastName, date(st.BirthDate), boolFlag(st.Active))
	}

	terms := export.Dataset{Name: "abschnitt", Headers: []string{"id", "schuljahr_id", "code", "startdatum", "enddatum"}}
	for _, term := range tt.Terms {
		terms.Append(itoa(term.ID), itoa(term.SchoolYearID), term.Code, date(term.Start), date(term.End))
	}

	classes := export.Dataset{Name: "klasse", Headers: []string{"id", "schuljahr_id", "jahrgangsstufe", "bezeichnung", "klassenlehrer_id"}}
	for _, c := range tt.Classes {
		classes.Append(itoa(c.ID), itoa(c.SchoolYearID), c.Grade, c.Key(), optionalID(c.HomeroomTeacherID))
	}

	statuses := export.Dataset{Name: "schueler_status", Headers: []string{"id", "schueler_id", "schuljahr_id", "jahrgangsstufe", "klasse_id", "status_laufbahn"}}
	for _, st := range tt.Statuses {
		classID := ""
		if st.ClassID != nil {
			classID = itoa(*st.ClassID)
		}
		statuses.Append(itoa(st.ID), itoa(st.StudentID), itoa(st.SchoolYearID), st.Grade, classID, st.Track)
	}

	deputations := export.Dataset{Name: "lehrer_deputation", Headers: []string{"id", "lehrer_id", "schuljahr_id", "deputat_soll", "anrechnungsstunden", "ermaessigungsstunden", "deputat_unterricht_verfuegbar", "beschaeftigungsumfang_prozent", "bemerkung"}}
	for _, d := range tt.Deputations {
		deputations.Append(itoa(d.ID), itoa(d.TeacherID), itoa(d.SchoolYearID), itoa(d.Target), itoa(d.Credit), itoa(d.Reduction),
			itoa(d.Available), strconv.FormatFloat(d.EmploymentRate, 'f', 2, 64), d.Note)
	}

	courses := export.Dataset{Name: "kurs", Headers: []string{"id", "schuljahr_id", "abschnitt_id", "bezeichnung", "fach_id", "lehrer_id", "jahrgangsstufe", "klasse_id", "kursart", "wochenstunden", "parallelgruppe"}}
	for _, c := range tt.Courses {
		teacherID, classID := "", ""
		if c.Teacher != nil {
			teacherID = itoa(c.Teacher.ID)
		}
		if c.Class != nil {
			classID = itoa(c.Class.ID)
		}
		courses.Append(itoa(c.ID), yearID, "", c.Label, optionalID(tt.SubjectID(c.Subject)), teacherID, c.Grade, classID, string(c.Kind), itoa(c.Hours), c.Group)
	}

	enrollments := export.Dataset{Name: "kursbelegung", Headers: []string{"schueler_id", "kurs_id"}}
	for _, e := range tt.Enrollments {
		enrollments.Append(itoa(e.StudentID), itoa(e.CourseID))
	}

	schedule := export.Dataset{Name: "stundenplan", Headers: []string{"id", "kurs_id", "schuljahr_id", "raum_id", "wochentag_id", "stunde", "gueltig_ab", "gueltig_bis"}}
	for _, e := range tt.Schedule {
		roomID, validUntil := "", ""
		if e.RoomID != nil {
			roomID = itoa(*e.RoomID)
		}
		if e.ValidUntil != nil {
			validUntil = date(*e.ValidUntil)
		}
		schedule.Append(itoa(e.ID), itoa(e.CourseID), itoa(e.SchoolYearID), roomID, itoa(e.Weekday), itoa(e.Period), date(e.ValidFrom), validUntil)
	}

	occurrences := export.Dataset{Name: "unterrichtsstunde", Headers: []string{"id", "stundenplan_id", "datum", "status", "thema", "hausaufgaben", "vertretungslehrer_id", "tatsaechlicher_raum_id", "tatsaechliche_stunde", "ist_klausur", "notiz"}}
	for _, o := range tt.Occurrences {
		substitute := ""
		if o.SubstituteTeacherID != nil {
			substitute = itoa(*o.SubstituteTeacherID)
		}
		occurrences.Append(itoa(o.ID), itoa(o.ScheduleEntryID), date(o.Date), string(o.Status), "", "", substitute, "", "", boolFlag(o.IsExam), "")
	}

	attendance := export.Dataset{Name: "anwesenheit", Headers: []string{"id", "unterrichtsstunde_id", "schueler_id", "status", "verspaetung_minuten", "entschuldigungsstatus", "anmerkung"}}
	for _, a := range tt.Attendance {
		attendance.Append(itoa(a.ID), itoa(a.OccurrenceID), itoa(a.StudentID), string(a.Status), itoa(a.LateMinutes), "", "")
	}

	return []export.Dataset{
		schoolYears, rooms, weekdays, subjects, teachers, qualifications, students, terms, classes,
		statuses, deputations, courses, enrollments, schedule, occurrences, attendance,
	}
}

// ClassTimetables renders the weekly grid of every class including its grade bands.
func ClassTimetables(tt *models.Timetable) []export.TimetableGrid {
	bands := make(map[string][]*models.Course)
	own := make(map[int][]*models.Course)
	for _, c := range tt.Courses {
		switch {
		case c.ClassBound():
			own[c.Class.ID] = append(own[c.Class.ID], c)
		case c.Scope == models.CourseScopeBand:
			bands[c.Grade] = append(bands[c.Grade], c)
		}
	}

	grids := make([]export.TimetableGrid, 0, len(tt.Classes))
	for _, class := range tt.Classes {
		entries := make(map[models.TimeSlot][]string)
		for _, c := range own[class.ID] {
			caption := c.Subject
			if c.Teacher != nil {
				caption += " " + c.Teacher.Abbreviation
			}
			if c.Room != nil {
				caption += " " + c.Room.Name
			}
			for _, slot := range c.Slots {
				entries[slot] = append(entries[slot], caption)
			}
		}
		for _, c := range bands[class.Grade] {
			for _, slot := range c.Slots {
				entries[slot] = append(entries[slot], c.Subject)
			}
		}

		cells := make([][]string, models.MaxPeriod)
		for p := range cells {
			cells[p] = make([]string, models.DaysPerWeek)
			for d := range cells[p] {
				captions := entries[models.TimeSlot{Day: d, Period: p + 1}]
				sort.Strings(captions)
				cells[p][d] = strings.Join(captions, " / ")
			}
		}
		homeroom := ""
		for _, t := range tt.Teachers {
			if t.ID == class.HomeroomTeacherID {
				homeroom = t.Abbreviation
				break
			}
		}
		grids = append(grids, export.TimetableGrid{
			Title:    fmt.Sprintf("Stundenplan Klasse %s", class.Key()),
			Subtitle: fmt.Sprintf("Schuljahr %s, Klassenleitung %s", tt.SchoolYear.Label, homeroom),
			Days:     models.WeekdayNames(),
			Periods:  models.MaxPeriod,
			Cells:    cells,
		})
	}
	return grids
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

func optionalID(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
