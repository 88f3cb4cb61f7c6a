package export

import "fmt"

// Dataset is one table worth of rows in column order.
type Dataset struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Append adds a row, padding or trimming it to the header width.
func (d *Dataset) Append(values ...string) {
	row := make([]string, len(d.Headers))
	copy(row, values)
	d.Rows = append(d.Rows, row)
}

// Validate reports rows whose width does not match the headers.
func (d Dataset) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dataset name required")
	}
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset %s requires at least one header", d.Name)
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("dataset %s row %d has %d values, want %d", d.Name, i+1, len(row), len(d.Headers))
		}
	}
	return nil
}

// FileName is the CSV file name the dataset is stored under.
func (d Dataset) FileName() string {
	return d.Name + ".csv"
}

// TableOrder lists the tables parents first so foreign keys resolve on insert.
var TableOrder = []string{
	"schuljahr",
	"raum",
	"wochentag",
	"fach",
	"lehrer",
	"lehrbefaehigung",
	"schueler",
	"abschnitt",
	"klasse",
	"schueler_status",
	"lehrer_deputation",
	"kurs",
	"kursbelegung",
	"stundenplan",
	"unterrichtsstunde",
	"anwesenheit",
}

// SortByTableOrder returns the datasets arranged by TableOrder; unknown tables go last.
func SortByTableOrder(sets []Dataset) []Dataset {
	byName := make(map[string]Dataset, len(sets))
	for _, s := range sets {
		byName[s.Name] = s
	}
	ordered := make([]Dataset, 0, len(sets))
	seen := make(map[string]bool, len(sets))
	for _, name := range TableOrder {
		if s, ok := byName[name]; ok {
			ordered = append(ordered, s)
			seen[name] = true
		}
	}
	for _, s := range sets {
		if !seen[s.Name] {
			ordered = append(ordered, s)
		}
	}
	return ordered
}
