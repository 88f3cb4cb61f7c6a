package models

// Subject is an entry of the static subject catalog.
type Subject struct {
	ID   int    `db:"id" json:"id" csv:"id"`
	Code string `db:"kuerzel" json:"code" csv:"kuerzel"`
	Name string `db:"name" json:"name" csv:"name"`
	Area string `db:"aufgabenfeld" json:"area" csv:"aufgabenfeld"`
}
