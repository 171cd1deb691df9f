package importer

import "github.com/afrenkai/yo-kai-watch-somen-spirits-rewrite/internal/game/catalog"

// Result is what a Source produces: catalog records ready to be validated,
// plus any non-fatal problems found while converting.
type Result struct {
	Records  catalog.Records
	Warnings []string
}

// Source loads catalog data from a format-specific source directory.
//
// Precondition: sourceDir must exist and contain the layout the format expects.
// Postcondition: returns a non-nil Result or a non-nil error. Records are not
// yet cross-reference validated.
type Source interface {
	Load(sourceDir string) (*Result, error)
}
