package ledger

import "github.com/starford/mdorg/internal/models"

// Summary aggregates the ledger for the status report.
type Summary struct {
	Total      int `json:"total"`
	Converted  int `json:"converted"`
	Failed     int `json:"failed"`
	Links      int `json:"links"`
	Unresolved int `json:"unresolved"`
}

// Store defines the ledger operations used by the converter and the read
// surfaces. Consumers depend on this interface rather than *DB.
type Store interface {
	UpsertConversion(c models.Conversion, links []models.Link) error
	DeleteConversion(source string) error
	GetConversion(source string) (*models.Conversion, error)
	GetChecksum(source string) (string, error)
	AllChecksums() (map[string]string, error)
	ListConversions(status string, limit, offset int) ([]models.Conversion, int, error)
	UnresolvedLinks() ([]models.Link, error)
	Backlinks(target string) ([]string, error)
	Links(source string) ([]models.Link, error)
	Summary() (Summary, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
