// Package importer reads transactions and their entities from external
// files: the legacy browser backup, a plain CSV layout and free-text
// messages.
package importer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fincontrol-dev/fincontrol/internal/installment"
	"github.com/fincontrol-dev/fincontrol/internal/model"
)

// Parser converts an import file into a Batch.
type Parser interface {
	Parse(r io.Reader) (*Batch, error)
	Format() string
}

// Batch is everything read from one file. Entries are intents, not split
// records; their categories are still unresolved references.
type Batch struct {
	Accounts   []model.Account
	Cards      []model.Card
	Categories []model.Category
	Statements []model.StatementStatus
	Entries    []Entry
	// BalancesIncluded is set when account balances already reflect the
	// entries, so recording them must not move balances again.
	BalancesIncluded bool
}

// Entry is one intent to record. CategoryRef is a category ID or, for
// legacy data, a category name. CardRef, when set, names a stored card by
// ID, name or bank and overrides Intent.CardID.
type Entry struct {
	Intent      installment.Intent
	CategoryRef string
	CardRef     string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Detect picks a parser from the file extension: .json is the legacy
// backup, .csv the plain layout and .txt a list of messages.
func (r *Registry) Detect(fileName string) Parser {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".json":
		return r.Get(FormatLegacy)
	case ".csv":
		return r.Get(FormatCSV)
	case ".txt":
		return r.Get(FormatMessage)
	}
	return nil
}

// DefaultRegistry returns a registry with all built-in parsers. Messages
// without a date are recorded on today.
func DefaultRegistry(today time.Time) *Registry {
	r := NewRegistry()
	r.Register(&LegacyParser{})
	r.Register(&CSVParser{})
	r.Register(&MessageParser{Today: today})
	return r
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns importable files in <dataDir>/import/.
func Scan(dataDir string) ([]FileInfo, error) {
	dir := filepath.Join(dataDir, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".json", ".txt":
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(dataDir, fileName string) error {
	src := filepath.Join(dataDir, importDir, fileName)
	dstDir := filepath.Join(dataDir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}
