package exchange

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/altmarkt/altmarkt-backend/internal/platform/logger"
)

// FilePair is one discovered import/offers document pair inside a tenant
// folder, as absolute paths.
type FilePair struct {
	ImportPath string
	OffersPath string
}

// Scanner enumerates per-tenant exchange folders under the exchange root.
// Folder names are company ids; non-numeric entries are ignored.
type Scanner struct {
	root string
	log  *logger.Logger
}

func NewScanner(root string, baseLog *logger.Logger) *Scanner {
	return &Scanner{root: root, log: baseLog.With("service", "ExchangeScanner")}
}

func (s *Scanner) Root() string {
	return s.root
}

// TenantDir returns the exchange folder path for one company.
func (s *Scanner) TenantDir(companyID uint) string {
	return filepath.Join(s.root, strconv.FormatUint(uint64(companyID), 10))
}

// TenantFolders lists the company ids that currently have an exchange folder.
// A missing root is not an error; it simply yields no tenants.
func (s *Scanner) TenantFolders() ([]uint, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &RunError{Kind: KindDiscovery, Err: fmt.Errorf("read exchange root %q: %w", s.root, err)}
	}

	var ids []uint
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseUint(entry.Name(), 10, 32)
		if err != nil {
			s.log.Debug("Skipping non-numeric exchange folder", "name", entry.Name())
			continue
		}
		ids = append(ids, uint(id))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// FindPairs locates import/offers document pairs inside a tenant folder.
// Pairing policy: for each import*.xml the offers file is the same name with
// the leading "import" replaced by "offers"; an import file without that
// counterpart contributes nothing. A missing folder yields no pairs.
func (s *Scanner) FindPairs(companyID uint) ([]FilePair, error) {
	dir := s.TenantDir(companyID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &RunError{Kind: KindDiscovery, Err: fmt.Errorf("read tenant folder %q: %w", dir, err)}
	}

	present := make(map[string]bool, len(entries))
	var importNames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		present[name] = true
		if strings.HasPrefix(name, "import") && strings.EqualFold(filepath.Ext(name), ".xml") {
			importNames = append(importNames, name)
		}
	}
	sort.Strings(importNames)

	var pairs []FilePair
	for _, name := range importNames {
		offersName := "offers" + strings.TrimPrefix(name, "import")
		if !present[offersName] {
			s.log.Debug("Import file without offers counterpart", "import", name, "expected", offersName)
			continue
		}
		pairs = append(pairs, FilePair{
			ImportPath: filepath.Join(dir, name),
			OffersPath: filepath.Join(dir, offersName),
		})
	}
	return pairs, nil
}
