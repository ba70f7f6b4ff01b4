// Package document fills quotation DOCX templates with quote data.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"cotizador_backend/internal/catalog/domain"
)

var templateStemPattern = regexp.MustCompile(`^(CM|TS)[A-Z0-9]*$`)

var excludedStems = map[string]struct{}{
	"COTIZACIONMATERIALS": {},
}

// TemplateRegistry indexes the quotation templates found in a directory.
// Scan may be called again to pick up new files.
type TemplateRegistry struct {
	dir string

	mu    sync.RWMutex
	byID  map[string]string
	names []string
}

// NewTemplateRegistry scans dir for templates. A missing directory is not an
// error; the registry is simply empty until the next Scan.
func NewTemplateRegistry(dir string) (*TemplateRegistry, error) {
	r := &TemplateRegistry{dir: dir}
	if err := r.Scan(); err != nil {
		return nil, err
	}
	return r, nil
}

// Dir returns the scanned directory.
func (r *TemplateRegistry) Dir() string { return r.dir }

// Scan re-reads the template directory.
func (r *TemplateRegistry) Scan() error {
	byID := make(map[string]string)
	var names []string

	entries, err := os.ReadDir(r.dir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read templates dir %s: %w", r.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".docx") {
			continue
		}
		// Word lock files ("~$CM640.docx") sit next to open documents.
		if strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		id := domain.NormalizeMachineID(e.Name())
		if _, skip := excludedStems[id]; skip || !templateStemPattern.MatchString(id) {
			continue
		}
		if _, dup := byID[id]; dup {
			continue
		}
		byID[id] = filepath.Join(r.dir, e.Name())
		names = append(names, e.Name())
	}
	sort.Strings(names)

	r.mu.Lock()
	r.byID = byID
	r.names = names
	r.mu.Unlock()
	return nil
}

// TemplateNames lists the template file names, sorted.
func (r *TemplateRegistry) TemplateNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// Resolve picks the template for a machine. It tries the catalog's template
// hint, then the machine id, then the family template named by the id's
// leading letters ("CM" for "CM640").
func (r *TemplateRegistry) Resolve(hint, machineID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := []string{domain.NormalizeMachineID(hint), domain.NormalizeMachineID(machineID)}
	if family := familyOf(domain.NormalizeMachineID(machineID)); family != "" {
		candidates = append(candidates, family)
	}
	for _, id := range candidates {
		if id == "" {
			continue
		}
		if path, ok := r.byID[id]; ok {
			return path, true
		}
	}
	return "", false
}

func familyOf(id string) string {
	end := 0
	for end < len(id) && id[end] >= 'A' && id[end] <= 'Z' {
		end++
	}
	if end == 0 || end == len(id) {
		return ""
	}
	return id[:end]
}
