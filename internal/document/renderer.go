package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cotizador_backend/platform/apperr"
	"cotizador_backend/platform/logger"
)

// FilledDocument is a rendered quotation, still in DOCX form.
type FilledDocument struct {
	// Name is the suggested DOCX file name.
	Name string
	// Template is the file name of the template used.
	Template string
	Content  []byte
}

// Renderer fills templates from the registry. It never writes to disk.
type Renderer struct {
	registry *TemplateRegistry
	mappings *Mappings
	log      *logger.Logger
}

// NewRenderer creates a renderer. mappings may be nil.
func NewRenderer(registry *TemplateRegistry, mappings *Mappings, log *logger.Logger) *Renderer {
	return &Renderer{registry: registry, mappings: mappings, log: log}
}

// TemplateNames lists the available templates.
func (r *Renderer) TemplateNames() []string {
	return r.registry.TemplateNames()
}

// Render fills the template for data.MachineID.
func (r *Renderer) Render(ctx context.Context, data QuoteData) (FilledDocument, error) {
	if err := ctx.Err(); err != nil {
		return FilledDocument{}, err
	}

	path, ok := r.registry.Resolve(data.TemplateHint, data.MachineID)
	if !ok {
		// A template may have been added since the last scan.
		if err := r.registry.Scan(); err != nil {
			return FilledDocument{}, templateError("template directory unreadable", err)
		}
		path, ok = r.registry.Resolve(data.TemplateHint, data.MachineID)
	}
	if !ok {
		return FilledDocument{}, templateError(fmt.Sprintf("no template for machine %s", data.MachineID), nil).
			WithDetails(map[string]string{"machine": data.MachineID, "templates_dir": r.registry.Dir()})
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return FilledDocument{}, templateError("read template", err)
	}

	if data.Date.IsZero() {
		data.Date = time.Now()
	}
	tmplName := filepath.Base(path)
	values := buildValues(data)
	r.mappings.apply(tmplName, values)

	res, err := fillDOCX(src, values)
	if err != nil {
		return FilledDocument{}, templateError(fmt.Sprintf("fill template %s", tmplName), err)
	}
	if missing := missingGroups(res.found); len(missing) > 0 {
		return FilledDocument{}, templateError(
			fmt.Sprintf("template %s lacks required placeholders: %s", tmplName, strings.Join(missing, ", ")), nil).
			WithDetails(map[string]any{"template": tmplName, "missing": missing})
	}
	if len(res.missing) > 0 && r.log != nil {
		r.log.WithContext(ctx).Warn("template placeholders without value",
			"template", tmplName, "placeholders", res.missing)
	}

	return FilledDocument{
		Name:     QuoteFileName(data.MachineID, data.CustomerName, data.Date, "docx"),
		Template: tmplName,
		Content:  res.content,
	}, nil
}

func missingGroups(found map[string]struct{}) []string {
	var missing []string
	for _, group := range []struct {
		name    string
		members []string
	}{
		{"customer", customerPlaceholders},
		{"total", totalPlaceholders},
	} {
		present := false
		for _, m := range group.members {
			if _, ok := found[placeholderKey(m)]; ok {
				present = true
				break
			}
		}
		if !present {
			missing = append(missing, group.name+" ("+strings.Join(group.members, "|")+")")
		}
	}
	return missing
}

func templateError(msg string, err error) *apperr.Error {
	return apperr.Wrap(apperr.KindInternal, msg, err).WithCode(apperr.CodeTemplate).WithOp("document.Render")
}
