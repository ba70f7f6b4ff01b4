package service

import (
	"errors"
	"sort"
	"strings"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/catalog/sheets"
)

var (
	machineAliases  = []string{"modelo", "model", "maquina", "maquina_id", "id"}
	templateAliases = []string{"plantilla", "template", "docx", "archivo"}
	baseAliases     = []string{"precio_base", "base_price", "precio", "price", "costo"}
	stepAliases     = []string{"paso", "paso_id", "step", "step_id", "pregunta", "question"}
	optionAliases   = []string{"opcion", "opcion_label", "label", "nombre_opcion", "opcion_valor", "value"}
	priceAliases    = []string{"precio", "price", "extra", "costo", "precio_extra_us"}
	typeAliases     = []string{"tipo", "type", "input_type", "control", "tipo_control"}
)

var baseStepNames = map[string]struct{}{
	"base": {}, "baseprice": {}, "preciobase": {}, "pricebase": {},
}

var checkboxTypes = map[string]struct{}{
	"checkbox": {}, "bool": {}, "boolean": {}, "check": {},
}

// ErrNoValidMachines is returned when the remote tables produce no usable
// machine.
var ErrNoValidMachines = errors.New("remote catalog has no valid machines")

// rowValue looks a column up by alias: exact normalized header first, then
// any header containing the alias.
func rowValue(row sheets.Row, aliases []string) string {
	normalized := make(map[string]string, len(row))
	keys := make([]string, 0, len(row))
	for header := range row {
		norm := domain.NormalizeKey(header)
		normalized[norm] = header
		keys = append(keys, norm)
	}
	sort.Strings(keys)
	for _, alias := range aliases {
		if header, ok := normalized[domain.NormalizeKey(alias)]; ok {
			return strings.TrimSpace(row[header])
		}
	}
	for _, alias := range aliases {
		key := domain.NormalizeKey(alias)
		for _, norm := range keys {
			if strings.Contains(norm, key) {
				return strings.TrimSpace(row[normalized[norm]])
			}
		}
	}
	return ""
}

type machineDraft struct {
	entry    domain.MachineEntry
	steps    []*stepDraft
	stepByID map[string]*stepDraft
}

type stepDraft struct {
	name     string
	checkbox bool
	options  []domain.Option
	seen     map[string]struct{}
}

// ParseTables builds machine entries from the two spreadsheet tabs. Invalid
// rows and machines without a positive base price are skipped and counted.
func ParseTables(tables sheets.Tables) ([]domain.MachineEntry, int, error) {
	skipped := 0
	drafts := make(map[string]*machineDraft)
	var order []string

	addMachine := func(rawID, template string) *machineDraft {
		id := domain.NormalizeMachineID(rawID)
		if template == "" {
			template = rawID
		}
		if !strings.HasSuffix(strings.ToLower(template), ".docx") {
			template += ".docx"
		}
		d := &machineDraft{
			entry: domain.MachineEntry{
				ID:        id,
				DisplayID: strings.TrimSpace(rawID),
				Template:  template,
			},
			stepByID: make(map[string]*stepDraft),
		}
		drafts[id] = d
		order = append(order, id)
		return d
	}

	for _, row := range tables.Machines {
		rawID := rowValue(row, machineAliases)
		id := domain.NormalizeMachineID(rawID)
		if id == "" {
			skipped++
			continue
		}
		if _, dup := drafts[id]; dup {
			skipped++
			continue
		}
		d := addMachine(rawID, rowValue(row, templateAliases))
		if base, ok := domain.ParseAmountCents(rowValue(row, baseAliases)); ok {
			d.entry.BasePriceCents = base
		}
	}

	// Base rows first so option rows can reference machines introduced by them.
	var optionRows []sheets.Row
	for _, row := range tables.Prices {
		rawID := rowValue(row, machineAliases)
		if domain.NormalizeMachineID(rawID) == "" {
			skipped++
			continue
		}
		if !isBaseRow(row) {
			optionRows = append(optionRows, row)
			continue
		}
		price, ok := domain.ParseAmountCents(rowValue(row, priceAliases))
		if !ok || price <= 0 {
			skipped++
			continue
		}
		d, exists := drafts[domain.NormalizeMachineID(rawID)]
		if !exists {
			d = addMachine(rawID, rowValue(row, templateAliases))
		}
		d.entry.BasePriceCents = price
	}

	for _, row := range optionRows {
		d, exists := drafts[domain.NormalizeMachineID(rowValue(row, machineAliases))]
		step := rowValue(row, stepAliases)
		value := rowValue(row, optionAliases)
		if !exists || step == "" || value == "" {
			skipped++
			continue
		}
		price, ok := domain.ParseAmountCents(rowValue(row, priceAliases))
		if !ok {
			price = 0
		}
		if price < 0 {
			skipped++
			continue
		}

		key := domain.NormalizeKey(step)
		sd, found := d.stepByID[key]
		if !found {
			sd = &stepDraft{name: step, seen: make(map[string]struct{})}
			d.stepByID[key] = sd
			d.steps = append(d.steps, sd)
		}
		if _, isCheckbox := checkboxTypes[domain.NormalizeKey(rowValue(row, typeAliases))]; isCheckbox {
			sd.checkbox = true
		}
		valueKey := domain.NormalizeKey(value)
		if _, dup := sd.seen[valueKey]; dup {
			skipped++
			continue
		}
		sd.seen[valueKey] = struct{}{}
		sd.options = append(sd.options, domain.Option{Value: value, PriceDeltaCents: price})
	}

	entries := make([]domain.MachineEntry, 0, len(order))
	for _, id := range order {
		d := drafts[id]
		if d.entry.BasePriceCents <= 0 {
			skipped++
			continue
		}
		for _, sd := range d.steps {
			d.entry.Steps = append(d.entry.Steps, sd.build())
		}
		entries = append(entries, d.entry)
	}
	if len(entries) == 0 {
		return nil, skipped, ErrNoValidMachines
	}
	return entries, skipped, nil
}

func (sd *stepDraft) build() domain.Step {
	if sd.checkbox {
		var max int64
		for _, opt := range sd.options {
			if opt.PriceDeltaCents > max {
				max = opt.PriceDeltaCents
			}
		}
		return domain.NewCheckboxStep(sd.name, max)
	}
	return domain.Step{Name: sd.name, Kind: domain.StepSelect, Options: sd.options}
}

// isBaseRow reports whether a prices row sets the machine's base price: a
// named base step, or a row with neither step nor option.
func isBaseRow(row sheets.Row) bool {
	if rowValue(row, stepAliases) == "" && rowValue(row, optionAliases) == "" {
		return true
	}
	return isBaseStep(rowValue(row, stepAliases))
}

func isBaseStep(step string) bool {
	key := domain.NormalizeKey(step)
	if key == "" {
		return false
	}
	_, ok := baseStepNames[key]
	return ok
}
