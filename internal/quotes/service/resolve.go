package service

import (
	"fmt"

	"cotizador_backend/internal/catalog/domain"
	"cotizador_backend/internal/document"
	"cotizador_backend/platform/apperr"
)

const maxListedMachines = 10

// Resolve prices req against snap. The catalog is authoritative: declared
// prices that differ by more than toleranceCents only produce warnings.
func Resolve(req CanonicalQuoteRequest, snap *domain.Snapshot, toleranceCents int64) (PricedQuote, error) {
	if snap == nil || snap.Len() == 0 {
		return PricedQuote{}, apperr.Unavailable("catalog not loaded").
			WithCode(apperr.CodeCatalogEmpty).WithOp("quotes.Resolve")
	}

	machine, ok := snap.Machine(req.MachineID)
	if !ok {
		available := snap.MachineIDs()
		if len(available) > maxListedMachines {
			available = available[:maxListedMachines]
		}
		return PricedQuote{}, apperr.Validation(fmt.Sprintf("unknown machine %s", req.MachineID)).
			WithCode(apperr.CodeUnknownMachine).
			WithOp("quotes.Resolve").
			WithDetails(map[string]any{"machine": req.MachineID, "available": available})
	}

	pq := PricedQuote{
		Request:   req,
		Machine:   machine,
		BaseCents: machine.BasePriceCents,
		Lines:     make([]PricedLine, 0, len(req.Selections)),
	}
	currency := req.Currency

	if req.BasePriceCents != nil && outside(*req.BasePriceCents, machine.BasePriceCents, toleranceCents) {
		pq.Warnings = append(pq.Warnings, fmt.Sprintf("base price declared %s, catalog %s",
			document.FormatMoney(*req.BasePriceCents, currency), document.FormatMoney(machine.BasePriceCents, currency)))
	}

	chosen := make(map[string]string, len(req.Selections))
	total := machine.BasePriceCents
	for _, sel := range req.Selections {
		step, ok := machine.FindStep(sel.Step)
		if !ok {
			// Declining an option the machine does not offer costs nothing.
			if yes, isBool := domain.ParseYesNo(sel.Value); isBool && !yes {
				pq.Warnings = append(pq.Warnings, fmt.Sprintf("%s is not offered for %s; ignored", sel.Step, machine.ID))
				continue
			}
			return PricedQuote{}, unknownOption(sel, nil)
		}

		key := domain.NormalizeKey(step.Name)
		if prev, dup := chosen[key]; dup {
			return PricedQuote{}, apperr.Validation(fmt.Sprintf("step %s selected more than once", step.Name)).
				WithOp("quotes.Resolve").
				WithDetails(map[string]string{"step": step.Name, "first": prev, "second": sel.Value})
		}

		opt, ok := step.FindOption(sel.Value)
		if !ok {
			allowed := make([]string, 0, len(step.Options))
			for _, o := range step.Options {
				allowed = append(allowed, o.Value)
			}
			return PricedQuote{}, unknownOption(sel, allowed)
		}
		chosen[key] = sel.Value

		if sel.PriceCents != nil && outside(*sel.PriceCents, opt.PriceDeltaCents, toleranceCents) {
			pq.Warnings = append(pq.Warnings, fmt.Sprintf("%s=%s declared %s, catalog %s", step.Name, opt.Value,
				document.FormatMoney(*sel.PriceCents, currency), document.FormatMoney(opt.PriceDeltaCents, currency)))
		}

		pq.Lines = append(pq.Lines, PricedLine{Step: step.Name, Value: opt.Value, DeltaCents: opt.PriceDeltaCents})
		total += opt.PriceDeltaCents
	}
	pq.TotalCents = total

	if req.TotalPriceCents != nil && outside(*req.TotalPriceCents, total, toleranceCents) {
		pq.Warnings = append(pq.Warnings, fmt.Sprintf("total declared %s, catalog %s",
			document.FormatMoney(*req.TotalPriceCents, currency), document.FormatMoney(total, currency)))
	}
	return pq, nil
}

func outside(declared, actual, tolerance int64) bool {
	diff := declared - actual
	if diff < 0 {
		diff = -diff
	}
	return diff > tolerance
}

func unknownOption(sel Selection, allowed []string) *apperr.Error {
	details := map[string]any{"step": sel.Step, "value": sel.Value}
	if allowed != nil {
		details["allowed"] = allowed
	}
	return apperr.Validation(fmt.Sprintf("unknown option %q for step %q", sel.Value, sel.Step)).
		WithCode(apperr.CodeUnknownOption).
		WithOp("quotes.Resolve").
		WithDetails(details)
}
