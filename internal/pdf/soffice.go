package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cotizador_backend/internal/document"
)

var sofficeCandidates = []string{"soffice", "libreoffice"}

// SofficeExporter converts with a local headless LibreOffice. Every call
// gets its own temporary directory and user profile so conversions can run
// in parallel.
type SofficeExporter struct {
	binary string
}

// NewSofficeExporter uses binary when set, otherwise searches PATH.
func NewSofficeExporter(binary string) *SofficeExporter {
	return &SofficeExporter{binary: strings.TrimSpace(binary)}
}

// Name implements Exporter.
func (s *SofficeExporter) Name() string { return EngineSoffice }

func (s *SofficeExporter) lookup() (string, error) {
	if s.binary != "" {
		return exec.LookPath(s.binary)
	}
	var lastErr error
	for _, name := range sofficeCandidates {
		path, err := exec.LookPath(name)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Export writes the DOCX to a private temp dir, runs the conversion and
// reads the PDF back. The process is killed when ctx ends.
func (s *SofficeExporter) Export(ctx context.Context, doc document.FilledDocument) ([]byte, error) {
	bin, err := s.lookup()
	if err != nil {
		return nil, unavailable(EngineSoffice, "soffice/libreoffice not found", err)
	}

	dir, err := os.MkdirTemp("", "cotizacion-*")
	if err != nil {
		return nil, failed(EngineSoffice, "create temp dir", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "cotizacion.docx")
	if err := os.WriteFile(input, doc.Content, 0o600); err != nil {
		return nil, failed(EngineSoffice, "write docx", err)
	}

	profile := "file://" + filepath.ToSlash(filepath.Join(dir, "profile"))
	cmd := exec.CommandContext(ctx, bin,
		"--headless", "--norestore", "--nologo", "--nodefault",
		"-env:UserInstallation="+profile,
		"--convert-to", "pdf",
		"--outdir", dir,
		input,
	)
	cmd.WaitDelay = 5 * time.Second
	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, failed(EngineSoffice, "conversion interrupted", ctxErr)
	}
	if err != nil {
		return nil, failed(EngineSoffice,
			fmt.Sprintf("soffice exited: %s", strings.TrimSpace(string(output))), err)
	}

	pdf, err := os.ReadFile(filepath.Join(dir, "cotizacion.pdf"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, failed(EngineSoffice,
			fmt.Sprintf("soffice produced no pdf: %s", strings.TrimSpace(string(output))), err)
	}
	if err != nil {
		return nil, failed(EngineSoffice, "read pdf", err)
	}
	return pdf, nil
}
