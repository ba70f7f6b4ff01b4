package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

var (
	paragraphPattern   = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>.*?</w:p>`)
	textRunPattern     = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)
	placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)
	headerFooterPart   = regexp.MustCompile(`^word/(?:header|footer)\d*\.xml$`)
)

const (
	preservedTextOpen = `<w:t xml:space="preserve">`
	lineBreak         = `</w:t><w:br/>` + preservedTextOpen
)

// placeholderKey is the lookup key for a placeholder name: trimmed, lower
// case, inner whitespace collapsed.
func placeholderKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// fillResult reports what a fill pass saw.
type fillResult struct {
	content []byte
	// found holds every placeholder key present in the template.
	found map[string]struct{}
	// missing holds placeholders that had no value and were left as written.
	missing []string
}

// fillDOCX replaces {{placeholders}} in the document body, headers and
// footers of a DOCX archive. Other parts are copied unchanged.
func fillDOCX(src []byte, values map[string]string) (fillResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return fillResult{}, fmt.Errorf("open docx: %w", err)
	}

	res := fillResult{found: make(map[string]struct{})}
	missingSeen := make(map[string]struct{})
	sawBody := false

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if f.Name != "word/document.xml" && !headerFooterPart.MatchString(f.Name) {
			if err := zw.Copy(f); err != nil {
				return fillResult{}, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if f.Name == "word/document.xml" {
			sawBody = true
		}

		part, err := readZipFile(f)
		if err != nil {
			return fillResult{}, err
		}
		filled := fillPart(part, values, res.found, func(key string) {
			if _, ok := missingSeen[key]; !ok {
				missingSeen[key] = struct{}{}
				res.missing = append(res.missing, key)
			}
		})

		hdr := f.FileHeader
		w, err := zw.CreateHeader(&hdr)
		if err != nil {
			return fillResult{}, fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := w.Write(filled); err != nil {
			return fillResult{}, fmt.Errorf("write %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fillResult{}, fmt.Errorf("close docx: %w", err)
	}
	if !sawBody {
		return fillResult{}, fmt.Errorf("docx has no word/document.xml")
	}
	res.content = out.Bytes()
	return res, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// fillPart rewrites one WordprocessingML part. Text is merged per paragraph
// so a placeholder split over several runs still matches; the merged text
// goes into the paragraph's first run and the other runs are emptied.
func fillPart(part []byte, values map[string]string, found map[string]struct{}, onMissing func(string)) []byte {
	return paragraphPattern.ReplaceAllFunc(part, func(para []byte) []byte {
		runs := textRunPattern.FindAllSubmatchIndex(para, -1)
		if len(runs) == 0 {
			return para
		}

		var text strings.Builder
		for _, m := range runs {
			text.WriteString(html.UnescapeString(string(para[m[2]:m[3]])))
		}
		merged := text.String()
		if !strings.Contains(merged, "{{") {
			return para
		}

		replaced := false
		result := placeholderPattern.ReplaceAllStringFunc(merged, func(token string) string {
			key := placeholderKey(placeholderPattern.FindStringSubmatch(token)[1])
			found[key] = struct{}{}
			v, ok := values[key]
			if !ok {
				onMissing(key)
				return token
			}
			replaced = true
			return v
		})
		if !replaced {
			return para
		}

		var b bytes.Buffer
		last := 0
		for i, m := range runs {
			b.Write(para[last:m[0]])
			if i == 0 {
				b.WriteString(preservedTextOpen)
				b.WriteString(escapeMultiline(result))
				b.WriteString("</w:t>")
			} else {
				b.WriteString("<w:t></w:t>")
			}
			last = m[1]
		}
		b.Write(para[last:])
		return b.Bytes()
	})
}

func escapeMultiline(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		var buf bytes.Buffer
		_ = xml.EscapeText(&buf, []byte(line))
		lines[i] = buf.String()
	}
	return strings.Join(lines, lineBreak)
}
