package intake

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"
)

// maxFieldDepth stops Kids recursion on malformed field trees.
const maxFieldDepth = 8

// readPDF returns the page text of a PDF followed by one "Name: Value" line
// per filled AcroForm field. Either half may be empty.
func readPDF(path string, logger *zap.Logger) (string, error) {
	text, textErr := pdfText(path)
	if textErr != nil {
		logger.Debug("pdf text extraction failed", zap.Error(textErr))
	}
	fields, formErr := formLines(path)
	if formErr != nil {
		logger.Debug("pdf form extraction failed", zap.Error(formErr))
	}
	if textErr != nil && formErr != nil {
		return "", fmt.Errorf("read pdf %s: %w", path, textErr)
	}
	logger.Debug("pdf read", zap.Int("text_bytes", len(text)), zap.Int("form_fields", len(fields)))

	var b strings.Builder
	b.WriteString(text)
	if len(fields) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(fields, "\n"))
	}
	return b.String(), nil
}

func pdfText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	var pagesText []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			pagesText = append(pagesText, text)
		}
	}
	return strings.Join(pagesText, "\n"), nil
}

func formLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return nil, fmt.Errorf("read context: %w", err)
	}
	root, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	acroObj, found := root.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acro, err := ctx.DereferenceDict(acroObj)
	if err != nil || acro == nil {
		return nil, err
	}
	fieldsObj, found := acro.Find("Fields")
	if !found {
		return nil, nil
	}
	fields, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}

	var lines []string
	for _, obj := range fields {
		lines = appendField(ctx, obj, "", 0, lines)
	}
	return lines, nil
}

// appendField walks one field and its Kids. Lines carry the nearest partial
// name rather than the qualified one, since the extractor matches labels;
// a kid without a name of its own takes its parent's.
func appendField(ctx *model.Context, obj types.Object, parent string, depth int, lines []string) []string {
	if depth > maxFieldDepth {
		return lines
	}
	dict, err := ctx.DereferenceDict(obj)
	if err != nil || dict == nil {
		return lines
	}

	name := parent
	if nameObj, ok := dict.Find("T"); ok {
		if partial, err := ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil && partial != "" {
			name = partial
		}
	}

	if valueObj, ok := dict.Find("V"); ok && name != "" {
		if value := fieldValue(ctx, valueObj); value != "" {
			lines = append(lines, name+": "+value)
		}
	}

	if kidsObj, ok := dict.Find("Kids"); ok {
		kids, err := ctx.DereferenceArray(kidsObj)
		if err == nil {
			for _, kid := range kids {
				lines = appendField(ctx, kid, name, depth+1, lines)
			}
		}
	}
	return lines
}

// fieldValue reads text values and the export names of checkboxes, radios
// and choice fields. Unchecked boxes ("Off") read as empty.
func fieldValue(ctx *model.Context, obj types.Object) string {
	if s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil); err == nil {
		return strings.TrimSpace(s)
	}
	if n, err := ctx.DereferenceName(obj, model.V10, nil); err == nil {
		if v := string(n); v != "Off" {
			return v
		}
	}
	return ""
}
