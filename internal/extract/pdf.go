package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/joseph-ayodele/vacation-distri/internal/common"
	"github.com/joseph-ayodele/vacation-distri/internal/document"
)

// PDFExtractor reads page text and document info with pdfcpu. Pages where
// the content stream yields no text fall back to pdftotext when installed.
type PDFExtractor struct {
	logger    *slog.Logger
	runner    Runner
	pdftotext string
}

// NewPDFExtractor uses runner for the pdftotext fallback; nil means exec.
func NewPDFExtractor(logger *slog.Logger, runner Runner) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &PDFExtractor{logger: logger, runner: runner}
	if runner == nil {
		e.runner = execRunner{}
		if p, err := exec.LookPath("pdftotext"); err == nil {
			e.pdftotext = p
		}
	} else {
		e.pdftotext = "pdftotext"
	}
	return e
}

func (e *PDFExtractor) Extract(ctx context.Context, path, password string) (*document.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrExtraction, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "password") || strings.Contains(msg, "encrypt") {
			return nil, extractionError("PDF is encrypted and requires a password")
		}
		return nil, fmt.Errorf("%w: pdfcpu read: %w", common.ErrExtraction, err)
	}

	content := &document.PDF{Pages: make([]document.Page, 0, pctx.PageCount)}
	for pageNr := 1; pageNr <= pctx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrExtraction, err)
		}
		page := document.Page{PageNumber: pageNr, Tables: []document.Table{}, Errors: []string{}}

		text, err := pageText(pctx, pageNr)
		if err != nil {
			page.Errors = append(page.Errors, err.Error())
			content.Stats.Errors++
		}
		if strings.TrimSpace(text) == "" {
			text = e.fallbackText(ctx, path, password, pageNr)
		}
		page.TextContent = text

		content.Pages = append(content.Pages, page)
		content.Stats.PagesProcessed++
	}

	return &document.Record{
		FilePath: path,
		Metadata: map[string]any{
			"title":       pctx.Title,
			"author":      pctx.Author,
			"subject":     pctx.Subject,
			"creator":     pctx.Creator,
			"pages_count": pctx.PageCount,
		},
		Content: content,
	}, nil
}

func pageText(pctx *model.Context, pageNr int) (string, error) {
	r, err := pdfcpu.ExtractPageContent(pctx, pageNr)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", pageNr, err)
	}
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("page %d: read content: %w", pageNr, err)
	}
	return textFromContentStream(data), nil
}

func (e *PDFExtractor) fallbackText(ctx context.Context, path, password string, pageNr int) string {
	if e.pdftotext == "" {
		return ""
	}
	n := strconv.Itoa(pageNr)
	args := []string{"-layout", "-enc", "UTF-8", "-f", n, "-l", n}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, "-")
	out, _, err := e.runner.Run(ctx, e.pdftotext, args...)
	if err != nil {
		e.logger.Warn("extract.pdf.fallback_failed", "file_path", path, "page", pageNr, "error", err)
		return ""
	}
	return strings.TrimSpace(string(out))
}
