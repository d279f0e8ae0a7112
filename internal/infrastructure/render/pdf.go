// Package render 提供最终文档的渲染实现
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storyforge-api/internal/domain/entity"
	"storyforge-api/pkg/metrics"
)

var tracer = otel.Tracer("render")

// PDFRenderer 把完整的章节集合排版为 A4 PDF 文件
type PDFRenderer struct {
	outputDir string
}

// NewPDFRenderer 创建 PDF 渲染器
func NewPDFRenderer(outputDir string) *PDFRenderer {
	return &PDFRenderer{outputDir: outputDir}
}

// Render 渲染完整书稿并返回产物路径
// 结构为：扉页 → 目录 → 逐章正文，章节按编号顺序排版
func (r *PDFRenderer) Render(ctx context.Context, projectID, title string, chapters []*entity.Chapter) (string, error) {
	_, span := tracer.Start(ctx, "render.PDF",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Int("chapter.count", len(chapters)),
		))
	defer span.End()

	start := time.Now()

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		span.RecordError(err)
		metrics.RenderDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("ensure output directory: %w", err)
	}

	outPath := filepath.Join(r.outputDir, fmt.Sprintf("%s.pdf", projectID))

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("StoryForge", false)

	r.writeTitlePage(pdf, title, len(chapters))
	r.writeTableOfContents(pdf, chapters)

	for _, ch := range chapters {
		r.writeChapter(pdf, ch)
	}

	if err := pdf.OutputFileAndClose(outPath); err != nil {
		span.RecordError(err)
		metrics.RenderDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", fmt.Errorf("write pdf: %w", err)
	}

	metrics.RenderDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("render.path", outPath))
	return outPath, nil
}

func (r *PDFRenderer) writeTitlePage(pdf *gofpdf.Fpdf, title string, chapterCount int) {
	pdf.AddPage()
	pdf.Ln(80)

	pdf.SetFont("Helvetica", "B", 28)
	pdf.MultiCell(0, 14, title, "", "C", false)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 8, fmt.Sprintf("%d chapters", chapterCount), "", "C", false)
	pdf.Ln(4)
	pdf.MultiCell(0, 8, time.Now().Format("January 2, 2006"), "", "C", false)
}

func (r *PDFRenderer) writeTableOfContents(pdf *gofpdf.Fpdf, chapters []*entity.Chapter) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Contents")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	for _, ch := range chapters {
		pdf.Cell(0, 7, fmt.Sprintf("Chapter %d: %s", ch.Number, ch.Title))
		pdf.Ln(7)
	}
}

func (r *PDFRenderer) writeChapter(pdf *gofpdf.Fpdf, ch *entity.Chapter) {
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 9, fmt.Sprintf("Chapter %d", ch.Number), "", "L", false)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, ch.Title, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	for _, para := range ch.Paragraphs() {
		text := strings.TrimSpace(para)
		if text == "" {
			continue
		}
		pdf.MultiCell(0, 6, text, "", "J", false)
		pdf.Ln(3)
	}
}
