// Package report renders evaluation results to a downloadable PDF.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/sharad1666/GD-AI-App/evaluation"
)

// Generate renders the performance report for one participant. Output is
// deterministic for identical inputs apart from the embedded creation
// timestamp in the PDF metadata.
func Generate(userID string, rep evaluation.Report) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "GD PERFORMANCE REPORT")
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, "Participant: "+userID)
	pdf.Ln(12)

	for _, line := range []string{
		fmt.Sprintf("Participation: %g", rep.Participation),
		fmt.Sprintf("Confidence: %g", rep.Confidence),
		fmt.Sprintf("Fluency: %g", rep.Fluency),
		fmt.Sprintf("Vocabulary: %g", rep.Vocabulary),
	} {
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 9, fmt.Sprintf("FINAL SCORE: %.2f", rep.FinalScore))
	pdf.Ln(13)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, "AI Feedback:")
	pdf.Ln(8)
	for _, line := range []string{
		"- Good clarity of thoughts",
		"- Improve participation frequency",
		"- Reduce filler words",
	} {
		pdf.Cell(0, 8, line)
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
