package service

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// GuideService renders downloadable consumer safety material.
type GuideService struct{}

// NewGuideService constructs the service.
func NewGuideService() *GuideService {
	return &GuideService{}
}

var safetySections = []struct {
	heading string
	body    string
}{
	{
		"Buying Medicine Safely",
		"Only buy medicine from licensed pharmacies. Avoid street vendors and unverified online sellers, where counterfeit products are most common.",
	},
	{
		"Check the Packaging",
		"Inspect seals, spelling and print quality. Counterfeit packaging often has blurry printing, broken seals or misspelled product names.",
	},
	{
		"Verify Before Use",
		"Use the registration number printed on the pack to verify the product before taking it. If the batch number does not match the records, do not use the product.",
	},
	{
		"Report Suspicious Products",
		"If a product looks tampered with, causes unexpected effects or fails verification, file a report. Your report helps investigators take flagged products off the market.",
	},
	{
		"Storage and Expiry",
		"Never use medicine past its expiry date. Store products as directed on the label; heat and moisture can degrade active ingredients.",
	},
}

// SafetyGuidelines renders the drug safety guidelines PDF.
func (s *GuideService) SafetyGuidelines() ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Drug Safety Guidelines", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "I", 10)
	pdf.CellFormat(0, 8, "How to protect yourself from counterfeit medicine", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	for i, section := range safetySections {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 9, fmt.Sprintf("%d. %s", i+1, section.heading), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, section.body, "", "L", false)
		pdf.Ln(3)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render safety guidelines pdf: %w", err)
	}
	return buf.Bytes(), nil
}
