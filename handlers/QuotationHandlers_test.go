package handlers

import (
	"errors"
	"testing"
	"time"

	"onquota/models"
)

func validWinRequest() *models.WinQuotationRequest {
	return &models.WinQuotationRequest{
		WonDate:           "2024-02-01",
		SalesControlFolio: "SC/CD67890",
		PONumber:          "PO-2024-0117",
		POReceptionDate:   "2024-02-01",
		LeadTimeDays:      45,
		Lines: []models.WinLine{
			{ProductLineID: 1, LineAmount: 100000},
		},
	}
}

func TestValidateWinRequest_Valid(t *testing.T) {
	if err := ValidateWinRequest(validWinRequest()); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

func TestValidateWinRequest_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.WinQuotationRequest)
		want   error
	}{
		{"missing won date", func(r *models.WinQuotationRequest) { r.WonDate = "" }, errMissingWonDate},
		{"missing folio", func(r *models.WinQuotationRequest) { r.SalesControlFolio = "" }, errMissingFolio},
		{"missing po number", func(r *models.WinQuotationRequest) { r.PONumber = "" }, errMissingPONumber},
		{"missing po reception", func(r *models.WinQuotationRequest) { r.POReceptionDate = "" }, errMissingPOReception},
		{"negative lead time", func(r *models.WinQuotationRequest) { r.LeadTimeDays = -1 }, errNegativeLeadTime},
		{"no lines", func(r *models.WinQuotationRequest) { r.Lines = nil }, errNoLines},
		{"zero line amount", func(r *models.WinQuotationRequest) { r.Lines[0].LineAmount = 0 }, errNonPositiveLine},
		{"negative line amount", func(r *models.WinQuotationRequest) { r.Lines[0].LineAmount = -50 }, errNonPositiveLine},
		{"duplicate product line", func(r *models.WinQuotationRequest) {
			r.Lines = append(r.Lines, models.WinLine{ProductLineID: 1, LineAmount: 200})
		}, errDuplicateProductLine},
	}

	for _, tc := range cases {
		req := validWinRequest()
		tc.mutate(req)
		if err := ValidateWinRequest(req); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestValidateWinRequest_ZeroLeadTimeAllowed(t *testing.T) {
	req := validWinRequest()
	req.LeadTimeDays = 0
	if err := ValidateWinRequest(req); err != nil {
		t.Errorf("zero lead time should be allowed, got %v", err)
	}
}

func TestValidateLoseRequest(t *testing.T) {
	if err := ValidateLoseRequest(&models.LoseQuotationRequest{LostDate: "2024-02-01", LostReason: "price"}); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
	if err := ValidateLoseRequest(&models.LoseQuotationRequest{LostReason: "price"}); !errors.Is(err, errMissingLostDate) {
		t.Errorf("expected missing lost date, got %v", err)
	}
	if err := ValidateLoseRequest(&models.LoseQuotationRequest{LostDate: "2024-02-01"}); !errors.Is(err, errMissingLostReason) {
		t.Errorf("expected missing lost reason, got %v", err)
	}
}

func TestComputePromiseDate(t *testing.T) {
	po := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	got := ComputePromiseDate(po, 45)
	want := time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %s, got %s", want.Format("2006-01-02"), got.Format("2006-01-02"))
	}

	if got := ComputePromiseDate(po, 0); !got.Equal(po) {
		t.Errorf("zero lead time should keep the reception date, got %s", got)
	}

	// Calendar days cross month and year boundaries.
	eoy := time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC)
	if got := ComputePromiseDate(eoy, 15); !got.Equal(time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("year boundary promise date wrong: %s", got.Format("2006-01-02"))
	}
}

func TestLineTotals_Match(t *testing.T) {
	lines := []models.WinLine{
		{ProductLineID: 1, LineAmount: 100},
		{ProductLineID: 2, LineAmount: 200},
	}
	sum, mismatch := LineTotals(lines, 300)
	if mismatch {
		t.Error("expected totals to match")
	}
	if sum != 300 {
		t.Errorf("expected sum 300, got %v", sum)
	}
}

func TestLineTotals_Mismatch(t *testing.T) {
	lines := []models.WinLine{
		{ProductLineID: 1, LineAmount: 100},
		{ProductLineID: 2, LineAmount: 150},
	}
	if _, mismatch := LineTotals(lines, 300); !mismatch {
		t.Error("expected mismatch when lines sum to 250 against total 300")
	}
}

func TestLineTotals_FloatNoise(t *testing.T) {
	// 0.1+0.2 in binary floats does not equal 0.3; decimal rounding must
	// absorb that.
	lines := []models.WinLine{
		{ProductLineID: 1, LineAmount: 0.1},
		{ProductLineID: 2, LineAmount: 0.2},
	}
	if _, mismatch := LineTotals(lines, 0.3); mismatch {
		t.Error("float rounding noise should not be reported as a mismatch")
	}
}
