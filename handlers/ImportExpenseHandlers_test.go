package handlers

import (
	"strings"
	"testing"
)

func TestNormalizeImportHeader(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"vendor", "vendor"},
		{"Vendor", "vendor"},
		{" VENDOR ", "vendor"},
		{"Merchant", "vendor"},
		{"Supplier", "vendor"},
		{"Amount", "amount"},
		{"Total", "amount"},
		{"Expense Date", "date"},
		{"Description", "notes"},
		{"Currency", "currency"},
		{"unrelated", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := normalizeImportHeader(tc.raw); got != tc.want {
			t.Errorf("normalizeImportHeader(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseImportRows_TSV(t *testing.T) {
	data := "Vendor\tAmount\tCurrency\tDate\tCategory\tNotes\n" +
		"Office Depot\t120.50\tusd\t2024-03-10\ttravel\tprinter paper\n" +
		"Uber\t23.80\t\t2024-03-11\t\t\n"

	rows, err := parseImportRows("expenses.tsv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Vendor != "Office Depot" {
		t.Errorf("vendor = %q", first.Vendor)
	}
	if first.Amount != 120.50 {
		t.Errorf("amount = %v", first.Amount)
	}
	if first.Currency != "USD" {
		t.Errorf("currency should be uppercased, got %q", first.Currency)
	}
	if first.Category != "Travel" {
		t.Errorf("category should be title cased, got %q", first.Category)
	}
	if first.Error != "" {
		t.Errorf("unexpected row error: %q", first.Error)
	}

	if rows[1].Currency != "USD" {
		t.Errorf("missing currency should default to USD, got %q", rows[1].Currency)
	}
}

func TestParseImportRows_XLSRejected(t *testing.T) {
	_, err := parseImportRows("expenses.xls", strings.NewReader("whatever"))
	if err == nil {
		t.Fatal("expected legacy xls to be rejected")
	}
	if !strings.Contains(err.Error(), ".xlsx") {
		t.Errorf("error should tell the user to re-save as xlsx, got %q", err.Error())
	}
}

func TestParseImportRows_UnsupportedFormat(t *testing.T) {
	tsv := "Vendor\tAmount\nAcme\t10\n"
	for _, name := range []string{"expenses.csv", "expenses.txt", "expenses.pdf", "expenses"} {
		if _, err := parseImportRows(name, strings.NewReader(tsv)); err == nil {
			t.Errorf("%s: expected unsupported format error", name)
		}
	}
}

func TestRowsToImportRows_HeaderValidation(t *testing.T) {
	if _, err := rowsToImportRows([][]string{{"Amount"}, {"100"}}); err == nil || !strings.Contains(err.Error(), "vendor") {
		t.Errorf("expected missing vendor column error, got %v", err)
	}
	if _, err := rowsToImportRows([][]string{{"Vendor"}, {"Acme"}}); err == nil || !strings.Contains(err.Error(), "amount") {
		t.Errorf("expected missing amount column error, got %v", err)
	}
	if _, err := rowsToImportRows([][]string{{"Vendor", "Amount"}}); err == nil {
		t.Error("expected error for a header-only file")
	}
}

func TestRowsToImportRows_RowErrors(t *testing.T) {
	rows, err := rowsToImportRows([][]string{
		{"Vendor", "Amount", "Date"},
		{"", "100", ""},
		{"Acme", "not-a-number", ""},
		{"Acme", "-5", ""},
		{"Acme", "1,250.00", "2024-13-40"},
		{"Acme", "1,250.00", "2024-03-15"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}

	if rows[0].Error != "vendor is required" {
		t.Errorf("row 1 error = %q", rows[0].Error)
	}
	if !strings.Contains(rows[1].Error, "invalid amount") {
		t.Errorf("row 2 error = %q", rows[1].Error)
	}
	if rows[2].Error != "amount must be positive" {
		t.Errorf("row 3 error = %q", rows[2].Error)
	}
	if !strings.Contains(rows[3].Error, "invalid date") {
		t.Errorf("row 4 error = %q", rows[3].Error)
	}

	last := rows[4]
	if last.Error != "" {
		t.Errorf("row 5 should be clean, got error %q", last.Error)
	}
	if last.Amount != 1250 {
		t.Errorf("comma separators should be stripped, amount = %v", last.Amount)
	}
	if last.RowNumber != 6 {
		t.Errorf("row number should count from the file header, got %d", last.RowNumber)
	}
}

func TestRowsToImportRows_SkipsEmptyRows(t *testing.T) {
	rows, err := rowsToImportRows([][]string{
		{"Vendor", "Amount"},
		{"", ""},
		{"Acme", "10"},
		{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("empty rows should be skipped, got %d rows", len(rows))
	}
}
