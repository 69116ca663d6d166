package handlers

import "testing"

func TestValidateReceiptUpload(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		size     int64
		wantErr  bool
	}{
		{"jpg accepted", "receipt.jpg", 1024, false},
		{"jpeg accepted", "receipt.jpeg", 1024, false},
		{"png accepted", "receipt.png", 1024, false},
		{"pdf accepted", "receipt.pdf", 1024, false},
		{"uppercase extension accepted", "RECEIPT.PNG", 1024, false},
		{"exactly at limit", "receipt.pdf", maxReceiptFileSize, false},
		{"over limit", "receipt.pdf", maxReceiptFileSize + 1, true},
		{"empty file", "receipt.jpg", 0, true},
		{"negative size", "receipt.jpg", -1, true},
		{"executable rejected", "receipt.exe", 1024, true},
		{"no extension", "receipt", 1024, true},
		{"gif rejected", "receipt.gif", 1024, true},
	}

	for _, tc := range cases {
		err := ValidateReceiptUpload(tc.filename, tc.size)
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}
