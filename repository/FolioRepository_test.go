package repository

import (
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestGenerateFolio_Format(t *testing.T) {
	pattern := regexp.MustCompile(`^QT/[A-Z]{2}\d{5}$`)
	for i := 0; i < 20; i++ {
		folio := GenerateFolio(FolioPrefixQuotation)
		if !pattern.MatchString(folio) {
			t.Fatalf("folio %q does not match QT/AA99999", folio)
		}
	}
}

func TestGenerateFolio_PrefixUppercased(t *testing.T) {
	folio := GenerateFolio("sc")
	if folio[:3] != "SC/" {
		t.Errorf("lowercase prefix should be uppercased, got %q", folio)
	}
}

func paginationContext(t *testing.T, query string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	cases := []struct {
		query        string
		wantPage     int
		wantPageSize int
	}{
		{"", 1, 20},
		{"page=3&page_size=50", 3, 50},
		{"page=0", 1, 20},
		{"page=-5", 1, 20},
		{"page=abc", 1, 20},
		{"page_size=0", 1, 20},
		{"page_size=-1", 1, 20},
		{"page_size=xyz", 1, 20},
		{"page_size=100", 1, 100},
		{"page_size=500", 1, 100},
	}

	for _, tc := range cases {
		c := paginationContext(t, tc.query)
		page, pageSize := ParsePagination(c)
		if page != tc.wantPage || pageSize != tc.wantPageSize {
			t.Errorf("ParsePagination(%q) = (%d, %d), want (%d, %d)",
				tc.query, page, pageSize, tc.wantPage, tc.wantPageSize)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total, pageSize, want int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 20, 5},
		{101, 20, 6},
		{5, 0, 0},
		{5, -1, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.pageSize); got != tc.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.pageSize, got, tc.want)
		}
	}
}
