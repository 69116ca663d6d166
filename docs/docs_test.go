package docs

import (
	"encoding/json"
	"testing"
)

func TestSwaggerDocHasPaths(t *testing.T) {
	var doc struct {
		Swagger     string                            `json:"swagger"`
		Paths       map[string]map[string]interface{} `json:"paths"`
		Definitions map[string]interface{}            `json:"definitions"`
	}
	if err := json.Unmarshal([]byte(SwaggerInfo.ReadDoc()), &doc); err != nil {
		t.Fatalf("rendered doc is not valid JSON: %v", err)
	}
	if doc.Swagger != "2.0" {
		t.Errorf("swagger version = %q, want 2.0", doc.Swagger)
	}
	if len(doc.Paths) == 0 {
		t.Fatal("doc has no paths")
	}
	for _, route := range []string{
		"/api/login",
		"/api/sales/quotations/{id}/win",
		"/api/ocr/jobs/{id}/cancel",
		"/api/expense-import",
	} {
		if _, ok := doc.Paths[route]; !ok {
			t.Errorf("doc is missing %s", route)
		}
	}
	if _, ok := doc.Definitions["models.WinQuotationRequest"]; !ok {
		t.Error("doc is missing the win request definition")
	}
}
