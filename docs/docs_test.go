package docs

import (
	"encoding/json"
	"testing"

	"github.com/swaggo/swag"
)

func TestRegisteredDocumentIsValidJSON(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		t.Fatalf("ReadDoc: %v", err)
	}

	var doc struct {
		Swagger  string                    `json:"swagger"`
		BasePath string                    `json:"basePath"`
		Info     struct{ Title string }    `json:"info"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("document is not valid JSON: %v", err)
	}
	if doc.Swagger != "2.0" || doc.BasePath != "/api/v1" || doc.Info.Title != "Call Insight API" {
		t.Errorf("header = %q %q %q", doc.Swagger, doc.BasePath, doc.Info.Title)
	}

	for _, path := range []string{
		"/auth/register",
		"/recordings",
		"/recordings/{id}/transcribe",
		"/templates/{id}/default",
		"/invitations/accept",
		"/analytics/team",
	} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("path %s missing", path)
		}
	}
}
