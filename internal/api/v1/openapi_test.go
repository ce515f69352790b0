package apiv1

import (
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

// The document under public/docs/ is what the swagger middleware serves.
// Keep it loadable and in sync with the routes this package mounts.
func TestOpenAPIDocument(t *testing.T) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromFile(filepath.Join("..", "..", "..", "public", "docs", "v1", "openapi.yml"))
	if err != nil {
		t.Fatalf("load openapi document: %v", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		t.Fatalf("openapi document is invalid: %v", err)
	}

	if doc.Info == nil || doc.Info.Title != "PayFox API" {
		t.Fatalf("unexpected document title: %+v", doc.Info)
	}

	// Paths are relative to the /api/v1 server entry.
	wantPaths := []string{
		"/ping",
		"/plans",
		"/estimate",
		"/checkout",
		"/checkout/{orderRef}/status",
		"/invites/validate",
		"/webhooks/nowpayments",
		"/admin/subscriptions/{id}",
		"/admin/subscriptions/{id}/license/retry",
		"/admin/invites",
		"/admin/invites/{code}",
		"/admin/webhooks/stats",
	}
	for _, path := range wantPaths {
		if doc.Paths.Find(path) == nil {
			t.Errorf("path %s is missing from the openapi document", path)
		}
	}
	if got := doc.Paths.Len(); got != len(wantPaths) {
		t.Errorf("document declares %d paths, routes mount %d", got, len(wantPaths))
	}
}
