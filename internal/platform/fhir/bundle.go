package fhir

import "github.com/ehr/fhirportal/internal/platform/document"

// Bundle types used by the portal.
const (
	BundleTypeSearchset           = "searchset"
	BundleTypeBatchResponse       = "batch-response"
	BundleTypeTransactionResponse = "transaction-response"
)

// NewSearchBundle wraps resources in a searchset Bundle with total set to
// the number of entries.
func NewSearchBundle(resources []document.Document) document.Document {
	entries := make([]interface{}, 0, len(resources))
	for _, r := range resources {
		entries = append(entries, document.Document{"resource": r})
	}
	return document.Document{
		"resourceType": "Bundle",
		"type":         BundleTypeSearchset,
		"total":        len(entries),
		"entry":        entries,
	}
}

// ResponseEntry is one batch/transaction response entry.
func ResponseEntry(status, location string) document.Document {
	return document.Document{
		"response": document.Document{
			"status":   status,
			"location": location,
		},
	}
}

// ResponseBundle builds a batch or transaction response Bundle. The caller
// may override type and entry; an empty entry list falls back to
// defaultEntries.
func ResponseBundle(payload document.Document, bundleType string, defaultEntries ...document.Document) document.Document {
	def := make([]interface{}, len(defaultEntries))
	for i, e := range defaultEntries {
		def[i] = e
	}
	return document.Document{
		"resourceType": "Bundle",
		"type":         payload.Value("type", bundleType),
		"entry":        document.EnsureList(payload["entry"], def),
	}
}

// EntryResources returns the resource of every bundle entry that is a
// mapping.
func EntryResources(bundle document.Document) []document.Document {
	var out []document.Document
	for _, e := range bundle.List("entry") {
		entry, ok := document.AsMap(e)
		if !ok {
			continue
		}
		if res, ok := document.AsMap(entry["resource"]); ok {
			out = append(out, res)
		}
	}
	return out
}
