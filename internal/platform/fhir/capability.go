package fhir

import (
	"net/url"
	"sync"

	"github.com/ehr/fhirportal/internal/platform/document"
	"github.com/ehr/fhirportal/internal/platform/isotime"
)

// CapabilityConfig holds top-level server metadata for the CapabilityStatement.
type CapabilityConfig struct {
	Publisher       string
	SoftwareName    string
	SoftwareVersion string
	FHIRVersion     string
	Formats         []string
}

// DefaultCapabilityConfig describes the portal gateway.
func DefaultCapabilityConfig() CapabilityConfig {
	return CapabilityConfig{
		Publisher:       "Healthcare Organization",
		SoftwareName:    "FHIR Patient Portal",
		SoftwareVersion: "1.0.0",
		FHIRVersion:     "4.0.1",
		Formats:         []string{"json", "xml"},
	}
}

type resourceEntry struct {
	resourceType string
	interactions []string
}

// CapabilityBuilder accumulates resource registrations and builds the
// CapabilityStatement served at /metadata.
type CapabilityBuilder struct {
	mu        sync.RWMutex
	config    CapabilityConfig
	order     []string
	resources map[string]*resourceEntry
}

func NewCapabilityBuilder(cfg CapabilityConfig) *CapabilityBuilder {
	def := DefaultCapabilityConfig()
	if cfg.Publisher == "" {
		cfg.Publisher = def.Publisher
	}
	if cfg.SoftwareName == "" {
		cfg.SoftwareName = def.SoftwareName
	}
	if cfg.SoftwareVersion == "" {
		cfg.SoftwareVersion = def.SoftwareVersion
	}
	if cfg.FHIRVersion == "" {
		cfg.FHIRVersion = def.FHIRVersion
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = def.Formats
	}
	return &CapabilityBuilder{
		config:    cfg,
		resources: make(map[string]*resourceEntry),
	}
}

// AddResource registers a resource type. Interactions for an already
// registered type are appended, skipping duplicates.
func (b *CapabilityBuilder) AddResource(resourceType string, interactions ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.resources[resourceType]
	if !ok {
		entry = &resourceEntry{resourceType: resourceType}
		b.resources[resourceType] = entry
		b.order = append(b.order, resourceType)
	}
	for _, code := range interactions {
		if !contains(entry.interactions, code) {
			entry.interactions = append(entry.interactions, code)
		}
	}
}

// ResourceCount returns the number of registered resource types.
func (b *CapabilityBuilder) ResourceCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.resources)
}

// Build renders the CapabilityStatement. Scalar fields may be overridden by
// query parameters (status, date, publisher, kind, softwareName,
// softwareVersion, fhirVersion) and format by repeated format params.
func (b *CapabilityBuilder) Build(query url.Values) document.Document {
	b.mu.RLock()
	defer b.mu.RUnlock()

	q := func(key, def string) string {
		if _, ok := query[key]; ok {
			return query.Get(key)
		}
		return def
	}

	formats := make([]interface{}, 0, len(b.config.Formats))
	for _, f := range b.config.Formats {
		formats = append(formats, f)
	}

	resources := make([]interface{}, 0, len(b.order))
	for _, rt := range b.order {
		entry := b.resources[rt]
		interactions := make([]interface{}, 0, len(entry.interactions))
		for _, code := range entry.interactions {
			interactions = append(interactions, document.Document{"code": code})
		}
		resources = append(resources, document.Document{
			"type":        rt,
			"interaction": interactions,
		})
	}

	return document.Document{
		"resourceType": "CapabilityStatement",
		"status":       q("status", "active"),
		"date":         q("date", isotime.Today()),
		"publisher":    q("publisher", b.config.Publisher),
		"kind":         q("kind", "instance"),
		"software": document.Document{
			"name":    q("softwareName", b.config.SoftwareName),
			"version": q("softwareVersion", b.config.SoftwareVersion),
		},
		"fhirVersion": q("fhirVersion", b.config.FHIRVersion),
		"format":      document.EnsureList(document.Strings(query["format"]...), formats),
		"rest": []interface{}{
			document.Document{
				"mode":     "server",
				"resource": resources,
			},
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
