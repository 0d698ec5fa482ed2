// pkg/registry/registry.go
//
// Package registry loads the published endpoint catalog. The catalog is
// the deployable source of truth for what the API exposes; the server
// cross-checks its routing table against it at startup so the two cannot
// drift apart silently.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const registrySchema = `{
  "type": "object",
  "required": ["version", "endpoints"],
  "properties": {
    "version": {"type": "string"},
    "lastUpdated": {"type": "string"},
    "endpoints": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "resource", "verb"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "resource": {"type": "string", "pattern": "^/"},
          "verb": {"type": "string", "enum": ["GET", "POST", "PUT", "DELETE"]},
          "description": {"type": "string"},
          "requiresAuth": {"type": "boolean"},
          "requiredBodyFields": {"type": "array", "items": {"type": "string"}},
          "expectedFailures": {"type": "array", "items": {"type": "string"}},
          "successStatus": {"type": "integer"},
          "tags": {"type": "array", "items": {"type": "string"}}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// LoadRegistry reads and schema-validates the endpoint catalog.
func LoadRegistry(path string) (*EndpointRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("invalid registry %s: %s", path, strings.Join(details, "; "))
	}

	var reg EndpointRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Lookup returns the catalog entry for a (resource, verb) pair.
func (r *EndpointRegistry) Lookup(resource, verb string) (*Endpoint, bool) {
	for i := range r.Endpoints {
		if r.Endpoints[i].Resource == resource && r.Endpoints[i].Verb == verb {
			return &r.Endpoints[i], true
		}
	}
	return nil, false
}

// RouteRef is one (resource, verb) pair the server registered.
type RouteRef struct {
	Resource string
	Verb     string
}

// Verify checks that every catalog entry has a registered route and every
// registered route a catalog entry, so the published catalog and the
// routing table cannot drift apart.
func (r *EndpointRegistry) Verify(routes []RouteRef) error {
	catalog := make(map[RouteRef]bool, len(r.Endpoints))
	for _, e := range r.Endpoints {
		catalog[RouteRef{Resource: e.Resource, Verb: e.Verb}] = true
	}
	registered := make(map[RouteRef]bool, len(routes))
	for _, route := range routes {
		registered[route] = true
	}

	var problems []string
	for route := range registered {
		if !catalog[route] {
			problems = append(problems, fmt.Sprintf("route %s %s missing from catalog", route.Verb, route.Resource))
		}
	}
	for entry := range catalog {
		if !registered[entry] {
			problems = append(problems, fmt.Sprintf("catalog entry %s %s has no registered route", entry.Verb, entry.Resource))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("endpoint catalog mismatch: %s", strings.Join(problems, "; "))
	}
	return nil
}
