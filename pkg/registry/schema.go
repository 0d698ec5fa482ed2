// pkg/registry/schema.go
package registry

type EndpointRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Endpoints   []Endpoint `json:"endpoints"`
}

type Endpoint struct {
	Name               string   `json:"name"`
	Resource           string   `json:"resource"`
	Verb               string   `json:"verb"`
	Description        string   `json:"description"`
	RequiresAuth       bool     `json:"requiresAuth"`
	RequiredBodyFields []string `json:"requiredBodyFields"`
	ExpectedFailures   []string `json:"expectedFailures"`
	SuccessStatus      int      `json:"successStatus"`
	Tags               []string `json:"tags"`
}
