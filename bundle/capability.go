package bundle

import "time"

// FHIRVersion is the FHIR release the documents follow.
const FHIRVersion = "4.0.1"

// CapabilityStatement describes what a server over the store supports.
type CapabilityStatement struct {
	ResourceType string       `json:"resourceType"`
	Status       string       `json:"status"`
	Date         string       `json:"date"`
	Kind         string       `json:"kind"`
	FHIRVersion  string       `json:"fhirVersion"`
	Format       []string     `json:"format"`
	Rest         []RestServer `json:"rest"`
}

// RestServer lists the served resource types.
type RestServer struct {
	Mode     string         `json:"mode"`
	Resource []RestResource `json:"resource"`
}

// RestResource lists the interactions supported for one type.
type RestResource struct {
	Type        string        `json:"type"`
	Interaction []Interaction `json:"interaction"`
}

// Interaction is a supported FHIR interaction code.
type Interaction struct {
	Code string `json:"code"`
}

// Capability builds a CapabilityStatement offering read and search-type on
// every given type, in order.
func Capability(types []string, now time.Time) CapabilityStatement {
	resources := make([]RestResource, 0, len(types))
	for _, t := range types {
		resources = append(resources, RestResource{
			Type:        t,
			Interaction: []Interaction{{Code: "read"}, {Code: "search-type"}},
		})
	}
	return CapabilityStatement{
		ResourceType: "CapabilityStatement",
		Status:       "active",
		Date:         now.Format(time.RFC3339),
		Kind:         "instance",
		FHIRVersion:  FHIRVersion,
		Format:       []string{"json"},
		Rest:         []RestServer{{Mode: "server", Resource: resources}},
	}
}
