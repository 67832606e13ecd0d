package specialist

import (
	"embed"
	"fmt"
	"sort"
	"strings"
)

//go:embed personas/*.md
var personaFS embed.FS

// DefaultKey is the specialist substituted whenever routing cannot produce a
// valid selection.
const DefaultKey = "technical"

// Profile is the immutable configuration of one specialist: its persona
// instructions and declared capabilities. Profiles are built once at startup
// and shared read-only across requests.
type Profile struct {
	Key             string
	DisplayName     string
	Persona         string
	Specializations []string
	BestFor         []string
}

type capability struct {
	specializations []string
	bestFor         []string
}

// capabilities holds the declared capability tags per specialist key. The
// persona instructions live in personas/<key>.md.
var capabilities = map[string]capability{
	"product_manager": {
		specializations: []string{
			"Product Strategy",
			"Prioritization Frameworks (RICE, ICE, Kano)",
			"Metrics (AARRR, HEART)",
			"User Research",
			"Roadmap Planning",
			"Stakeholder Management",
		},
		bestFor: []string{
			"Product strategy questions",
			"Feature prioritization",
			"Metrics and KPI definition",
			"Product case studies",
		},
	},
	"technical": {
		specializations: []string{
			"Algorithms and Data Structures",
			"Complexity Analysis (Big O)",
			"Design Patterns",
			"Software Engineering Principles",
		},
		bestFor: []string{
			"Algorithm explanations",
			"Data structure questions",
			"Complexity analysis",
			"Software engineering concepts",
		},
	},
	"architect": {
		specializations: []string{
			"System Architecture Design",
			"Microservices Architecture",
			"Scalability and Performance",
			"Database Design",
			"Cloud Architecture",
		},
		bestFor: []string{
			"Architecture design questions",
			"Scalability of components",
			"Infrastructure decisions",
		},
	},
	"coding": {
		specializations: []string{
			"Clean Code Principles",
			"Multiple Programming Languages",
			"Test-Driven Development",
			"Code Review",
			"Error Handling",
		},
		bestFor: []string{
			"Code implementation",
			"Algorithm coding",
			"Code review scenarios",
		},
	},
	"behavioral": {
		specializations: []string{
			"STAR Method",
			"Leadership and Management",
			"Conflict Resolution",
			"Communication Skills",
			"Team Building",
		},
		bestFor: []string{
			"Behavioral interview questions",
			"Leadership scenarios",
			"Conflict resolution stories",
		},
	},
	"system_design": {
		specializations: []string{
			"Distributed Systems Design",
			"Scalability Patterns",
			"CAP Theorem Trade-offs",
			"Capacity Estimation",
			"Caching Strategies",
		},
		bestFor: []string{
			"Full system design questions",
			"Distributed systems trade-offs",
			"Capacity estimation",
		},
	},
}

// Registry is the process-wide, read-only specialist catalog. Built once at
// startup; never mutated per request.
type Registry struct {
	order    []string
	profiles map[string]*Profile
}

// NewRegistry builds the registry from the embedded persona files and the
// declared capability tags. It fails when a persona file is missing or empty
// so a broken build surfaces at startup rather than on the first request.
func NewRegistry() (*Registry, error) {
	keys := make([]string, 0, len(capabilities))
	for key := range capabilities {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	profiles := make(map[string]*Profile, len(keys))
	for _, key := range keys {
		persona, err := personaFS.ReadFile("personas/" + key + ".md")
		if err != nil {
			return nil, fmt.Errorf("loading persona for %s: %w", key, err)
		}

		text := strings.TrimSpace(string(persona))
		if text == "" {
			return nil, fmt.Errorf("persona for %s is empty", key)
		}

		caps := capabilities[key]
		profiles[key] = &Profile{
			Key:             key,
			DisplayName:     displayName(key),
			Persona:         text,
			Specializations: caps.specializations,
			BestFor:         caps.bestFor,
		}
	}

	if _, ok := profiles[DefaultKey]; !ok {
		return nil, fmt.Errorf("default specialist %q is not registered", DefaultKey)
	}

	return &Registry{order: keys, profiles: profiles}, nil
}

// Get returns the profile for the given key.
func (r *Registry) Get(key string) (*Profile, bool) {
	p, ok := r.profiles[key]
	return p, ok
}

// Default returns the fallback specialist profile.
func (r *Registry) Default() *Profile {
	return r.profiles[DefaultKey]
}

// Keys returns the registered specialist keys in stable order.
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Profiles returns all registered profiles in stable key order.
func (r *Registry) Profiles() []*Profile {
	profiles := make([]*Profile, 0, len(r.order))
	for _, key := range r.order {
		profiles = append(profiles, r.profiles[key])
	}
	return profiles
}

// Len returns the number of registered specialists.
func (r *Registry) Len() int {
	return len(r.order)
}

// displayName derives a human-readable name from a specialist key,
// e.g. "product_manager" becomes "Product Manager".
func displayName(key string) string {
	words := strings.Split(key, "_")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
