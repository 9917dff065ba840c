package ports

import "github.com/aretw0/lander/pkg/domain"

// ScriptLoader defines how funnel scripts are retrieved.
// This allows the catalog source (embedded, filesystem, memory) to be decoupled.
type ScriptLoader interface {
	// Load returns the script with the given ID or domain.ErrFunnelNotFound.
	Load(id string) (*domain.Script, error)

	// List returns the IDs of every available script, sorted.
	List() ([]string, error)
}
