// Package adapters defines the thin C6 seams the coordinator calls into
// for concerns explicitly out of scope for this build: dataset catalogs,
// participant directories, messaging, and dependency inventories. Each
// interface here is deliberately minimal — just enough surface for C3/C4
// to drive selection, invitation, and sharing — and ships with an
// in-memory implementation so the rest of the system is exercisable
// without a real backing subsystem (spec's Non-goals: "full dataset
// manager," "full contact/participant directory," "full chat system").
package adapters

import (
	"context"
	"sync"

	"github.com/openmined/biovault-desktop/internal/flowrun"
)

// DatasetAdapter resolves a named dataset + data type into a concrete
// asset list the flow-run supervisor can turn into a samplesheet or a
// shaped input.
type DatasetAdapter interface {
	ResolveAssets(ctx context.Context, dataset, dataType string) ([]flowrun.Asset, error)
}

// ParticipantAdapter resolves participant identifiers (file ids, emails)
// the way a full participant catalog would.
type ParticipantAdapter interface {
	LookupByFileID(ctx context.Context, fileID string) (path string, err error)
	LookupEmail(ctx context.Context, email string) (exists bool, err error)
}

// MessageAdapter posts a convenience chat message when a step shares its
// output, mirroring the optional chat-post in spec §4.4 "Sharing
// outputs."
type MessageAdapter interface {
	PostMessage(ctx context.Context, threadID, body string) error
}

// DependencyInventoryAdapter reports which external engine binaries and
// container runtimes are available, used to validate a flow's
// requirements before C3 starts a run.
type DependencyInventoryAdapter interface {
	IsAvailable(ctx context.Context, binary string) bool
}

// InMemoryDatasetAdapter is a map-backed DatasetAdapter for local
// development and tests.
type InMemoryDatasetAdapter struct {
	mu       sync.RWMutex
	datasets map[string][]flowrun.Asset
}

// NewInMemoryDatasetAdapter builds an empty in-memory dataset catalog.
func NewInMemoryDatasetAdapter() *InMemoryDatasetAdapter {
	return &InMemoryDatasetAdapter{datasets: make(map[string][]flowrun.Asset)}
}

// Register stores assets under dataset/dataType.
func (a *InMemoryDatasetAdapter) Register(dataset, dataType string, assets []flowrun.Asset) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.datasets[dataset+"/"+dataType] = assets
}

// ResolveAssets implements DatasetAdapter.
func (a *InMemoryDatasetAdapter) ResolveAssets(ctx context.Context, dataset, dataType string) ([]flowrun.Asset, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.datasets[dataset+"/"+dataType], nil
}

// InMemoryParticipantAdapter is a map-backed ParticipantAdapter.
type InMemoryParticipantAdapter struct {
	mu     sync.RWMutex
	files  map[string]string
	emails map[string]struct{}
}

// NewInMemoryParticipantAdapter builds an empty in-memory participant
// catalog.
func NewInMemoryParticipantAdapter() *InMemoryParticipantAdapter {
	return &InMemoryParticipantAdapter{files: make(map[string]string), emails: make(map[string]struct{})}
}

// RegisterFile associates a file id with a local path.
func (a *InMemoryParticipantAdapter) RegisterFile(fileID, path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[fileID] = path
}

// RegisterEmail records a known participant email.
func (a *InMemoryParticipantAdapter) RegisterEmail(email string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emails[email] = struct{}{}
}

// LookupByFileID implements ParticipantAdapter.
func (a *InMemoryParticipantAdapter) LookupByFileID(ctx context.Context, fileID string) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.files[fileID], nil
}

// LookupEmail implements ParticipantAdapter.
func (a *InMemoryParticipantAdapter) LookupEmail(ctx context.Context, email string) (bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.emails[email]
	return ok, nil
}

// NoopMessageAdapter discards every message; used when no messaging
// subsystem is wired up.
type NoopMessageAdapter struct{}

// PostMessage implements MessageAdapter.
func (NoopMessageAdapter) PostMessage(ctx context.Context, threadID, body string) error {
	return nil
}

// PathDependencyInventoryAdapter checks binary availability on PATH.
type PathDependencyInventoryAdapter struct {
	lookPath func(string) (string, error)
}

// NewPathDependencyInventoryAdapter builds an adapter backed by
// exec.LookPath.
func NewPathDependencyInventoryAdapter(lookPath func(string) (string, error)) *PathDependencyInventoryAdapter {
	return &PathDependencyInventoryAdapter{lookPath: lookPath}
}

// IsAvailable implements DependencyInventoryAdapter.
func (a *PathDependencyInventoryAdapter) IsAvailable(ctx context.Context, binary string) bool {
	_, err := a.lookPath(binary)
	return err == nil
}
