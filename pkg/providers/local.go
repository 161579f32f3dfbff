// Package providers supplies compose.Provisioner implementations. The local
// provider fabricates identities in process, which is enough for dry runs,
// tests, and the simulate workflow; a real cloud-backed provider plugs into
// the same interface.
package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dialtone/dialtone/pkg/compose"
)

// LocalConfig configures the local provider.
type LocalConfig struct {
	// InstanceAlias names the instance in fabricated ARNs.
	InstanceAlias string

	// Region appears in fabricated ARNs.
	Region string

	// AccountID appears in fabricated ARNs.
	AccountID string
}

// LocalProvider fabricates resource identities in memory. It is safe for
// concurrent use; the applier calls Create from multiple workers.
type LocalProvider struct {
	config LocalConfig
	logger zerolog.Logger

	mu         sync.RWMutex
	identities map[string]compose.Identity
}

// NewLocalProvider creates a local provider.
func NewLocalProvider(cfg LocalConfig, logger zerolog.Logger) *LocalProvider {
	if cfg.Region == "" {
		cfg.Region = "local"
	}
	if cfg.AccountID == "" {
		cfg.AccountID = "000000000000"
	}
	return &LocalProvider{
		config:     cfg,
		logger:     logger.With().Str("component", "local_provider").Logger(),
		identities: make(map[string]compose.Identity),
	}
}

// Create fabricates an identity for the unit. Every prerequisite identity
// must already be resolved; a missing one indicates a scheduling bug
// upstream and is rejected.
func (p *LocalProvider) Create(ctx context.Context, unit compose.PlanUnit, deps map[string]compose.Identity) (compose.Identity, error) {
	select {
	case <-ctx.Done():
		return compose.Identity{}, ctx.Err()
	default:
	}

	for _, req := range unit.Requires {
		if deps[req.ID()].ID == "" {
			return compose.Identity{}, fmt.Errorf("prerequisite %s has no identity", req.ID())
		}
	}

	id := fmt.Sprintf("%s-%s", shortKind(unit.Kind), uuid.New().String()[:8])
	identity := compose.Identity{
		ID: id,
		ARN: fmt.Sprintf("arn:aws:connect:%s:%s:instance/%s/%s/%s",
			p.config.Region, p.config.AccountID, p.config.InstanceAlias, unit.Kind, id),
	}

	p.mu.Lock()
	p.identities[unit.ID] = identity
	p.mu.Unlock()

	p.logger.Debug().
		Str("kind", string(unit.Kind)).
		Str("name", unit.Name).
		Str("id", identity.ID).
		Msg("Fabricated identity")

	return identity, nil
}

// Read returns the identity fabricated for a resource, if any.
func (p *LocalProvider) Read(ctx context.Context, kind compose.Kind, name string) (compose.Identity, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	identity, ok := p.identities[string(kind)+"/"+name]
	return identity, ok, nil
}

// Delete retires a fabricated resource.
func (p *LocalProvider) Delete(ctx context.Context, kind compose.Kind, name string) error {
	key := string(kind) + "/" + name
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.identities[key]; !ok {
		return fmt.Errorf("resource not found: %s", key)
	}
	delete(p.identities, key)
	return nil
}

// shortKind abbreviates a kind for fabricated IDs (queue -> q, user -> u).
func shortKind(kind compose.Kind) string {
	parts := strings.Split(string(kind), "_")
	var sb strings.Builder
	for _, part := range parts {
		if part != "" {
			sb.WriteByte(part[0])
		}
	}
	return sb.String()
}
