// Package grant implements the permission-grant half of Component C8:
// grant records, their scope matching, and the active/expired/revoked
// evaluation spec.md §4.8 requires before a grant-backed operation runs.
package grant

import (
	"encoding/json"
	"fmt"
	"time"

	"dwn.evalgo.org/index"
	"dwn.evalgo.org/messagestore"
)

// Scope names the operation a Grant authorizes, or that a caller is
// attempting: interface+method, optionally narrowed to a protocol or
// schema.
type Scope struct {
	Interface string `json:"interface"`
	Method    string `json:"method"`
	Protocol  string `json:"protocol,omitempty"`
	Schema    string `json:"schema,omitempty"`
}

// Matches reports whether g's scope authorizes op. Interface and Method
// must always match; Protocol and Schema only constrain when op
// specifies them.
func (g Grant) Matches(op Scope) bool {
	if g.Scope.Interface != op.Interface {
		return false
	}
	if g.Scope.Method != op.Method {
		return false
	}
	if op.Protocol != "" && g.Scope.Protocol != op.Protocol {
		return false
	}
	if op.Schema != "" && g.Scope.Schema != op.Schema {
		return false
	}
	return true
}

// Grant is a PermissionsGrant record's descriptor.
type Grant struct {
	GrantID     string `json:"permissionsGrantId"`
	GrantedBy   string `json:"grantedBy"`
	GrantedTo   string `json:"grantedTo"`
	GrantedFor  string `json:"grantedFor"`
	Scope       Scope  `json:"scope"`
	DateGranted string `json:"dateGranted"`
	DateExpires string `json:"dateExpires"`
}

// Store resolves grants and revocations by querying the tenant's message
// store, rather than caching grants in memory — a revoke takes effect on
// its next lookup with no invalidation bookkeeping required.
type Store struct {
	messages *messagestore.MessageStore
}

// NewStore builds a Store over the tenant's message store.
func NewStore(messages *messagestore.MessageStore) *Store {
	return &Store{messages: messages}
}

// Put persists g under messageCid, indexed so Lookup/Evaluate can find it
// later. This is the write side of Component C8's grant half: the path a
// real Permissions.Grant dispatch takes, as opposed to tests constructing
// a grant directly against the message store.
func (s *Store) Put(tenantDid, messageCid string, g Grant) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("grant: encoding %s: %w", g.GrantID, err)
	}
	return s.messages.Put(tenantDid, messageCid, raw, map[string]any{
		"permissionsGrantId": g.GrantID, "interface": "Permissions", "method": "Grant",
	})
}

// Revoke persists a PermissionsRevoke tombstone naming grantID, the
// distinct message type isRevoked looks for.
func (s *Store) Revoke(tenantDid, messageCid, grantID string) error {
	raw, err := json.Marshal(map[string]string{"permissionsGrantId": grantID})
	if err != nil {
		return fmt.Errorf("grant: encoding revoke of %s: %w", grantID, err)
	}
	return s.messages.Put(tenantDid, messageCid, raw, map[string]any{
		"permissionsGrantId": grantID, "interface": "Permissions", "method": "Revoke",
	})
}

// Lookup finds the PermissionsGrant write named by grantID.
func (s *Store) Lookup(tenantDid, grantID string) (Grant, error) {
	filter := index.Filter{
		"permissionsGrantId": index.EqualFilter{Value: grantID},
		"interface":          index.EqualFilter{Value: "Permissions"},
		"method":             index.EqualFilter{Value: "Grant"},
	}
	results, _, err := s.messages.Query(tenantDid, []index.Filter{filter}, "", false, nil, 1)
	if err != nil {
		return Grant{}, fmt.Errorf("grant: looking up %s: %w", grantID, err)
	}
	if len(results) == 0 {
		return Grant{}, ErrGrantNotFound
	}
	var g Grant
	if err := json.Unmarshal(results[0].Raw, &g); err != nil {
		return Grant{}, fmt.Errorf("grant: decoding %s: %w", grantID, err)
	}
	return g, nil
}

// isRevoked reports whether a PermissionsRevoke message exists naming
// grantID — a distinct message type from grant expiry, per spec.md §3's
// "a matching Permission Revoke invalidates a grant".
func (s *Store) isRevoked(tenantDid, grantID string) (bool, error) {
	filter := index.Filter{
		"permissionsGrantId": index.EqualFilter{Value: grantID},
		"interface":          index.EqualFilter{Value: "Permissions"},
		"method":             index.EqualFilter{Value: "Revoke"},
	}
	results, _, err := s.messages.Query(tenantDid, []index.Filter{filter}, "", false, nil, 1)
	if err != nil {
		return false, fmt.Errorf("grant: checking revocation of %s: %w", grantID, err)
	}
	return len(results) > 0, nil
}

// Evaluate resolves grantID, then runs the full sequence spec.md §4.8
// requires before a grant-backed operation may proceed: existence,
// tenant/signer binding, revocation, active window, and scope match.
func (s *Store) Evaluate(tenantDid, signerDid, grantID string, now time.Time, op Scope) (Grant, error) {
	g, err := s.Lookup(tenantDid, grantID)
	if err != nil {
		return Grant{}, err
	}

	if g.GrantedFor != tenantDid || g.GrantedTo != signerDid {
		return Grant{}, ErrUnauthorizedGrant
	}

	revoked, err := s.isRevoked(tenantDid, grantID)
	if err != nil {
		return Grant{}, err
	}
	if revoked {
		return Grant{}, ErrGrantRevoked
	}

	granted, err := time.Parse(time.RFC3339, g.DateGranted)
	if err != nil {
		return Grant{}, fmt.Errorf("grant: parsing dateGranted: %w", err)
	}
	if now.Before(granted) {
		return Grant{}, ErrGrantNotYetActive
	}
	if g.DateExpires != "" {
		expires, err := time.Parse(time.RFC3339, g.DateExpires)
		if err != nil {
			return Grant{}, fmt.Errorf("grant: parsing dateExpires: %w", err)
		}
		if !now.Before(expires) {
			return Grant{}, ErrGrantExpired
		}
	}

	if g.Scope.Interface != op.Interface {
		return Grant{}, ErrInterfaceMismatch
	}
	if g.Scope.Method != op.Method {
		return Grant{}, ErrMethodMismatch
	}
	if !g.Matches(op) {
		return Grant{}, ErrUnauthorizedGrant
	}
	return g, nil
}
