package did

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"dwn.evalgo.org/config"
)

// methodResolver resolves DIDs of a single method to a Document.
type methodResolver interface {
	Method() string
	Resolve(did string) (*Document, error)
}

// Resolver is the façade Components C6 and C8 call to turn a DID string
// into a Document. It dispatches by method segment to a registered
// methodResolver and caches results so repeated signature checks against
// the same DID (the common case: one tenant writing many records) don't
// repeat a network round trip.
type Resolver struct {
	byMethod map[string]methodResolver
	cache    *expirable.LRU[string, ResolutionResult]
}

// NewResolver builds a Resolver from the configured DID methods, wiring a
// did:key resolver for "key" and an HTTPS Sidetree resolver for "ion".
// Unknown methods in opts.DidResolvers are ignored; resolving a DID whose
// method was never registered yields a result with no Document and
// Metadata.Error "methodNotSupported".
func NewResolver(opts config.Options) *Resolver {
	r := &Resolver{
		byMethod: make(map[string]methodResolver),
		cache:    expirable.NewLRU[string, ResolutionResult](opts.DidCacheMaxEntries, nil, opts.DidCacheTTL),
	}
	for _, rc := range opts.DidResolvers {
		switch rc.Method {
		case "key":
			r.byMethod["key"] = newKeyResolver()
		case "ion":
			r.byMethod["ion"] = newIONResolver(rc.Endpoint)
		}
	}
	return r
}

// Resolve returns the DID Document for didStr, using the cache when
// possible. A resolution failure is represented, not returned as an error:
// callers inspect ResolutionResult.Document == nil and
// ResolutionResult.Metadata.Error, matching the DID Resolution spec's
// result shape rather than Go's usual (value, error) idiom, because a
// resolution failure is a first-class, cacheable outcome here (an
// unreachable did:ion anchor shouldn't be retried on every message).
func (r *Resolver) Resolve(didStr string) ResolutionResult {
	if cached, ok := r.cache.Get(didStr); ok {
		return cached
	}

	method, err := methodOf(didStr)
	if err != nil {
		result := ResolutionResult{Metadata: Metadata{Error: "invalidDid"}}
		r.cache.Add(didStr, result)
		return result
	}

	resolver, ok := r.byMethod[method]
	if !ok {
		result := ResolutionResult{Metadata: Metadata{Error: "methodNotSupported"}}
		r.cache.Add(didStr, result)
		return result
	}

	doc, err := resolver.Resolve(didStr)
	var result ResolutionResult
	if err != nil {
		result = ResolutionResult{Metadata: Metadata{Error: "invalidDid"}}
	} else {
		result = ResolutionResult{Document: doc, Metadata: Metadata{ContentType: "application/did+json"}}
	}
	r.cache.Add(didStr, result)
	return result
}

func methodOf(didStr string) (string, error) {
	if len(didStr) < 5 || didStr[:4] != "did:" {
		return "", fmt.Errorf("%w: %s", ErrInvalidDid, didStr)
	}
	rest := didStr[4:]
	for i := 0; i < len(rest); i++ {
		if rest[i] == ':' {
			return rest[:i], nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidDid, didStr)
}
