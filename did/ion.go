package did

import (
	"encoding/json"
	"fmt"

	dwnhttp "dwn.evalgo.org/http"
)

// ionResolver resolves did:ion DIDs against a Sidetree resolution service
// (GET <endpoint>/<did>), mirroring the retrying-HTTP-GET idiom in
// security/oidc.go's provider-discovery call, adapted to a plain resolver
// response instead of an OIDC document.
type ionResolver struct {
	endpoint string
}

func newIONResolver(endpoint string) *ionResolver {
	return &ionResolver{endpoint: endpoint}
}

func (r *ionResolver) Method() string { return "ion" }

// sidetreeResolutionResponse is the subset of the Sidetree resolution
// response shape (didDocument, didDocumentMetadata) this node consumes.
type sidetreeResolutionResponse struct {
	DidDocument struct {
		ID                 string `json:"id"`
		VerificationMethod []struct {
			ID           string         `json:"id"`
			Type         string         `json:"type"`
			Controller   string         `json:"controller"`
			PublicKeyJwk map[string]any `json:"publicKeyJwk"`
		} `json:"verificationMethod"`
	} `json:"didDocument"`
}

func (r *ionResolver) Resolve(didStr string) (*Document, error) {
	req := dwnhttp.NewRequest("GET", r.endpoint+"/"+didStr)
	req.Headers["Accept"] = "application/did+json, application/json"
	req.RetryCount = 2

	resp, err := dwnhttp.Execute(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	var parsed sidetreeResolutionResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed resolution response: %v", ErrResolutionFailed, err)
	}
	if parsed.DidDocument.ID == "" {
		return nil, fmt.Errorf("%w: empty did document for %s", ErrResolutionFailed, didStr)
	}

	doc := &Document{ID: parsed.DidDocument.ID}
	for _, vm := range parsed.DidDocument.VerificationMethod {
		doc.VerificationMethod = append(doc.VerificationMethod, VerificationMethod{
			ID:           vm.ID,
			Type:         vm.Type,
			Controller:   vm.Controller,
			PublicKeyJwk: vm.PublicKeyJwk,
		})
		doc.Authentication = append(doc.Authentication, vm.ID)
	}
	return doc, nil
}
