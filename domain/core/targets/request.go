package targets

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	vo "ixp-grapher/domain/core/valueobjects"
)

// GraphRequest is a resolved target with its normalized parameters. It is
// built per call and never modified after authorization.
type GraphRequest struct {
	Target GraphTarget
	Params vo.GraphParams
}

// Fingerprint is the cache identity of the request when rendered by backend.
func (r GraphRequest) Fingerprint(backend string) string {
	parts := []string{
		r.Target.Identity(),
		string(r.Params.Category),
		string(r.Params.Protocol),
		string(r.Params.Period),
		string(r.Params.Type),
		backend,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
