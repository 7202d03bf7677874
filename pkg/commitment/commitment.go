// Package commitment implements the hash binding between a hidden answer and
// its reveal nonce. An agent submits Hash(answer, nonce) at commit time and
// the pair itself at reveal time; the two bind iff the recomputed hash is
// byte-identical.
package commitment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const preimageVersion = "querylane-commit-v1"

// Hash computes the sha256-hex commitment over (answer, nonce). The answer
// is length-prefixed so an answer containing the separator cannot be traded
// off against the nonce.
func Hash(answer []byte, nonce string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%d\n", preimageVersion, len(answer))
	h.Write(answer)
	h.Write([]byte("\n"))
	h.Write([]byte(nonce))
	return hex.EncodeToString(h.Sum(nil))
}

// NewNonce mints a reveal nonce. Agents must keep it secret until reveal;
// anyone who learns it before then can front-run the answer.
func NewNonce() string { return "n_" + uuid.NewString() }
