package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// DigestPrefix is prepended to every hex digest so stored values are
// self-describing about the algorithm that produced them.
const DigestPrefix = "sha256:"

// PayloadDigest computes the digest of a response body. Dedup decisions
// for both pages and asset blobs key on this value.
func PayloadDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return DigestPrefix + hex.EncodeToString(sum[:])
}

// BlockDigest computes the digest of the serialized response headers
// followed by the body, separated by a blank line as on the wire.
//
// Header serialization must be deterministic so that identical responses
// always produce identical digests: keys are emitted in sorted order and
// multi-valued headers keep their original value order.
func BlockDigest(headers http.Header, body []byte) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	b.WriteString("\r\n")

	h := sha256.New()
	h.Write([]byte(b.String()))
	h.Write(body)
	return DigestPrefix + hex.EncodeToString(h.Sum(nil))
}
