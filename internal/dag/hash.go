package dag

import (
	"encoding/hex"
	"fmt"
	"strings"

	gocid "github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// HashLen is the length of a full hex-encoded object hash.
const HashLen = 2 * 32

// ShortLen is the abbreviation length used when printing merge parents.
const ShortLen = 7

// Hash identifies a stored object: the lowercase hex SHA2-256 digest of its bytes.
type Hash string

// Sum computes the content hash of data.
func Sum(data []byte) (Hash, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("multihash: %w", err)
	}
	dec, err := multihash.Decode(mh)
	if err != nil {
		return "", fmt.Errorf("decode multihash: %w", err)
	}
	return Hash(hex.EncodeToString(dec.Digest)), nil
}

// MustSum is Sum for callers holding data that is known to hash.
func MustSum(data []byte) Hash {
	h, err := Sum(data)
	if err != nil {
		panic(err)
	}
	return h
}

func (h Hash) String() string { return string(h) }

// Short returns the first ShortLen characters of the hash.
func (h Hash) Short() string {
	if len(h) <= ShortLen {
		return string(h)
	}
	return string(h[:ShortLen])
}

// IsZero reports whether h is the empty hash.
func (h Hash) IsZero() bool { return h == "" }

// Valid reports whether h looks like a full hash.
func (h Hash) Valid() bool {
	if len(h) != HashLen {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// CID returns the CIDv1 (raw codec) naming the same SHA2-256 digest.
func (h Hash) CID() (gocid.Cid, error) {
	digest, err := hex.DecodeString(string(h))
	if err != nil {
		return gocid.Undef, fmt.Errorf("decode hash %q: %w", h, err)
	}
	mh, err := multihash.Encode(digest, multihash.SHA2_256)
	if err != nil {
		return gocid.Undef, fmt.Errorf("encode multihash: %w", err)
	}
	return gocid.NewCidV1(gocid.Raw, mh), nil
}

// CIDString returns the base32 multibase rendering of h's CID, or "" if h is malformed.
func (h Hash) CIDString() string {
	c, err := h.CID()
	if err != nil {
		return ""
	}
	encoded, _ := multibase.Encode(multibase.Base32, c.Bytes())
	return encoded
}

// HashFromCID extracts the content hash from a SHA2-256 CID.
func HashFromCID(c gocid.Cid) (Hash, error) {
	dec, err := multihash.Decode(c.Hash())
	if err != nil {
		return "", fmt.Errorf("decode cid multihash: %w", err)
	}
	if dec.Code != multihash.SHA2_256 {
		return "", fmt.Errorf("unsupported multihash code 0x%x", dec.Code)
	}
	return Hash(hex.EncodeToString(dec.Digest)), nil
}

// ParseCID decodes a multibase CID string into a content hash.
func ParseCID(s string) (Hash, error) {
	_, raw, err := multibase.Decode(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("decode cid: %w", err)
	}
	c, err := gocid.Cast(raw)
	if err != nil {
		return "", fmt.Errorf("cast cid: %w", err)
	}
	return HashFromCID(c)
}

// ComputeCID computes a CIDv1 (raw codec, SHA2-256) for the given data.
func ComputeCID(data []byte) (gocid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return gocid.Undef, fmt.Errorf("multihash: %w", err)
	}
	return gocid.NewCidV1(gocid.Raw, mh), nil
}
