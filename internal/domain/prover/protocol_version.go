package prover

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ProtocolVersionID is the semantic minor version of the protocol a job was
// produced for.
type ProtocolVersionID uint16

// DefaultProtocolVersion is used when the operator does not supply a version.
const DefaultProtocolVersion ProtocolVersionID = 24

// MaxProtocolVersion bounds the versions the pipeline knows about.
const MaxProtocolVersion ProtocolVersionID = 1 << 10

// NewProtocolVersionID validates v against the known range.
func NewProtocolVersionID(v uint64) (ProtocolVersionID, error) {
	if v > uint64(MaxProtocolVersion) {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrInvalidProtocolVersion, v, MaxProtocolVersion)
	}
	return ProtocolVersionID(v), nil
}

func (v ProtocolVersionID) String() string { return fmt.Sprintf("%d", uint16(v)) }

// VersionPatch is the patch number within a protocol version.
type VersionPatch uint32

func (p VersionPatch) String() string { return fmt.Sprintf("%d", uint32(p)) }

// VKHash is a 32 byte verification key hash, rendered as 0x-prefixed hex.
type VKHash [32]byte

// ZeroVKHash is the default verification key hash.
var ZeroVKHash VKHash

// ParseVKHash parses a 0x-prefixed (or bare) 64 character hex string.
func ParseVKHash(s string) (VKHash, error) {
	var h VKHash
	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if len(raw) != 2*len(h) {
		return h, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidVKHash, 2*len(h), len(raw))
	}
	if _, err := hex.Decode(h[:], []byte(raw)); err != nil {
		return h, fmt.Errorf("%w: %v", ErrInvalidVKHash, err)
	}
	return h, nil
}

func (h VKHash) String() string { return "0x" + hex.EncodeToString(h[:]) }

// Bytes returns a copy of the hash bytes.
func (h VKHash) Bytes() []byte { return append([]byte(nil), h[:]...) }

// VerificationKeyHashes groups the recursion verification keys registered for
// one protocol version.
type VerificationKeyHashes struct {
	RecursionSchedulerLevel VKHash
	RecursionNodeLevel      VKHash
	RecursionLeafLevel      VKHash
	RecursionCircuitsSet    VKHash
	SnarkWrapper            VKHash
}

// ProtocolVersionParams is the payload of a protocol version insert.
type ProtocolVersionParams struct {
	Version ProtocolVersionID
	Patch   VersionPatch
	VKs     VerificationKeyHashes
}

// DefaultProtocolVersionParams returns the fixed default set used by
// non-interactive inserts.
func DefaultProtocolVersionParams() ProtocolVersionParams {
	return ProtocolVersionParams{
		Version: DefaultProtocolVersion,
		Patch:   0,
		VKs: VerificationKeyHashes{
			RecursionSchedulerLevel: ZeroVKHash,
			RecursionNodeLevel:      ZeroVKHash,
			RecursionLeafLevel:      ZeroVKHash,
			RecursionCircuitsSet:    ZeroVKHash,
			SnarkWrapper:            ZeroVKHash,
		},
	}
}

// WitnessInput is the payload of a basic witness generator insert.
type WitnessInput struct {
	BatchNumber     BatchNumber
	BlobURL         string
	ProtocolVersion ProtocolVersionID
	Patch           VersionPatch
}

// NewWitnessInput builds the insert payload for a batch, naming the witness
// blob after the batch number.
func NewWitnessInput(batch BatchNumber, version ProtocolVersionID, patch VersionPatch) WitnessInput {
	return WitnessInput{
		BatchNumber:     batch,
		BlobURL:         fmt.Sprintf("witness_inputs_%d.bin", batch),
		ProtocolVersion: version,
		Patch:           patch,
	}
}
