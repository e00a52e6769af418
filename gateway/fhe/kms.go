package fhe

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	gwerrors "github.com/pushchain/ecu-vault/gateway/errors"
)

const kmsComponent = "kms"

var (
	bytesType, _      = abi.NewType("bytes", "", nil)
	bytesArrayType, _ = abi.NewType("bytes[]", "", nil)

	// ABI arguments layout: (uint256 requestId, bytes cleartexts)
	digestArgs = abi.Arguments{
		{Type: uint256Type},
		{Type: bytesType},
	}

	// ABI arguments layout: (bytes[] signatures)
	proofArgs = abi.Arguments{
		{Type: bytesArrayType},
	}
)

// KMS is a threshold set of secp256k1 signers attesting to decryption results. A proof is
// valid when at least threshold distinct authorized signers signed the request digest.
type KMS struct {
	keys       []*ecdsa.PrivateKey
	authorized map[common.Address]struct{}
	threshold  int
}

// NewKMS creates a KMS signing with keys.
func NewKMS(keys []*ecdsa.PrivateKey, threshold int) (*KMS, error) {
	if len(keys) == 0 {
		return nil, gwerrors.NewConfigError(kmsComponent, "at least one signer key is required")
	}
	if threshold < 1 || threshold > len(keys) {
		return nil, gwerrors.NewConfigError(kmsComponent,
			fmt.Sprintf("threshold %d out of range for %d signers", threshold, len(keys)))
	}

	authorized := make(map[common.Address]struct{}, len(keys))
	for _, key := range keys {
		authorized[crypto.PubkeyToAddress(key.PublicKey)] = struct{}{}
	}
	if len(authorized) != len(keys) {
		return nil, gwerrors.NewConfigError(kmsComponent, "duplicate signer keys")
	}

	return &KMS{keys: keys, authorized: authorized, threshold: threshold}, nil
}

// ParseSignerKeys decodes hex-encoded private keys.
func ParseSignerKeys(hexKeys []string) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(hexKeys))
	for i, h := range hexKeys {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(h), "0x"))
		if err != nil {
			return nil, gwerrors.NewConfigError(kmsComponent, fmt.Sprintf("signer key %d: %v", i, err))
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// GenerateSignerKeys creates n fresh signer keys.
func GenerateSignerKeys(n int) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, n)
	for i := 0; i < n; i++ {
		key, err := crypto.GenerateKey()
		if err != nil {
			return nil, gwerrors.NewKMSError(kmsComponent, "failed to generate signer key", err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Signers returns the authorized signer addresses, sorted.
func (k *KMS) Signers() []common.Address {
	out := make([]common.Address, 0, len(k.authorized))
	for addr := range k.authorized {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Threshold returns the number of signatures a proof needs.
func (k *KMS) Threshold() int {
	return k.threshold
}

// ProofDigest is keccak256(abi.encode(uint256 requestID, bytes cleartexts)).
func ProofDigest(requestID uint64, cleartexts []byte) (common.Hash, error) {
	encoded, err := digestArgs.Pack(new(big.Int).SetUint64(requestID), cleartexts)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// Sign returns a proof carrying one signature per signer.
func (k *KMS) Sign(requestID uint64, cleartexts []byte) ([]byte, error) {
	digest, err := ProofDigest(requestID, cleartexts)
	if err != nil {
		return nil, gwerrors.NewKMSError(kmsComponent, "failed to build digest", err)
	}

	sigs := make([][]byte, 0, len(k.keys))
	for _, key := range k.keys {
		sig, err := crypto.Sign(digest.Bytes(), key)
		if err != nil {
			return nil, gwerrors.NewKMSError(kmsComponent, "failed to sign digest", err)
		}
		sigs = append(sigs, sig)
	}

	proof, err := proofArgs.Pack(sigs)
	if err != nil {
		return nil, gwerrors.NewKMSError(kmsComponent, "failed to encode proof", err)
	}
	return proof, nil
}

// Verify checks proof against the request digest. Signatures from unknown signers and
// repeated signers do not count towards the threshold.
func (k *KMS) Verify(requestID uint64, cleartexts, proof []byte) error {
	values, err := proofArgs.Unpack(proof)
	if err != nil || len(values) != 1 {
		return gwerrors.NewKMSError(kmsComponent, "malformed proof", err)
	}
	sigs, ok := values[0].([][]byte)
	if !ok {
		return gwerrors.NewKMSError(kmsComponent, "malformed proof", nil)
	}

	digest, err := ProofDigest(requestID, cleartexts)
	if err != nil {
		return gwerrors.NewKMSError(kmsComponent, "failed to build digest", err)
	}

	seen := make(map[common.Address]struct{}, len(sigs))
	for _, sig := range sigs {
		if len(sig) != crypto.SignatureLength {
			continue
		}
		pub, err := crypto.SigToPub(digest.Bytes(), sig)
		if err != nil {
			continue
		}
		addr := crypto.PubkeyToAddress(*pub)
		if _, ok := k.authorized[addr]; ok {
			seen[addr] = struct{}{}
		}
	}

	if len(seen) < k.threshold {
		return gwerrors.NewKMSError(kmsComponent,
			fmt.Sprintf("%d of %d required signatures", len(seen), k.threshold), nil)
	}
	return nil
}
