package fhe

import (
	"context"
	"encoding/binary"
	stderrors "errors"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/pushchain/ecu-vault/gateway/db"
	gwerrors "github.com/pushchain/ecu-vault/gateway/errors"
	"github.com/pushchain/ecu-vault/gateway/store"
	"github.com/pushchain/ecu-vault/x/ecuvault/types"
)

const (
	component = "fhe"

	handleDomain = "ecuvault/fhe/v1"
)

// Coprocessor holds encrypted values behind opaque handles and evaluates additions on
// them. Values never leave the coprocessor except through Decrypt, which only the
// decryption oracle calls.
type Coprocessor struct {
	database *db.DB
	logger   zerolog.Logger

	// ops counts evaluated operations
	ops atomic.Uint64
}

// NewCoprocessor creates a coprocessor persisting ciphertexts in database.
func NewCoprocessor(database *db.DB, logger zerolog.Logger) *Coprocessor {
	return &Coprocessor{
		database: database,
		logger:   logger.With().Str("component", "fhe_coprocessor").Logger(),
	}
}

// Encrypt stores value and returns its handle.
func (c *Coprocessor) Encrypt(ctx context.Context, value Plaintext) (types.Handle, error) {
	if err := value.Validate(); err != nil {
		return types.Handle{}, gwerrors.NewValidationError(component, err.Error())
	}

	handle := newHandle(value.Type)
	row := store.Ciphertext{
		Handle:    handle.Hex(),
		ValueType: string(value.Type),
		Payload:   value.payload(),
	}
	if err := c.database.Client().WithContext(ctx).Create(&row).Error; err != nil {
		return types.Handle{}, gwerrors.NewDatabaseError(component, "failed to store ciphertext", err)
	}

	c.logger.Debug().Str("handle", handle.Hex()).Str("type", string(value.Type)).Msg("ciphertext stored")
	return handle, nil
}

// TrivialEncrypt encrypts a public constant.
func (c *Coprocessor) TrivialEncrypt(ctx context.Context, value uint64) (types.Handle, error) {
	return c.Encrypt(ctx, Uint64(value))
}

// Add returns a handle to lhs + rhs. Both operands must be integers; the sum wraps at
// 2^64.
func (c *Coprocessor) Add(ctx context.Context, lhs, rhs types.Handle) (types.Handle, error) {
	a, err := c.Decrypt(ctx, lhs)
	if err != nil {
		return types.Handle{}, err
	}
	b, err := c.Decrypt(ctx, rhs)
	if err != nil {
		return types.Handle{}, err
	}
	if a.Type != TypeUint64 || b.Type != TypeUint64 {
		return types.Handle{}, gwerrors.NewFHEError(component, "add requires integer operands", nil).
			WithContext("lhs_type", a.Type).
			WithContext("rhs_type", b.Type)
	}

	c.ops.Add(1)
	return c.Encrypt(ctx, Uint64(a.Uint+b.Uint))
}

// Decrypt returns the value behind handle.
func (c *Coprocessor) Decrypt(ctx context.Context, handle types.Handle) (Plaintext, error) {
	var row store.Ciphertext
	err := c.database.Client().WithContext(ctx).Where("handle = ?", handle.Hex()).First(&row).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return Plaintext{}, gwerrors.NewNotFoundError(component, "unknown handle "+handle.Hex())
		}
		return Plaintext{}, gwerrors.NewDatabaseError(component, "failed to load ciphertext", err)
	}

	value, err := plaintextFromPayload(row.ValueType, row.Payload)
	if err != nil {
		return Plaintext{}, gwerrors.NewFHEError(component, "failed to decode ciphertext", err)
	}
	return value, nil
}

// Operations returns the number of homomorphic additions evaluated.
func (c *Coprocessor) Operations() uint64 {
	return c.ops.Load()
}

// newHandle derives a handle from a fresh nonce. The last byte records the value type.
func newHandle(valueType ValueType) types.Handle {
	nonce := uuid.New()
	var typeTag [8]byte
	binary.BigEndian.PutUint64(typeTag[:], typeCode(valueType))

	h := types.Handle(crypto.Keccak256Hash([]byte(handleDomain), nonce[:], typeTag[:]))
	h[types.HandleLength-1] = byte(typeCode(valueType))
	return h
}

func typeCode(valueType ValueType) uint64 {
	switch valueType {
	case TypeUint64:
		return 5
	case TypeString:
		return 7
	default:
		return 0
	}
}
