package types

import (
	errorsmod "cosmossdk.io/errors"
)

var (
	ErrAlreadyVerified  = errorsmod.Register(ModuleName, 2, "Already verified")
	ErrInvalidRequest   = errorsmod.Register(ModuleName, 3, "Invalid request")
	ErrEcuNotFound      = errorsmod.Register(ModuleName, 4, "ECU not found")
	ErrInvalidProof     = errorsmod.Register(ModuleName, 5, "invalid decryption proof")
	ErrMessageNotFound  = errorsmod.Register(ModuleName, 6, "message not found")
	ErrInvalidCleartext = errorsmod.Register(ModuleName, 7, "invalid cleartext payload")
	ErrEmptyKey         = errorsmod.Register(ModuleName, 8, "key cannot be empty")
	ErrEmptyCommand     = errorsmod.Register(ModuleName, 9, "command cannot be empty")
	ErrOracle           = errorsmod.Register(ModuleName, 10, "fhe oracle call failed")
)

// IsLedgerError reports whether err is a state-transition rejection raised by this module,
// as opposed to a storage or transport failure.
func IsLedgerError(err error) bool {
	return errorsmod.IsOf(err,
		ErrAlreadyVerified,
		ErrInvalidRequest,
		ErrEcuNotFound,
		ErrInvalidProof,
		ErrMessageNotFound,
		ErrInvalidCleartext,
		ErrEmptyKey,
		ErrEmptyCommand,
	)
}
