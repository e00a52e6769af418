package types

import (
	"fmt"
	"strings"
)

// GenesisState seeds the ledger.
type GenesisState struct {
	KnownSafeCommands []string `json:"known_safe_commands"`
}

// DefaultGenesis returns an empty known-safe registry, under which every verified command
// is considered valid.
func DefaultGenesis() *GenesisState {
	return &GenesisState{KnownSafeCommands: []string{}}
}

// Validate rejects blank and duplicate commands.
func (gs GenesisState) Validate() error {
	seen := make(map[string]struct{}, len(gs.KnownSafeCommands))
	for i, cmd := range gs.KnownSafeCommands {
		if strings.TrimSpace(cmd) == "" {
			return fmt.Errorf("known safe command %d is empty", i)
		}
		if _, ok := seen[cmd]; ok {
			return fmt.Errorf("duplicate known safe command %q", cmd)
		}
		seen[cmd] = struct{}{}
	}
	return nil
}
