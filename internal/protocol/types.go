package protocol

import (
	"encoding/hex"
	"fmt"
)

// Identity is a 32-byte participant key (worker, witness or vault).
type Identity [32]byte

// String returns the hex encoding of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 4 bytes in hex, for log lines.
func (id Identity) Short() string {
	return hex.EncodeToString(id[:4])
}

// ParseIdentity decodes a 64-character hex identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity

	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decode identity:\n%w", err)
	}

	if len(b) != len(id) {
		return id, fmt.Errorf("invalid identity length: got %d, want %d", len(b), len(id))
	}

	copy(id[:], b)

	return id, nil
}

// Hash is a 32-byte blake3 digest used for task and metadata fingerprints.
type Hash [32]byte

// WorkType is the category of a submitted work claim.
type WorkType uint8

const (
	OnboardUser WorkType = iota
	CreateContent
	WriteCode
	ReferClient
	CloseDeal
	CommunityManagement
	BugReport
	Documentation
	Marketing
	UserSupport

	// NumWorkTypes is the number of defined work types.
	NumWorkTypes = int(UserSupport) + 1
)

// workTypeInfo holds the static per-type tables.
type workTypeInfo struct {
	name         string
	title        string
	baseEmission uint64
	cooldown     int64
}

// workTypes is indexed by WorkType. Cooldowns are in seconds.
var workTypes = [NumWorkTypes]workTypeInfo{
	OnboardUser:         {"OnboardUser", "Onboarder", 500_000, 3600},
	CreateContent:       {"CreateContent", "Creator", 1_000_000, 7200},
	WriteCode:           {"WriteCode", "Developer", 2_000_000, 1800},
	ReferClient:         {"ReferClient", "Referrer", 5_000_000, 86400},
	CloseDeal:           {"CloseDeal", "Closer", 10_000_000, 86400},
	CommunityManagement: {"CommunityManagement", "Community Manager", 750_000, defaultCooldown},
	BugReport:           {"BugReport", "Bug Hunter", 1_500_000, defaultCooldown},
	Documentation:       {"Documentation", "Documenter", 800_000, defaultCooldown},
	Marketing:           {"Marketing", "Marketer", 1_200_000, defaultCooldown},
	UserSupport:         {"UserSupport", "Support Specialist", 600_000, defaultCooldown},
}

// defaultCooldown applies to every type without its own entry (1 hour).
const defaultCooldown = 3600

// Valid reports whether t is a defined work type.
func (t WorkType) Valid() bool {
	return int(t) < NumWorkTypes
}

// String returns the canonical name of the work type.
func (t WorkType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("WorkType(%d)", uint8(t))
	}

	return workTypes[t].name
}

// Title returns the role name shown in reputation summaries.
func (t WorkType) Title() string {
	if !t.Valid() {
		return "Unknown"
	}

	return workTypes[t].title
}

// ParseWorkType resolves a canonical work type name.
func ParseWorkType(name string) (WorkType, error) {
	for i, info := range workTypes {
		if info.name == name {
			return WorkType(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownWorkType, name)
}

// BaseEmission returns the base emission of a work type in base units.
// Unknown types emit nothing.
func BaseEmission(t WorkType) uint64 {
	if !t.Valid() {
		return 0
	}

	return workTypes[t].baseEmission
}

// Cooldown returns the duplicate-submission cooldown of a work type in seconds.
func Cooldown(t WorkType) int64 {
	if !t.Valid() {
		return defaultCooldown
	}

	return workTypes[t].cooldown
}
