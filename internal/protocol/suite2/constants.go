// Package suite2 implements the hybrid classical/post-quantum ratchet suite:
// strict wire parsing, transcript binding, establishment from base-handshake
// outputs, the send/receive state machines with header-key encryption and
// bounded probing, and the SCKA PQ reseed bookkeeping.
package suite2

// Protocol identifiers.
const (
	ProtocolVersion uint16 = 0x0500
	SuiteID         uint16 = 0x0002
	MsgTypeRatchet  byte   = 0x02
)

// Inner-header flags. PQ_ADV and PQ_CTXT are only valid on boundary
// messages.
const (
	FlagPQAdv    uint16 = 0x0001
	FlagPQCtxt   uint16 = 0x0002
	FlagBoundary uint16 = 0x0004

	knownFlags = FlagPQAdv | FlagPQCtxt | FlagBoundary
)

// Fixed wire sizes.
const (
	SessionIDLen = 16
	DHPubLen     = 32
	HdrCtLen     = 24
	BodyCtMin    = 16
	PQAdvPubLen  = 1184
	PQCtLen      = 1088

	outerHeaderLen = 10
)

// Work bounds. Every loop in the receive path terminates in O(bound) crypto
// operations regardless of input.
const (
	MaxSkip           = 1000
	MaxMKSkipped      = 2000
	MaxHeaderAttempts = 100
	MaxHKSkipped      = 4
	MaxMKSkippedScan  = 50
)

// Key-schedule labels. All derivations are KMAC-256 with these customization
// strings.
const (
	labelRK0      = "QSP5.0/RK0"
	labelRKPQ     = "QSP5.0/RKPQ"
	labelRKDH     = "QSP5.0/RK/DH"
	labelHKA2B    = "QSP5.0/HK/A->B"
	labelHKB2A    = "QSP5.0/HK/B->A"
	labelCK0A2B   = "QSP5.0/CK0/A->B"
	labelCK0B2A   = "QSP5.0/CK0/B->A"
	labelPQ0A2B   = "QSP5.0/PQ0/A->B"
	labelPQ0B2A   = "QSP5.0/PQ0/B->A"
	labelHKStep   = "QSP5.0/HK-STEP"
	labelCKStep   = "QSP5.0/CK-STEP"
	labelPQStep   = "QSP5.0/PQ-STEP"
	labelMKHybrid = "QSP5.0/MK-HYBRID"
	labelSeedA2B  = "QSP5.0/PQSEED/A->B"
	labelSeedB2A  = "QSP5.0/PQSEED/B->A"
	labelSckaCtxt = "QSP5.0/SCKA/CTXT"
)
