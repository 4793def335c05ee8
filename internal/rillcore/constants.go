package rillcore

// Monetary constants. All values are in "rills", the smallest unit;
// 1 RILL = 1e8 rills, following the reference implementation.
const (
	COIN          uint64 = 100_000_000
	MaxSupply     uint64 = 21_000_000 * COIN
	InitialReward uint64 = 50 * COIN

	// DevFundBPS and BPSPrecision define the genesis dev-fund premine:
	// DEV_FUND_PREMINE = MaxSupply * DevFundBPS / BPSPrecision.
	DevFundBPS    uint64 = 500
	BPSPrecision  uint64 = 10_000
	DevFundPreMine = MaxSupply / BPSPrecision * DevFundBPS
)

// Chain timing and reward-schedule constants.
const (
	HalvingInterval  uint64 = 210_000
	TargetBlockTime  int64  = 60 // seconds
	LWMAWindow       uint64 = 64
	CoinbaseMaturity uint64 = 100
)

// GenesisTimestamp is fixed at 2026-01-01T00:00:00Z (20454 days since epoch).
const GenesisTimestamp int64 = 20454 * 86400

// GenesisMessage is embedded in the genesis coinbase's signature field.
var GenesisMessage = []byte("Wealth should flow like water. Rill genesis 2026.")

// Size and timing bounds. See SPEC_FULL.md section 5 for the rationale
// behind values not present in the reference sources.
const (
	MaxTxSize      = 100_000
	MaxBlockSize   = 4_000_000
	MaxMessageSize = MaxBlockSize + 1024
	MaxFutureSkew  int64 = 7200
	MaxLocatorSize = 64
)

// Decay engine constants.
const (
	ConcentrationPrecision uint64 = 1_000_000_000 // ppb
	SigmoidPrecision       uint64 = 1_000_000_000 // ppb
	DecayCThresholdPPB     uint64 = 50_000_000
	DecayCScalePPB         uint64 = 50_000_000
	DecayRMaxPPB           uint64 = 150_000_000 // 15%
	DecayPoolReleaseBPS    uint64 = 100          // 1% per block
	LineageHalfLife        uint64 = 50_000
	LineageFullReset       uint64 = 200_000
)

// Network constants.
var MagicBytes = [4]byte{0x52, 0x49, 0x4C, 0x4C} // ASCII "RILL"

const (
	RateLimitBlocksPerMin  = 30
	RateLimitTxsPerMin     = 600
	RateLimitHeadersPerMin = 120
	RandomXKeyBlockInterval uint64 = 2048
)

// Proof-of-Conduct defaults (Phase 1: inert).
const (
	ConductScoreDefault          uint16 = 500
	ConductMultiplierDefaultBPS  uint64 = 10_000
)

// AddressHRPMainnet and AddressHRPTestnet are the bech32 human-readable
// parts for Rill addresses.
const (
	AddressHRPMainnet = "rill1"
	AddressHRPTestnet = "trill1"
	AddressVersion    = byte(0)
)
