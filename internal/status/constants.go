// internal/status/constants.go
package status

// Session status block layout.
// These values define the register protocol and are not configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerSession is the fixed number of register slots per session.
const SlotsPerSession = 20

// ---- SLOT INDICES ----

const (
	SlotHealthCode     = 0
	SlotLastErrorCode  = 1
	SlotSecondsInError = 2
	SlotState          = 3
	SlotSamplesHi      = 4
	SlotSamplesLo      = 5
	SlotMeanIntervalMs = 6
	SlotMaxIntervalMs  = 7
	SlotBoardIDHi      = 8
	SlotBoardIDLo      = 9
)

// Slot 10 is reserved.
const SlotReserved = 10

// ---- PORT NAME ----

// SlotPortNameStart is the first slot of the port name; the name always
// sits at the end of the block.
const SlotPortNameStart = 11

const SlotPortNameSlots = 8

const SlotPortNameEnd = SlotPortNameStart + SlotPortNameSlots - 1

// PortNameMaxChars is the number of ASCII characters kept from the port name.
const PortNameMaxChars = 16

// ---- HEALTH CODES ----

const (
	HealthUnknown  uint16 = 0
	HealthOK       uint16 = 1
	HealthError    uint16 = 2
	HealthStale    uint16 = 3
	HealthDisabled uint16 = 4
)

// ---- ERROR CODES ----
// Device-reported codes are passed through verbatim; host-side failures
// use the 0xFFxx range.

const (
	ErrorNone             uint16 = 0
	ErrorTransport        uint16 = 0xFF01
	ErrorFraming          uint16 = 0xFF02
	ErrorUnexpectedHeader uint16 = 0xFF03
	ErrorOther            uint16 = 0xFFFF
)
