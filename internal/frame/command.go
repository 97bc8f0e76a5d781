// internal/frame/command.go
package frame

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Command mnemonics. Queries are newline terminated ASCII; configuration
// and run commands carry raw little-endian arguments (device convention).
const (
	cmdQuery     = 'A'
	cmdConfigure = 'C'
	cmdRun       = 'R'
	cmdHalt      = 'H'
)

// QueryLetter returns the mnemonic suffix of a channel query.
func QueryLetter(k ResponseKind) (string, bool) {
	switch k {
	case KindTemperature:
		return "T", true
	case KindPressure:
		return "P", true
	case KindRefTemperature:
		return "R", true
	case KindRawADC:
		return "A", true
	case KindStatusTemperature:
		return "ST", true
	case KindStatusPressure:
		return "SP", true
	case KindReserved, KindBoardID:
		return "", false
	default:
		return "", false
	}
}

// QueryBoardID encodes "AB\n".
func QueryBoardID() []byte {
	return []byte{cmdQuery, 'B', '\n'}
}

// Query encodes "A<letter><ch>\n" for a channel query.
func Query(k ResponseKind, ch uint8) ([]byte, error) {
	letter, ok := QueryLetter(k)
	if !ok {
		return nil, fmt.Errorf("frame: %s is not a channel query", k)
	}
	return []byte(fmt.Sprintf("%c%s%d\n", cmdQuery, letter, ch)), nil
}

// SetDebugLevel encodes "CD" + int8 level.
func SetDebugLevel(level int8) []byte {
	return []byte{cmdConfigure, 'D', byte(level)}
}

// SetPressureCoeff encodes "CP" + int8 channel + int8 index + LE float32.
func SetPressureCoeff(ch, idx uint8, a float32) []byte {
	out := []byte{cmdConfigure, 'P', ch, idx, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(out[4:], math.Float32bits(a))
	return out
}

// SetBoardID encodes "CB" + LE uint32.
func SetBoardID(id uint32) []byte {
	out := []byte{cmdConfigure, 'B', 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(out[2:], id)
	return out
}

// StoreConfig encodes "CW". Only ever sent after explicit confirmation.
func StoreConfig() []byte {
	return []byte{cmdConfigure, 'W'}
}

// Run encodes "R" + LE uint32 sample count. This is the only LE count on
// the wire; every count the device sends back is BE.
func Run(samples uint32) []byte {
	out := []byte{cmdRun, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(out[1:], samples)
	return out
}

// Halt encodes the stop command that ends a continuous run early.
func Halt() []byte {
	return []byte{cmdHalt}
}
