// internal/frame/header.go
package frame

import "fmt"

// FrameClass is the top-level frame category held in bits 7-6 of the header byte.
type FrameClass uint8

const (
	ClassReserved FrameClass = 0b00
	ClassData     FrameClass = 0b01
	ClassResponse FrameClass = 0b10
	ClassHalt     FrameClass = 0b11
)

func (c FrameClass) String() string {
	switch c {
	case ClassReserved:
		return "reserved"
	case ClassData:
		return "data"
	case ClassResponse:
		return "response"
	case ClassHalt:
		return "halt"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// ResponseKind is the response sub-type held in bits 5-3 of a Response header.
type ResponseKind uint8

const (
	KindReserved          ResponseKind = 0
	KindBoardID           ResponseKind = 1
	KindTemperature       ResponseKind = 2
	KindPressure          ResponseKind = 3
	KindRefTemperature    ResponseKind = 4
	KindRawADC            ResponseKind = 5
	KindStatusTemperature ResponseKind = 6
	KindStatusPressure    ResponseKind = 7
)

func (k ResponseKind) String() string {
	switch k {
	case KindReserved:
		return "reserved"
	case KindBoardID:
		return "board-id"
	case KindTemperature:
		return "temperature"
	case KindPressure:
		return "pressure"
	case KindRefTemperature:
		return "ref-temperature"
	case KindRawADC:
		return "raw-adc"
	case KindStatusTemperature:
		return "status-temperature"
	case KindStatusPressure:
		return "status-pressure"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Header layout (MSB first):
//
//	HH KKK CC E
//	HH  frame class
//	KKK response kind   (Response only)
//	CC  channel         (Response only)
//	E   error flag
//
// For Data frames the low 6 bits carry the payload byte count instead.
const (
	classShift = 6
	kindShift  = 3
	chanShift  = 1

	classMask = 0xC0
	kindMask  = 0x38
	chanMask  = 0x06
	errMask   = 0x01
	countMask = 0x3F
)

// Header is the decoded form of a header byte.
type Header struct {
	Class   FrameClass
	Kind    ResponseKind
	Channel uint8
	Error   bool
}

// EncodeHeader packs a Header into its wire byte.
// Out-of-range fields are masked to their bit width.
func EncodeHeader(h Header) byte {
	b := byte(h.Class&0x03) << classShift
	b |= byte(h.Kind&0x07) << kindShift
	b |= (h.Channel & 0x03) << chanShift
	if h.Error {
		b |= errMask
	}
	return b
}

// DecodeHeader unpacks a header byte. It never fails; whether the fields
// make sense for the pending request is up to the caller.
func DecodeHeader(b byte) Header {
	return Header{
		Class:   FrameClass((b & classMask) >> classShift),
		Kind:    ResponseKind((b & kindMask) >> kindShift),
		Channel: (b & chanMask) >> chanShift,
		Error:   b&errMask != 0,
	}
}

// ClassOf returns only the frame class of a header byte.
func ClassOf(b byte) FrameClass {
	return FrameClass((b & classMask) >> classShift)
}

// ByteCount returns the payload byte count carried by a Data header.
func ByteCount(b byte) uint8 {
	return b & countMask
}

// EncodeDataHeader builds the header byte of a Data frame.
func EncodeDataHeader(count uint8) byte {
	return byte(ClassData)<<classShift | count&countMask
}

func (h Header) String() string {
	switch h.Class {
	case ClassResponse:
		return fmt.Sprintf("%s/%s ch=%d err=%t", h.Class, h.Kind, h.Channel, h.Error)
	case ClassData, ClassHalt, ClassReserved:
		return h.Class.String()
	default:
		return fmt.Sprintf("header(%s)", h.Class)
	}
}
