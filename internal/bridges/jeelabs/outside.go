package jeelabs

import (
	"encoding/binary"
	"strconv"
)

// outsideNodeFields is the number of data bytes in an outside-node frame.
const outsideNodeFields = 6

// Outside node value names, in emission order. Temperature is shared with
// the Roomnode.
const (
	FieldLux      = "Lux"
	FieldPressure = "Pressure"
)

// DecodeOutsideNode decodes the six data bytes of an outside-node frame.
//
//	f[0..1]  temperature from the pressure chip, little-endian, tenths
//	f[2..5]  lux, little-endian uint32
//	last 4   pressure, little-endian uint32, hundredths
//
// With exactly six bytes the lux and pressure words are the same bytes.
func DecodeOutsideNode(f [6]byte) Values {
	temperature := int(binary.LittleEndian.Uint16(f[0:2]))
	lux := binary.LittleEndian.Uint32(f[2:6])
	pressure := binary.LittleEndian.Uint32(f[len(f)-4:])

	return Values{
		{Name: FieldLux, Value: strconv.FormatUint(uint64(lux), 10)},
		{Name: FieldPressure, Value: formatHundredths(pressure)},
		{Name: FieldTemperature, Value: formatTenths(temperature)},
	}
}
