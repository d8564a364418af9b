package jeelabs

import "strconv"

// roomNodeFields is the number of data bytes in a Roomnode frame.
const roomNodeFields = 4

// Roomnode value names, in emission order.
const (
	FieldLight       = "Light"
	FieldHumidity    = "Humidity"
	FieldTemperature = "Temperature"
	FieldMotion      = "Motion"
	FieldBattery     = "Battery"
)

// DecodeRoomNode decodes the four data bytes of a Roomnode frame.
//
// Bit layout (from the Roomnode sketch):
//
//	a        light level 0..255
//	b bit 0  motion
//	b 1..7   relative humidity
//	c, d 0-1 temperature, 10-bit two's complement, tenths of a degree
//	d bit 2  low battery
func DecodeRoomNode(a, b, c, d byte) Values {
	light := int(a)
	motion := int(b & 1)
	humidity := int(b >> 1)
	raw := 256*int(d&3) + int(c)
	temperature := (raw ^ 512) - 512
	battery := int((d >> 2) & 1)

	return Values{
		{Name: FieldLight, Value: strconv.Itoa(light)},
		{Name: FieldHumidity, Value: strconv.Itoa(humidity)},
		{Name: FieldTemperature, Value: formatTenths(temperature)},
		{Name: FieldMotion, Value: strconv.Itoa(motion)},
		{Name: FieldBattery, Value: strconv.Itoa(battery)},
	}
}
