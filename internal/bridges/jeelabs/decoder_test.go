package jeelabs

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoomNode(t *testing.T) {
	r, err := ParseFrame("OK 3 1 100 101 215 0")
	require.NoError(t, err)

	assert.Equal(t, "3", r.NodeID)
	assert.Equal(t, NodeTypeRoom, r.Type)
	assert.Equal(t, Values{
		{Name: FieldLight, Value: "100"},
		{Name: FieldHumidity, Value: "50"},
		{Name: FieldTemperature, Value: "21.5"},
		{Name: FieldMotion, Value: "1"},
		{Name: FieldBattery, Value: "0"},
	}, r.Values)
}

func TestDecode_RoomNodeLowBatteryAndNegativeTemperature(t *testing.T) {
	// c=244, d=7: raw 1012 -> -12 tenths, battery bit set.
	r, err := ParseFrame("OK 12 1 0 0 244 7")
	require.NoError(t, err)

	temp, _ := r.Values.Get(FieldTemperature)
	battery, _ := r.Values.Get(FieldBattery)
	assert.Equal(t, "-1.2", temp)
	assert.Equal(t, "1", battery)
}

func TestDecode_OutsideNode(t *testing.T) {
	r, err := ParseFrame("OK 7 2 1 2 3 4 5 6")
	require.NoError(t, err)

	assert.Equal(t, NodeTypeOutside, r.Type)
	assert.Equal(t, []string{FieldLux, FieldPressure, FieldTemperature}, r.Values.Names())
	assert.Equal(t, map[string]string{
		FieldLux:         "100992003", // LE 03 04 05 06
		FieldPressure:    "1009.03",   // same four bytes
		FieldTemperature: "51.3",      // LE 01 02 = 513
	}, r.Values.Map())
}

func TestDecode_UnsupportedNodeType(t *testing.T) {
	_, err := ParseFrame("OK 5 9 1 2 3")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedNodeType))
	assert.False(t, errors.Is(err, ErrFrameFormat))
}

func TestDecode_UnsupportedTypeCheckedBeforeFieldCount(t *testing.T) {
	_, err := ParseFrame("OK 5 0")
	assert.ErrorIs(t, err, ErrUnsupportedNodeType)
}

func TestDecode_FormatErrors(t *testing.T) {
	tests := []struct {
		name string
		line Frame
	}{
		{"missing fields", "OK 3 1 100"},
		{"extra room field", "OK 3 1 1 2 3 4 5"},
		{"short outside frame", "OK 3 2 1 2 3 4 5"},
		{"too few tokens", "OK 3"},
		{"marker only", "OK"},
		{"marker with suffix", "OKAY 3 1 1 2 3 4"},
		{"non-integer type", "OK 3 x 1 2 3 4"},
		{"non-integer byte", "OK 3 1 1 2 three 4"},
		{"byte above range", "OK 3 1 1 2 256 4"},
		{"negative byte", "OK 3 1 1 -2 3 4"},
		{"double space", "OK 3 1 1  2 3 4"},
		{"trailing space", "OK 3 1 1 2 3 4 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.line)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFrameFormat)

			var fe *FrameFormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, string(tt.line), fe.Line)
			assert.NotEmpty(t, fe.Reason)
		})
	}
}

func TestDecode_DecoderStaysUsableAfterError(t *testing.T) {
	d := NewDecoder()

	_, err := d.Decode("OK 3 1 100")
	require.Error(t, err)

	r, err := d.Decode("OK 1 1 10 20 30 40")
	require.NoError(t, err)
	assert.Equal(t, "1", r.NodeID)
}

func TestDecode_NodeIDPassedThrough(t *testing.T) {
	r, err := ParseFrame("OK node-a 1 1 2 3 4")
	require.NoError(t, err)
	assert.Equal(t, "node-a", r.NodeID)
}

func TestDecode_Idempotent(t *testing.T) {
	d := NewDecoder()
	line := Frame("OK 3 1 100 101 215 0")

	first, err := d.Decode(line)
	require.NoError(t, err)
	second, err := d.Decode(line)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDecoder_Supports(t *testing.T) {
	d := NewDecoder()

	assert.True(t, d.Supports(NodeTypeRoom))
	assert.True(t, d.Supports(NodeTypeOutside))
	assert.False(t, d.Supports(NodeType(9)))
}

func TestDecodeRoomNode_BitFields(t *testing.T) {
	for b := 0; b < 256; b++ {
		v := DecodeRoomNode(0, byte(b), 0, 0).Map()

		assert.Equal(t, strconv.Itoa(b&1), v[FieldMotion], "b=%d", b)
		assert.Equal(t, strconv.Itoa(b>>1), v[FieldHumidity], "b=%d", b)
	}

	for d := 0; d < 256; d++ {
		v := DecodeRoomNode(0, 0, 0, byte(d)).Map()
		assert.Equal(t, strconv.Itoa((d>>2)&1), v[FieldBattery], "d=%d", d)
	}
}

func TestDecodeRoomNode_TemperatureSignRecovery(t *testing.T) {
	for hi := 0; hi < 4; hi++ {
		for c := 0; c < 256; c++ {
			raw := hi<<8 | c
			want := raw
			if raw >= 512 {
				want = raw - 1024
			}
			require.GreaterOrEqual(t, want, -512)
			require.LessOrEqual(t, want, 511)

			// Upper bits of d must not leak into the temperature.
			got, _ := DecodeRoomNode(0, 0, byte(c), byte(hi|0xfc)).Get(FieldTemperature)
			assert.Equal(t, formatTenths(want), got, "raw=%d", raw)
		}
	}
}

func TestDecodeRoomNode_AlwaysFiveValues(t *testing.T) {
	v := DecodeRoomNode(255, 255, 255, 255)
	assert.Equal(t, []string{FieldLight, FieldHumidity, FieldTemperature, FieldMotion, FieldBattery}, v.Names())
}

// Single-digit and negative values do not come out as true decimals.
// These results are relied on downstream and are pinned here.
func TestFormatTenths(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{215, "21.5"},
		{30, "30.0"},
		{100, "10.0"},
		{511, "51.1"},
		{0, "0.0"},
		{5, "5.5"},
		{-5, "-5.5"},
		{-12, "-1.2"},
		{-123, "-1.3"},
		{-512, "-5.2"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTenths(tt.in), "formatTenths(%d)", tt.in)
	}
}

func TestFormatHundredths(t *testing.T) {
	tests := []struct {
		in   uint32
		want string
	}{
		{101325, "1013.25"},
		{99850, "9985.50"},
		{1013, "1013.13"},
		{7, "7.7"},
		{0, "0.0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatHundredths(tt.in), "formatHundredths(%d)", tt.in)
	}
}
