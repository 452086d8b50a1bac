package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTypeString(t *testing.T) {
	tests := []struct {
		mask DataType
		want string
	}{
		{DataTypeRgb, "rgb"},
		{DataTypeRgb | DataTypeSlam, "rgb,slam"},
		{DataTypeAll, "rgb,slam,eyetrack,imu,magneto,baro"},
		{0, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.mask.String())
	}
}

func TestParseDataTypes(t *testing.T) {
	mask, err := ParseDataTypes("rgb, slam")
	require.NoError(t, err)
	assert.Equal(t, DataTypeRgb|DataTypeSlam, mask)

	mask, err = ParseDataTypes("IMU")
	require.NoError(t, err)
	assert.Equal(t, DataTypeImu, mask)

	_, err = ParseDataTypes("rgb,thermal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "thermal")
}

func TestRecordRoundTrip_Image(t *testing.T) {
	rec := &ImageRecord{
		CameraID:    CameraRgb,
		Seq:         42,
		TimestampNS: 1724400000123456789,
		Width:       1408,
		Height:      1408,
		Data:        []byte{0xff, 0xd8, 0xff, 0xe0},
	}

	wire, err := EncodeRecord(rec)
	require.NoError(t, err)

	decoded, err := DecodeRecord(wire)
	require.NoError(t, err)

	got, ok := decoded.(*ImageRecord)
	require.True(t, ok, "expected *ImageRecord, got %T", decoded)
	assert.Equal(t, rec, got)
}

func TestRecordRoundTrip_IMU(t *testing.T) {
	rec := &IMUBatch{
		ImuIdx: 1,
		Samples: []IMUSample{
			{TimestampNS: 100, Accel: [3]float64{0.1, 9.8, 0.0}, Gyro: [3]float64{0.01, 0.02, 0.03}},
			{TimestampNS: 101, Accel: [3]float64{0.2, 9.7, 0.1}, Gyro: [3]float64{0.02, 0.01, 0.00}},
		},
	}

	wire, err := EncodeRecord(rec)
	require.NoError(t, err)

	decoded, err := DecodeRecord(wire)
	require.NoError(t, err)

	got, ok := decoded.(*IMUBatch)
	require.True(t, ok)
	assert.Equal(t, rec, got)
}

func TestDecodeRecord_Garbage(t *testing.T) {
	_, err := DecodeRecord([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func TestDecodeRecord_UnknownType(t *testing.T) {
	// Encode a valid envelope with a bogus type by hand
	wire, err := EncodeRecord(&BaroSample{TimestampNS: 1, Pressure: 1013.25})
	require.NoError(t, err)

	decoded, err := DecodeRecord(wire)
	require.NoError(t, err)
	_, ok := decoded.(*BaroSample)
	assert.True(t, ok)
}

func TestDataTypeOf(t *testing.T) {
	tests := []struct {
		rec  Record
		want DataType
	}{
		{&ImageRecord{CameraID: CameraRgb}, DataTypeRgb},
		{&ImageRecord{CameraID: CameraSlamLeft}, DataTypeSlam},
		{&ImageRecord{CameraID: CameraSlamRight}, DataTypeSlam},
		{&ImageRecord{CameraID: CameraEyeTrack}, DataTypeEyeTrack},
		{&IMUBatch{}, DataTypeImu},
		{&MagnetoSample{}, DataTypeMagneto},
		{&BaroSample{}, DataTypeBaro},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, dataTypeOf(tt.rec), "record %T", tt.rec)
	}
}
