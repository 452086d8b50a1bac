// Package stream receives live sensor data from a streaming device. The
// device publishes CBOR-encoded records over a websocket; this package
// decodes them and fans them out to an observer, keeping only the most
// recent records when the consumer falls behind.
package stream

import "strings"

// DataType is a bitmask of sensor streams to subscribe to.
type DataType uint8

const (
	DataTypeRgb DataType = 1 << iota
	DataTypeSlam
	DataTypeEyeTrack
	DataTypeImu
	DataTypeMagneto
	DataTypeBaro
)

// DataTypeAll subscribes to every stream the device publishes.
const DataTypeAll = DataTypeRgb | DataTypeSlam | DataTypeEyeTrack | DataTypeImu | DataTypeMagneto | DataTypeBaro

var dataTypeNames = []struct {
	t    DataType
	name string
}{
	{DataTypeRgb, "rgb"},
	{DataTypeSlam, "slam"},
	{DataTypeEyeTrack, "eyetrack"},
	{DataTypeImu, "imu"},
	{DataTypeMagneto, "magneto"},
	{DataTypeBaro, "baro"},
}

// String renders the mask as a comma-separated list, which is also the wire
// format of the subscription request.
func (d DataType) String() string {
	var names []string
	for _, entry := range dataTypeNames {
		if d&entry.t != 0 {
			names = append(names, entry.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseDataTypes converts a comma-separated list back into a mask. Unknown
// names are reported, not ignored.
func ParseDataTypes(s string) (DataType, error) {
	var mask DataType

	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		found := false
		for _, entry := range dataTypeNames {
			if entry.name == name {
				mask |= entry.t
				found = true
				break
			}
		}
		if !found {
			return 0, &UnknownDataTypeError{Name: name}
		}
	}

	return mask, nil
}

// UnknownDataTypeError reports an unrecognized stream name.
type UnknownDataTypeError struct {
	Name string
}

func (e *UnknownDataTypeError) Error() string {
	return "unknown data type: " + e.Name
}

// Camera identifiers used in image records.
const (
	CameraRgb       = "camera-rgb"
	CameraSlamLeft  = "camera-slam-left"
	CameraSlamRight = "camera-slam-right"
	CameraEyeTrack  = "camera-et"
)

// ImageRecord is one camera frame from the stream. Data holds the encoded
// JPEG payload.
type ImageRecord struct {
	CameraID    string `cbor:"camera_id"`
	Seq         uint64 `cbor:"seq"`
	TimestampNS int64  `cbor:"timestamp_ns"`
	Width       int    `cbor:"width"`
	Height      int    `cbor:"height"`
	Data        []byte `cbor:"data"`
}

// IMUSample is a single inertial sample.
type IMUSample struct {
	TimestampNS int64      `cbor:"timestamp_ns"`
	Accel       [3]float64 `cbor:"accel_msec2"`
	Gyro        [3]float64 `cbor:"gyro_radsec"`
}

// IMUBatch is the per-message batch of samples from one IMU.
type IMUBatch struct {
	ImuIdx  int         `cbor:"imu_idx"`
	Samples []IMUSample `cbor:"samples"`
}

// MagnetoSample is a single magnetometer reading.
type MagnetoSample struct {
	TimestampNS int64      `cbor:"timestamp_ns"`
	Tesla       [3]float64 `cbor:"mag_tesla"`
}

// BaroSample is a single barometer reading.
type BaroSample struct {
	TimestampNS int64   `cbor:"timestamp_ns"`
	Pressure    float64 `cbor:"pressure"`
}
