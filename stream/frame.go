package stream

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Record type tags on the wire.
const (
	recordImage   = "image"
	recordImu     = "imu"
	recordMagneto = "magneto"
	recordBaro    = "baro"
)

// envelope is the outer CBOR message framing every record.
type envelope struct {
	Type    string          `cbor:"type"`
	Payload cbor.RawMessage `cbor:"payload"`
}

// Record is any decoded stream record: *ImageRecord, *IMUBatch,
// *MagnetoSample or *BaroSample.
type Record any

// DecodeRecord decodes one websocket message into its record type.
func DecodeRecord(message []byte) (Record, error) {
	var env envelope
	if err := cbor.Unmarshal(message, &env); err != nil {
		return nil, fmt.Errorf("failed to decode stream envelope: %w", err)
	}

	switch env.Type {
	case recordImage:
		var rec ImageRecord
		if err := cbor.Unmarshal(env.Payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode image record: %w", err)
		}
		return &rec, nil
	case recordImu:
		var rec IMUBatch
		if err := cbor.Unmarshal(env.Payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode imu batch: %w", err)
		}
		return &rec, nil
	case recordMagneto:
		var rec MagnetoSample
		if err := cbor.Unmarshal(env.Payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode magnetometer sample: %w", err)
		}
		return &rec, nil
	case recordBaro:
		var rec BaroSample
		if err := cbor.Unmarshal(env.Payload, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode barometer sample: %w", err)
		}
		return &rec, nil
	default:
		return nil, fmt.Errorf("unknown stream record type %q", env.Type)
	}
}

// EncodeRecord wraps a record in its envelope, used by the stream simulator
// and tests.
func EncodeRecord(rec Record) ([]byte, error) {
	var recordType string
	switch rec.(type) {
	case *ImageRecord, ImageRecord:
		recordType = recordImage
	case *IMUBatch, IMUBatch:
		recordType = recordImu
	case *MagnetoSample, MagnetoSample:
		recordType = recordMagneto
	case *BaroSample, BaroSample:
		recordType = recordBaro
	default:
		return nil, fmt.Errorf("unknown record type %T", rec)
	}

	payload, err := cbor.Marshal(rec)
	if err != nil {
		return nil, err
	}

	return cbor.Marshal(envelope{Type: recordType, Payload: payload})
}

// dataTypeOf maps a record to its subscription data type for queueing.
func dataTypeOf(rec Record) DataType {
	switch r := rec.(type) {
	case *ImageRecord:
		switch r.CameraID {
		case CameraSlamLeft, CameraSlamRight:
			return DataTypeSlam
		case CameraEyeTrack:
			return DataTypeEyeTrack
		default:
			return DataTypeRgb
		}
	case *IMUBatch:
		return DataTypeImu
	case *MagnetoSample:
		return DataTypeMagneto
	case *BaroSample:
		return DataTypeBaro
	default:
		return 0
	}
}
