package ticsync

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
)

// StabilityThresholdNS is the largest acceptable offset between a client
// sample and its nearest server sample: 1 millisecond.
const StabilityThresholdNS = 1_000_000

// Sample is one exported IMU row. The CSV schema is
// serial,timestamp_ns,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z,mag_x,mag_y,mag_z.
type Sample struct {
	Serial      string
	TimestampNS int64
	Accel       [3]float64
	Gyro        [3]float64
	Mag         [3]float64
}

const csvColumns = 11

var csvHeader = []string{
	"serial", "timestamp_ns",
	"accel_x", "accel_y", "accel_z",
	"gyro_x", "gyro_y", "gyro_z",
	"mag_x", "mag_y", "mag_z",
}

// LoadSamples reads an exported IMU CSV. A header row is detected and
// skipped. Samples come back sorted by timestamp.
func LoadSamples(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open samples file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = csvColumns

	var samples []Sample
	for line := 1; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if line == 1 && row[0] == "serial" {
			continue
		}

		sample, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		samples = append(samples, sample)
	}

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].TimestampNS < samples[j].TimestampNS
	})
	return samples, nil
}

func parseRow(row []string) (Sample, error) {
	var sample Sample
	sample.Serial = row[0]

	ts, err := strconv.ParseInt(row[1], 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("bad timestamp %q: %w", row[1], err)
	}
	sample.TimestampNS = ts

	values := make([]float64, 0, 9)
	for _, field := range row[2:] {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Sample{}, fmt.Errorf("bad value %q: %w", field, err)
		}
		values = append(values, v)
	}
	copy(sample.Accel[:], values[0:3])
	copy(sample.Gyro[:], values[3:6])
	copy(sample.Mag[:], values[6:9])

	return sample, nil
}

// Report is the sync verdict for one client against the server timeline.
type Report struct {
	Serial       string
	Samples      int
	MeanOffsetNS float64
	StdDevNS     float64
	MaxOffsetNS  int64
	Stable       bool
}

func (r Report) String() string {
	verdict := "STABLE"
	if !r.Stable {
		verdict = "UNSTABLE"
	}
	return fmt.Sprintf("%s: %s (%d samples, mean offset %.0f ns, stddev %.0f ns, max %d ns)",
		r.Serial, verdict, r.Samples, r.MeanOffsetNS, r.StdDevNS, r.MaxOffsetNS)
}

// Verify pairs each client sample to the nearest server sample and scores the
// timestamp offsets. A client is stable when its largest offset stays under
// StabilityThresholdNS.
func Verify(server, client []Sample) (Report, error) {
	if len(server) == 0 {
		return Report{}, fmt.Errorf("no server samples to verify against")
	}
	if len(client) == 0 {
		return Report{}, fmt.Errorf("no client samples")
	}

	serverTS := make([]int64, len(server))
	for i, s := range server {
		serverTS[i] = s.TimestampNS
	}
	sort.Slice(serverTS, func(i, j int) bool { return serverTS[i] < serverTS[j] })

	offsets := make([]float64, 0, len(client))
	var maxOffset int64
	for _, sample := range client {
		offset := nearestOffset(serverTS, sample.TimestampNS)
		offsets = append(offsets, float64(offset))
		if offset > maxOffset {
			maxOffset = offset
		}
	}

	mean, std := stat.MeanStdDev(offsets, nil)
	if len(offsets) == 1 {
		std = 0
	}

	return Report{
		Serial:       client[0].Serial,
		Samples:      len(client),
		MeanOffsetNS: mean,
		StdDevNS:     std,
		MaxOffsetNS:  maxOffset,
		Stable:       maxOffset < StabilityThresholdNS,
	}, nil
}

// nearestOffset returns the absolute distance from ts to the closest server
// timestamp. serverTS must be sorted.
func nearestOffset(serverTS []int64, ts int64) int64 {
	i := sort.Search(len(serverTS), func(i int) bool { return serverTS[i] >= ts })

	best := int64(-1)
	if i < len(serverTS) {
		best = serverTS[i] - ts
	}
	if i > 0 {
		if d := ts - serverTS[i-1]; best < 0 || d < best {
			best = d
		}
	}
	return best
}

// ExportMerged writes server and client samples into one CSV ordered by
// timestamp, for plotting alignment externally.
func ExportMerged(path string, groups ...[]Sample) error {
	var merged []Sample
	for _, samples := range groups {
		merged = append(merged, samples...)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].TimestampNS < merged[j].TimestampNS
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create merged export: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, s := range merged {
		row := []string{
			s.Serial,
			strconv.FormatInt(s.TimestampNS, 10),
			formatFloat(s.Accel[0]), formatFloat(s.Accel[1]), formatFloat(s.Accel[2]),
			formatFloat(s.Gyro[0]), formatFloat(s.Gyro[1]), formatFloat(s.Gyro[2]),
			formatFloat(s.Mag[0]), formatFloat(s.Mag[1]), formatFloat(s.Mag[2]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
