// Package fitenc implements the FIT Encoder (C9): a hand-rolled binary FIT
// workout file writer. The byte layout is assembled by hand rather than
// through github.com/muktihari/fit's high-level message encoder because
// spec compliance here hinges on exact field numbering per message — see
// DESIGN.md for why a generic encoder would hide the very defects this
// package guards against. Grounded in
// the teacher's (now-absorbed and removed) src/go/pkg/domain/file_generators/fit.go's byte-assembly pattern and
// original_source/backend/adapters/blocks_to_fit.py's message/field table.
package fitenc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/supergeri/workoutcanonicalmapper/internal/compiler"
	"github.com/supergeri/workoutcanonicalmapper/internal/sport"
)

const (
	globalFileID        = 0
	globalFileCreator    = 49
	globalWorkout        = 26
	globalWorkoutStep    = 27
	globalExerciseTitle  = 264
)

const (
	localFileID       = 0
	localFileCreator  = 1
	localWorkout      = 2
	localStepExercise = 3
	localStepRest     = 4
	localStepRepeat   = 5
	localExerciseTitle = 6
)

// FIT base types, per the FIT binary protocol's type-byte encoding.
const (
	baseTypeEnum    = 0x00
	baseTypeUint8   = 0x02
	baseTypeUint8z  = 0x0A
	baseTypeUint16  = 0x84
	baseTypeUint16z = 0x8B
	baseTypeUint32  = 0x86
	baseTypeUint32z = 0x8C
	baseTypeString  = 0x07
)

// DurationType enum values on the wire (FIT SDK wkt_step_duration).
const (
	wireDurationTime     = 0
	wireDurationDistance = 1
	wireDurationOpen     = 5
	wireDurationRepeat   = 6  // REPEAT_UNTIL_STEPS_CMPLT
	wireDurationReps     = 29 // REPS
)

// target_type enum values. OPEN (0) is the only value this encoder ever
// emits; HEART_RATE (1) is a documented historical defect, never a valid
// alternative.
const wireTargetOpen = 0

// intensity enum values (FIT SDK wkt_step_intensity).
const (
	wireIntensityActive = 0
	wireIntensityRest   = 1
	wireIntensityWarmup = 2
)

const maxNameLen = 31 // + trailing NUL = 32-byte field

// Options controls workout-level metadata not carried on Step.
type Options struct {
	WorkoutName string
	Sport       sport.Inference
	Manufacturer uint16 // typedef.ManufacturerDevelopment == 255 by default
	Product      uint16
	TimeCreated  uint32 // FIT epoch seconds (seconds since 1989-12-31 UTC)
}

// Encode produces a complete FIT workout file: 14-byte header, definition
// and data records, and a trailing CRC over the data region. It rejects a
// workout with zero compiled steps (spec.md §4.9).
func Encode(steps []compiler.Step, opts Options) ([]byte, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("fitenc: cannot encode a workout with zero steps")
	}

	data, err := encodeDataRegion(steps, opts)
	if err != nil {
		return nil, err
	}

	header := buildHeader(len(data))

	out := make([]byte, 0, len(header)+len(data)+2)
	out = append(out, header...)
	out = append(out, data...)

	dataCRC := crc16(0, data)
	var crcBuf [2]byte
	binary.LittleEndian.PutUint16(crcBuf[:], dataCRC)
	out = append(out, crcBuf[:]...)

	return out, nil
}

// buildHeader assembles the 14-byte FIT header, including the header's
// own trailing CRC-16 over the first 12 bytes.
func buildHeader(dataSize int) []byte {
	h := make([]byte, 14)
	h[0] = 14          // header size
	h[1] = 0x10        // protocol version
	binary.LittleEndian.PutUint16(h[2:4], 0x527D) // profile version
	binary.LittleEndian.PutUint32(h[4:8], uint32(dataSize))
	copy(h[8:12], ".FIT")
	headerCRC := crc16(0, h[:12])
	binary.LittleEndian.PutUint16(h[12:14], headerCRC)
	return h
}

func encodeDataRegion(steps []compiler.Step, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	writeFileIDDefinition(&buf)
	writeFileCreatorDefinition(&buf)
	writeWorkoutDefinition(&buf)
	writeStepExerciseDefinition(&buf)
	writeStepRestDefinition(&buf)
	writeStepRepeatDefinition(&buf)
	writeExerciseTitleDefinition(&buf)

	writeFileIDData(&buf, opts)
	writeFileCreatorData(&buf)
	writeWorkoutData(&buf, opts, len(steps))

	titled := make(map[titleKey]bool)
	for i, s := range steps {
		if err := writeStepData(&buf, s, i); err != nil {
			return nil, err
		}
		if s.Kind == compiler.KindExercise || s.Kind == compiler.KindWarmup {
			key := titleKey{category: int(s.CategoryID), nameID: s.FitExerciseNameID}
			if !titled[key] {
				titled[key] = true
				writeExerciseTitleData(&buf, i, s)
			}
		}
	}

	return buf.Bytes(), nil
}

type titleKey struct {
	category int
	nameID   int
}

// --- definitions ---

type fieldDef struct {
	num      byte
	size     byte
	baseType byte
}

func writeDefinition(buf *bytes.Buffer, localType byte, globalMsg uint16, fields []fieldDef) {
	buf.WriteByte(0x40 | localType) // definition record header
	buf.WriteByte(0)                // reserved
	buf.WriteByte(0)                // architecture: 0 = little endian
	var gm [2]byte
	binary.LittleEndian.PutUint16(gm[:], globalMsg)
	buf.Write(gm[:])
	buf.WriteByte(byte(len(fields)))
	for _, f := range fields {
		buf.WriteByte(f.num)
		buf.WriteByte(f.size)
		buf.WriteByte(f.baseType)
	}
}

func writeFileIDDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localFileID, globalFileID, []fieldDef{
		{0, 1, baseTypeEnum},
		{1, 2, baseTypeUint16},
		{2, 2, baseTypeUint16},
		{3, 4, baseTypeUint32z},
		{4, 4, baseTypeUint32},
	})
}

func writeFileCreatorDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localFileCreator, globalFileCreator, []fieldDef{
		{0, 2, baseTypeUint16}, // software_version
		{1, 1, baseTypeUint8},  // hardware_version
	})
}

func writeWorkoutDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localWorkout, globalWorkout, []fieldDef{
		{4, 1, baseTypeEnum},      // sport
		{5, 4, baseTypeUint32z},   // capabilities
		{6, 2, baseTypeUint16},    // num_valid_steps
		{8, 32, baseTypeString},   // wkt_name
		{11, 1, baseTypeEnum},     // sub_sport
	})
}

func writeStepExerciseDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localStepExercise, globalWorkoutStep, []fieldDef{
		{254, 2, baseTypeUint16}, // message_index
		{2, 4, baseTypeUint32},   // duration_value
		{1, 1, baseTypeEnum},     // duration_type
		{3, 1, baseTypeEnum},     // target_type
		{7, 1, baseTypeEnum},     // intensity
		{10, 2, baseTypeUint16},  // exercise_category
		{11, 2, baseTypeUint16},  // exercise_name
	})
}

func writeStepRestDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localStepRest, globalWorkoutStep, []fieldDef{
		{254, 2, baseTypeUint16},
		{2, 4, baseTypeUint32},
		{1, 1, baseTypeEnum},
		{3, 1, baseTypeEnum},
		{7, 1, baseTypeEnum},
	})
}

func writeStepRepeatDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localStepRepeat, globalWorkoutStep, []fieldDef{
		{254, 2, baseTypeUint16}, // message_index
		{2, 4, baseTypeUint32},   // duration_value = target step index
		{1, 1, baseTypeEnum},     // duration_type = 6 (REPEAT_UNTIL_STEPS_CMPLT)
		{4, 4, baseTypeUint32},   // target_value = repeat count
	})
}

func writeExerciseTitleDefinition(buf *bytes.Buffer) {
	writeDefinition(buf, localExerciseTitle, globalExerciseTitle, []fieldDef{
		{254, 2, baseTypeUint16},
		{10, 2, baseTypeUint16},
		{11, 2, baseTypeUint16},
		{2, 32, baseTypeString},
	})
}

// --- data records ---

func writeDataHeader(buf *bytes.Buffer, localType byte) {
	buf.WriteByte(localType) // bit6=0 => data record, bits0-3 local type
}

func writeFileIDData(buf *bytes.Buffer, opts Options) {
	writeDataHeader(buf, localFileID)
	buf.WriteByte(5) // type: 5 = workout
	writeU16(buf, nz16(opts.Manufacturer, 255))
	writeU16(buf, opts.Product)
	writeU32(buf, 0) // serial number, u32z: 0 means "invalid/unset"
	writeU32(buf, opts.TimeCreated)
}

func writeFileCreatorData(buf *bytes.Buffer) {
	writeDataHeader(buf, localFileCreator)
	writeU16(buf, 100) // software_version
	buf.WriteByte(0)   // hardware_version
}

func writeWorkoutData(buf *bytes.Buffer, opts Options, numSteps int) {
	writeDataHeader(buf, localWorkout)
	buf.WriteByte(byte(opts.Sport.Sport))
	writeU32(buf, 0) // capabilities, u32z: 0 = unset
	writeU16(buf, uint16(numSteps))
	buf.Write(fitString(opts.WorkoutName, maxNameLen+1))
	buf.WriteByte(byte(opts.Sport.SubSport))
}

func writeStepData(buf *bytes.Buffer, s compiler.Step, index int) error {
	switch s.Kind {
	case compiler.KindExercise, compiler.KindWarmup:
		writeDataHeader(buf, localStepExercise)
		writeU16(buf, uint16(index))
		writeU32(buf, uint32(durationValue(s)))
		buf.WriteByte(byte(durationTypeWire(s.DurationType)))
		buf.WriteByte(wireTargetOpen)
		buf.WriteByte(byte(intensityWire(s.Intensity)))
		writeU16(buf, uint16(s.CategoryID))
		writeU16(buf, uint16(s.FitExerciseNameID))
		return nil
	case compiler.KindRest:
		writeDataHeader(buf, localStepRest)
		writeU16(buf, uint16(index))
		writeU32(buf, uint32(durationValue(s)))
		buf.WriteByte(byte(durationTypeWire(s.DurationType)))
		buf.WriteByte(wireTargetOpen)
		buf.WriteByte(wireIntensityRest)
		return nil
	case compiler.KindRepeat:
		writeDataHeader(buf, localStepRepeat)
		writeU16(buf, uint16(index))
		writeU32(buf, uint32(s.RepeatTargetIndex))
		buf.WriteByte(wireDurationRepeat)
		writeU32(buf, uint32(s.RepeatCount))
		return nil
	default:
		return fmt.Errorf("fitenc: unknown step kind %v at index %d", s.Kind, index)
	}
}

func writeExerciseTitleData(buf *bytes.Buffer, index int, s compiler.Step) {
	writeDataHeader(buf, localExerciseTitle)
	writeU16(buf, uint16(index))
	writeU16(buf, uint16(s.CategoryID))
	writeU16(buf, uint16(s.FitExerciseNameID))
	buf.Write(fitString(s.DisplayName, 32))
}

func durationValue(s compiler.Step) int {
	if s.DurationType == compiler.DurationOpen {
		return 0
	}
	return s.DurationValue
}

func durationTypeWire(dt compiler.DurationType) int {
	switch dt {
	case compiler.DurationTimeMS:
		return wireDurationTime
	case compiler.DurationDistanceCM:
		return wireDurationDistance
	case compiler.DurationReps:
		return wireDurationReps
	default:
		return wireDurationOpen
	}
}

func intensityWire(i compiler.Intensity) int {
	switch i {
	case compiler.IntensityRest:
		return wireIntensityRest
	case compiler.IntensityWarmup:
		return wireIntensityWarmup
	default:
		return wireIntensityActive
	}
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func nz16(v, fallback uint16) uint16 {
	if v == 0 {
		return fallback
	}
	return v
}

// fitString truncates s to size-1 bytes and pads with NUL to exactly
// size bytes, matching the workout name's "truncated to 31 characters +
// NUL" rule from spec.md §4.9.
func fitString(s string, size int) []byte {
	out := make([]byte, size)
	max := size - 1
	if len(s) < max {
		max = len(s)
	}
	copy(out, s[:max])
	return out
}

// --- CRC-16 ---

var crcTable = [16]uint16{
	0x0000, 0xCC01, 0xD801, 0x1400, 0xF001, 0x3C00, 0x2800, 0xE401,
	0xA001, 0x6C00, 0x7800, 0xB401, 0x5000, 0x9C01, 0x8801, 0x4400,
}

// crc16 computes the FIT protocol's CRC-16 over data, starting from seed
// (pass 0 for a fresh computation). It processes each byte as two nibbles
// through the documented 16-entry table, per the FIT SDK's CRC appendix.
func crc16(seed uint16, data []byte) uint16 {
	crc := seed
	for _, b := range data {
		tmp := crcTable[crc&0xF]
		crc = (crc >> 4) & 0x0FFF
		crc = crc ^ tmp ^ crcTable[b&0xF]

		tmp = crcTable[crc&0xF]
		crc = (crc >> 4) & 0x0FFF
		crc = crc ^ tmp ^ crcTable[(b>>4)&0xF]
	}
	return crc
}
