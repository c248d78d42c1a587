package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// wavHeader is the canonical 44-byte header for mono 16-bit PCM
type wavHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32
}

// WAVInfo describes the format of a RIFF/WAVE container
type WAVInfo struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	AudioFormat   int
	DataOffset    int
	DataSize      int
}

// EncodeWAV encodes mono PCM-16 samples into a WAV container
func EncodeWAV(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio samples")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	dataSize := uint32(len(samples) * 2)
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   1,
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * 2,
		BlockAlign:    2,
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseWAV walks the RIFF chunks and returns the format of the container.
// Chunks other than "fmt " and "data" (LIST, fact, ...) are skipped.
func ParseWAV(data []byte) (*WAVInfo, error) {
	if len(data) < 12 {
		return nil, errors.New("WAV data too short to be a valid RIFF file")
	}
	if string(data[0:4]) != "RIFF" {
		return nil, errors.New("invalid WAV file: missing RIFF header")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, errors.New("invalid WAV file: missing WAVE format")
	}

	var info WAVInfo
	foundFmt := false

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || offset+8+16 > len(data) {
				return nil, errors.New("invalid WAV file: truncated fmt chunk")
			}
			f := data[offset+8:]
			info.AudioFormat = int(binary.LittleEndian.Uint16(f[0:2]))
			info.Channels = int(binary.LittleEndian.Uint16(f[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(f[14:16]))
			foundFmt = true
		case "data":
			if !foundFmt {
				return nil, errors.New("invalid WAV file: data chunk before fmt chunk")
			}
			info.DataOffset = offset + 8
			info.DataSize = chunkSize
			// Streaming writers leave the size unset; clamp to what is present
			if info.DataOffset+info.DataSize > len(data) || info.DataSize == 0 {
				info.DataSize = len(data) - info.DataOffset
			}
			return &info, nil
		}

		// Chunks are word-aligned
		offset += 8 + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return nil, errors.New("invalid WAV file: missing data chunk")
}

// DecodeWAV decodes a mono 16-bit PCM WAV container to samples and sample rate
func DecodeWAV(data []byte) ([]int16, int, error) {
	info, err := ParseWAV(data)
	if err != nil {
		return nil, 0, err
	}
	if info.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", info.AudioFormat)
	}
	if info.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth: %d (only 16-bit is supported)", info.BitsPerSample)
	}
	if info.Channels != 1 {
		return nil, 0, fmt.Errorf("unsupported channel count: %d (only mono is supported)", info.Channels)
	}

	pcm := data[info.DataOffset : info.DataOffset+info.DataSize]
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}
	samples, err := BytesToSamples(pcm)
	if err != nil {
		return nil, 0, err
	}
	return samples, info.SampleRate, nil
}

// WriteWAVFile encodes samples and writes them to path, replacing any existing file.
// The file is written to a temporary sibling first so readers never see a partial file.
func WriteWAVFile(path string, samples []int16, sampleRate int) error {
	data, err := EncodeWAV(samples, sampleRate)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temporary file next to path and renames it into place
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
