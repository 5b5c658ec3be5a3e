// Package audio converts raw speech bytes to WAV and measures the result.
// Speech backends return different encodings; normalizing to WAV up front
// gives the briefing pipeline a single decode path for duration math.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	bitDepth = 16
	channels = 1
)

// IsWAV reports whether the bytes already carry a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE"))
}

// PCMToWAV wraps raw 16-bit little-endian mono PCM in a WAV container.
func PCMToWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, errors.New("empty pcm payload")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if len(pcm)%2 != 0 {
		pcm = pcm[:len(pcm)-1]
	}

	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
	}

	buf := &seekableBuffer{}
	encoder := wav.NewEncoder(buf, sampleRate, bitDepth, channels, 1)
	if err := encoder.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           samples,
	}); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return buf.data, nil
}

// Duration decodes a WAV payload and returns its playback length.
func Duration(data []byte) (time.Duration, error) {
	if len(data) == 0 {
		return 0, errors.New("empty audio payload")
	}
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return 0, errors.New("not a valid wav payload")
	}
	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("measure wav duration: %w", err)
	}
	return duration, nil
}

// seekableBuffer adapts an in-memory byte slice to the io.WriteSeeker the
// wav encoder needs for patching header sizes after the fact.
type seekableBuffer struct {
	data []byte
	pos  int
}

func (b *seekableBuffer) Write(p []byte) (int, error) {
	if b.pos+len(p) > len(b.data) {
		grown := make([]byte, b.pos+len(p))
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = b.pos + int(offset)
	case io.SeekEnd:
		next = len(b.data) + int(offset)
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = next
	return int64(next), nil
}
