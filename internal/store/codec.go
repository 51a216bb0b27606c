package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeEmbedding packs an embedding into a little-endian float32 blob,
// one fixed-width column instead of the historical v1..vD fan-out.
func EncodeEmbedding(embedding []float32) []byte {
	buf := make([]byte, 4*len(embedding))
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

// DecodeEmbedding unpacks a blob produced by EncodeEmbedding.
func DecodeEmbedding(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(blob))
	}
	out := make([]float32, len(blob)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return out, nil
}
