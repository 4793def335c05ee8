package api

import (
	"encoding/hex"
	"time"
)

func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

func encodeHexAll(chunks [][]byte) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = hex.EncodeToString(c)
	}
	return out
}

func nowUnix() int64 {
	return time.Now().Unix()
}
