package store

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
)

// marshalStrings converts a string list to canonical JSON TEXT for storage.
func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := codec.MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal list: %w", err)
	}
	return out, nil
}

func marshalAddresses(addrs []address.Address) (string, error) {
	values := make([]string, len(addrs))
	for i, a := range addrs {
		values[i] = a.String()
	}
	return marshalStrings(values)
}

func unmarshalAddresses(data string) ([]address.Address, error) {
	values, err := unmarshalStrings(data)
	if err != nil {
		return nil, err
	}
	out := make([]address.Address, len(values))
	for i, v := range values {
		if out[i], err = address.Parse(v); err != nil {
			return nil, fmt.Errorf("unmarshal signers: %w", err)
		}
	}
	return out, nil
}

// toInt64 guards the SQLite INTEGER range; the driver rejects uint64
// values with the high bit set.
func toInt64(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("lamports %d exceed storable range", v)
	}
	return int64(v), nil
}
