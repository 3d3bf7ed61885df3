package relational

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// ValueType represents the type of a value
type ValueType byte

const (
	TypeNull ValueType = iota
	TypeString
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeBytes
	TypeUint
)

// Type returns the type of a value
func Type(v Value) (ValueType, error) {
	switch val := v.(type) {
	case nil:
		return TypeNull, nil
	case string:
		return TypeString, nil
	case int, int32, int64:
		return TypeInt, nil
	case uint64:
		return TypeUint, nil
	case float64:
		return TypeFloat, nil
	case bool:
		return TypeBool, nil
	case time.Time:
		return TypeTime, nil
	case []byte:
		return TypeBytes, nil
	default:
		return 0, fmt.Errorf("unknown value type: %T", val)
	}
}

// ValueBytes serializes a value to bytes
func ValueBytes(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(val), nil
	case int:
		return int64Bytes(int64(val)), nil
	case int32:
		return int64Bytes(int64(val)), nil
	case int64:
		return int64Bytes(val), nil
	case uint64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, val)
		return buf, nil
	case float64:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, math.Float64bits(val))
		return buf, nil
	case bool:
		if val {
			return []byte{1}, nil
		}
		return []byte{0}, nil
	case time.Time:
		return int64Bytes(val.UnixNano()), nil
	case []byte:
		return val, nil
	default:
		return nil, fmt.Errorf("cannot encode value type: %T", v)
	}
}

func int64Bytes(n int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

// ValueFromBytes deserializes a value from bytes
func ValueFromBytes(vType ValueType, data []byte) (Value, error) {
	switch vType {
	case TypeNull:
		return nil, nil
	case TypeString:
		return string(data), nil
	case TypeInt:
		if len(data) != 8 {
			return nil, fmt.Errorf("int value must be 8 bytes, got %d", len(data))
		}
		return int64(binary.BigEndian.Uint64(data)), nil
	case TypeUint:
		if len(data) != 8 {
			return nil, fmt.Errorf("uint value must be 8 bytes, got %d", len(data))
		}
		return binary.BigEndian.Uint64(data), nil
	case TypeFloat:
		if len(data) != 8 {
			return nil, fmt.Errorf("float value must be 8 bytes, got %d", len(data))
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data)), nil
	case TypeBool:
		if len(data) != 1 {
			return nil, fmt.Errorf("bool value must be 1 byte, got %d", len(data))
		}
		return data[0] != 0, nil
	case TypeTime:
		if len(data) != 8 {
			return nil, fmt.Errorf("time value must be 8 bytes, got %d", len(data))
		}
		nanos := int64(binary.BigEndian.Uint64(data))
		return time.Unix(0, nanos), nil
	case TypeBytes:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	default:
		return nil, fmt.Errorf("unknown value type: %v", vType)
	}
}

// EncodeRow serializes a row as a field count followed by
// (type, length, payload) triples.
func EncodeRow(row Row) ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(row)))
	for i, v := range row {
		vType, err := Type(v)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		data, err := ValueBytes(v)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		buf = append(buf, byte(vType))
		buf = binary.AppendUvarint(buf, uint64(len(data)))
		buf = append(buf, data...)
	}
	return buf, nil
}

// DecodeRow is the inverse of EncodeRow. Integers decode as int64.
func DecodeRow(data []byte) (Row, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, fmt.Errorf("invalid row header")
	}
	data = data[n:]
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("row claims %d fields but only %d bytes remain", count, len(data))
	}

	row := make(Row, count)
	for i := range row {
		if len(data) == 0 {
			return nil, fmt.Errorf("field %d: truncated row", i)
		}
		vType := ValueType(data[0])
		size, n := binary.Uvarint(data[1:])
		if n <= 0 {
			return nil, fmt.Errorf("field %d: invalid length", i)
		}
		start := 1 + n
		if uint64(len(data)-start) < size {
			return nil, fmt.Errorf("field %d: truncated payload", i)
		}
		end := start + int(size)
		v, err := ValueFromBytes(vType, data[start:end])
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		row[i] = v
		data = data[end:]
	}
	return row, nil
}
