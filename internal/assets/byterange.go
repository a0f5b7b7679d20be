package assets

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRange 表示 Range 头格式错误或越界，协议层据此返回 416。
var ErrInvalidRange = errors.New("invalid byte range")

// ByteRange is a fully resolved, inclusive byte window into a resource of
// known length. Parsing leaves no symbolic "to end" state behind.
type ByteRange struct {
	Start int
	End   int
}

// String renders the range the way it appears inside a Content-Range header.
func (r ByteRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int {
	return r.End - r.Start + 1
}

// ParseRangeHeader parses a Range header value against the resource length.
// The header must use the bytes unit and carry one or more comma separated
// specs of the form "start-end", "start-" or "-suffixLength". Non-numeric,
// out-of-bound or empty specs fail with ErrInvalidRange; resolved ranges are
// returned in header order.
func ParseRangeHeader(header string, length int) ([]ByteRange, error) {
	unit, rawSpecs, ok := strings.Cut(header, "=")
	if !ok || strings.TrimSpace(unit) != "bytes" {
		return nil, ErrInvalidRange
	}

	specs := strings.Split(rawSpecs, ",")
	ranges := make([]ByteRange, 0, len(specs))
	for _, spec := range specs {
		r, err := resolveRangeSpec(strings.TrimSpace(spec), length)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, ErrInvalidRange
	}
	return ranges, nil
}

// resolveRangeSpec 将单个 spec 解析为闭区间并做边界检查。
func resolveRangeSpec(spec string, length int) (ByteRange, error) {
	start, end := -1, -1

	switch {
	case spec == "" || spec == "-":
		return ByteRange{}, ErrInvalidRange

	case strings.HasPrefix(spec, "-"):
		// suffix form: the last N bytes
		n, err := strconv.Atoi(spec[1:])
		if err != nil || n <= 0 {
			return ByteRange{}, ErrInvalidRange
		}
		start, end = length-n, length-1

	case strings.HasSuffix(spec, "-"):
		// open form: start through the final byte
		n, err := strconv.Atoi(strings.TrimSuffix(spec, "-"))
		if err != nil {
			return ByteRange{}, ErrInvalidRange
		}
		start, end = n, length-1

	default:
		first, second, ok := strings.Cut(spec, "-")
		if !ok {
			return ByteRange{}, ErrInvalidRange
		}
		var err error
		if start, err = strconv.Atoi(first); err != nil {
			return ByteRange{}, ErrInvalidRange
		}
		if end, err = strconv.Atoi(second); err != nil {
			return ByteRange{}, ErrInvalidRange
		}
	}

	if start < 0 || end >= length || start > end {
		return ByteRange{}, ErrInvalidRange
	}
	return ByteRange{Start: start, End: end}, nil
}
