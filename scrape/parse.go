package scrape

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const bytesPerLine = 16

// StringRecord is one entry of a strings listing.
type StringRecord struct {
	Addr   uint64
	Size   int
	Length int
	Text   string
	// Raw is set instead of the other fields when the line did not have
	// the expected shape.
	Raw string
}

// HexLine is one full row of a hex dump.
type HexLine struct {
	Offset    string
	OffsetNum uint64
	Bytes     []string
	ASCII     string
}

func decode(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: output is not valid UTF-8", ErrParse)
	}
	return string(data), nil
}

// ParseStrings reads `<addr> <size> <length> <text>` records, one per line.
// Lines of another shape are kept verbatim in Raw.
func ParseStrings(data []byte) ([]StringRecord, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	var out []StringRecord
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, parseStringRecord(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return out, nil
}

func parseStringRecord(line string) StringRecord {
	raw := StringRecord{Raw: line}
	fields := strings.SplitN(line, " ", 4)
	if len(fields) != 4 || !strings.HasPrefix(fields[0], "0x") {
		return raw
	}
	addr, err := strconv.ParseUint(fields[0][2:], 16, 64)
	if err != nil {
		return raw
	}
	size, err := strconv.Atoi(fields[1])
	if err != nil {
		return raw
	}
	length, err := strconv.Atoi(fields[2])
	if err != nil {
		return raw
	}
	return StringRecord{Addr: addr, Size: size, Length: length, Text: fields[3]}
}

// ParseHexdump keeps the lines that start with 0x and carry exactly 16
// bytes. Everything else is dropped without error.
func ParseHexdump(data []byte) ([]HexLine, error) {
	text, err := decode(data)
	if err != nil {
		return nil, err
	}

	var out []HexLine
	for _, line := range strings.Split(text, "\n") {
		if hl, ok := parseHexLine(strings.TrimSpace(line)); ok {
			out = append(out, hl)
		}
	}
	return out, nil
}

func parseHexLine(line string) (HexLine, bool) {
	if !strings.HasPrefix(line, "0x") {
		return HexLine{}, false
	}
	tokens := strings.Fields(line)
	if len(tokens) < 3 {
		return HexLine{}, false
	}
	offset, err := strconv.ParseUint(tokens[0][2:], 16, 64)
	if err != nil {
		return HexLine{}, false
	}

	hl := HexLine{Offset: tokens[0], OffsetNum: offset}
	var ascii []string
	for _, tok := range tokens[1:] {
		// Once a full row of bytes is in, the rest is the ASCII column even
		// when it happens to look like hex.
		if len(hl.Bytes) < bytesPerLine && isHexGroup(tok) {
			for n := 0; n < len(tok); n += 2 {
				hl.Bytes = append(hl.Bytes, tok[n:n+2])
			}
			continue
		}
		ascii = append(ascii, tok)
	}
	if len(hl.Bytes) != bytesPerLine {
		return HexLine{}, false
	}
	hl.ASCII = strings.TrimSpace(strings.Join(ascii, " "))
	return hl, true
}

func isHexGroup(tok string) bool {
	if len(tok) < 2 || len(tok)%2 != 0 {
		return false
	}
	for n := 0; n < len(tok); n++ {
		c := tok[n]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// ParseGraph returns the graph description unchanged.
func ParseGraph(data []byte) (string, error) {
	text, err := decode(data)
	if err != nil {
		return "", err
	}
	return text, nil
}
