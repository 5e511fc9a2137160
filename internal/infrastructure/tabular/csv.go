package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM is written by spreadsheet tools in front of UTF-8 csv exports
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sniffLimit is how much of the source the delimiter detection looks at
const sniffLimit = 4096

// readCSV parses a delimited export. French tools default to ';', so the
// delimiter is sniffed from the header line.
func readCSV(src io.Reader) ([][]string, error) {
	buffered := bufio.NewReaderSize(src, sniffLimit)

	if prefix, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		if _, err := buffered.Discard(len(utf8BOM)); err != nil {
			return nil, err
		}
	}

	head, err := buffered.Peek(sniffLimit)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	reader := csv.NewReader(buffered)
	reader.Comma = sniffDelimiter(head)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return records, nil
}

// sniffDelimiter picks the most frequent candidate separator on the first line
func sniffDelimiter(head []byte) rune {
	if idx := bytes.IndexByte(head, '\n'); idx >= 0 {
		head = head[:idx]
	}

	best, bestCount := ',', 0
	for _, candidate := range []rune{';', ',', '\t'} {
		if n := bytes.Count(head, []byte(string(candidate))); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}
