package engine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
)

// MaxLineSize bounds one NDJSON line (1 MiB). Tool arguments carry
// whole files.
const MaxLineSize = 1024 * 1024

// decoder reads one JSON value per line, skipping blank lines.
type decoder struct {
	scanner *bufio.Scanner
	logger  *slog.Logger
	line    int
}

func newDecoder(r io.Reader, logger *slog.Logger) *decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), MaxLineSize)
	return &decoder{scanner: sc, logger: logger}
}

func (d *decoder) decode(v any) error {
	for d.scanner.Scan() {
		d.line++
		data := d.scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		if err := json.Unmarshal(data, v); err != nil {
			d.logger.Error("failed to unmarshal engine output",
				"line", d.line,
				"error", err,
				"data", string(data[:min(100, len(data))]))
			return fmt.Errorf("decoding line %d: %w", d.line, err)
		}
		return nil
	}
	if err := d.scanner.Err(); err != nil {
		return fmt.Errorf("reading line %d: %w", d.line+1, err)
	}
	return io.EOF
}

// encode writes v as one line.
func encode(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing request: %w", err)
	}
	return nil
}
