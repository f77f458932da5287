package logging

import (
	"bufio"
	"io"
	"strings"
)

// LineCallback is invoked once per logical line read from a carriage-return
// or newline terminated stream.
type LineCallback func(line string)

// ScanCRLines reads r byte by byte and invokes cb once for every line,
// treating both '\r' and '\n' as line terminators. External encoders print
// their progress counter using '\r' so the cursor stays on one line in an
// interactive terminal; naively scanning with bufio.Scanner (which only
// splits on '\n') would buffer an entire run's progress output as one
// line. Mirrors the byte-at-a-time approach used to parse encoder stderr
// progress, generalized here so both the worker's encode pipeline and the
// coordinator's decode-verification step can log each progress tick.
func ScanCRLines(r io.Reader, cb LineCallback) error {
	reader := bufio.NewReader(r)
	var lineBuf strings.Builder

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if lineBuf.Len() > 0 {
				cb(lineBuf.String())
			}
			if err == io.EOF {
				return nil
			}
			return err
		}

		if b == '\r' || b == '\n' {
			if lineBuf.Len() > 0 {
				cb(lineBuf.String())
				lineBuf.Reset()
			}
			continue
		}
		lineBuf.WriteByte(b)
	}
}
