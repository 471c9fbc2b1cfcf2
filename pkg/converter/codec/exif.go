package codec

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Panchajanya1999/heif2jpeg/pkg/converter"
)

// exifHeader prefixes the EXIF payload inside an APP1 segment.
var exifHeader = []byte("Exif\x00\x00")

// maxExifPayload is the largest EXIF stream that fits in one APP1
// segment: 65535 bytes minus the 2-byte length field and the header.
const maxExifPayload = 65535 - 2 - len("Exif\x00\x00")

const (
	markerSOI  = 0xD8
	markerEOI  = 0xD9
	markerSOS  = 0xDA
	markerAPP1 = 0xE1
)

// extractJPEGExif walks the segment list of a JPEG stream and returns
// the EXIF payload of the first APP1 Exif segment, without the
// "Exif\x00\x00" header. converter.ErrNoMetadata is returned when the
// stream has no such segment.
func extractJPEGExif(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)

	var soi [2]byte
	if _, err := io.ReadFull(br, soi[:]); err != nil {
		return nil, fmt.Errorf("read JPEG header: %w", err)
	}
	if soi[0] != 0xFF || soi[1] != markerSOI {
		return nil, fmt.Errorf("not a JPEG stream")
	}

	for {
		marker, err := readMarker(br)
		if err != nil {
			return nil, err
		}
		// Entropy-coded data follows SOS; EXIF always precedes it.
		if marker == markerSOS || marker == markerEOI {
			return nil, converter.ErrNoMetadata
		}

		var lenBuf [2]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("read segment length: %w", err)
		}
		segLen := int(binary.BigEndian.Uint16(lenBuf[:]))
		if segLen < 2 {
			return nil, fmt.Errorf("invalid segment length %d", segLen)
		}
		body := make([]byte, segLen-2)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, fmt.Errorf("read segment body: %w", err)
		}

		if marker == markerAPP1 && len(body) >= len(exifHeader) && string(body[:len(exifHeader)]) == string(exifHeader) {
			return body[len(exifHeader):], nil
		}
	}
}

// readMarker consumes padding 0xFF bytes and returns the next marker id.
func readMarker(br *bufio.Reader) (byte, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read marker: %w", err)
	}
	if b != 0xFF {
		return 0, fmt.Errorf("expected marker byte, got 0x%02X", b)
	}
	for {
		b, err = br.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("read marker: %w", err)
		}
		if b != 0xFF {
			return b, nil
		}
	}
}

// writeJPEGWithExif copies the encoded JPEG to w with an APP1 Exif
// segment spliced in directly after the start-of-image marker. exif is
// the raw payload without the "Exif\x00\x00" header and must fit in one
// segment.
func writeJPEGWithExif(w io.Writer, encoded []byte, exif []byte) error {
	if len(encoded) < 2 || encoded[0] != 0xFF || encoded[1] != markerSOI {
		return fmt.Errorf("encoder produced invalid JPEG stream")
	}
	if len(exif) > maxExifPayload {
		return fmt.Errorf("exif payload of %d bytes exceeds APP1 segment limit", len(exif))
	}

	segLen := 2 + len(exifHeader) + len(exif)
	app1 := make([]byte, 0, 4+segLen-2)
	app1 = append(app1, 0xFF, markerAPP1)
	app1 = binary.BigEndian.AppendUint16(app1, uint16(segLen))
	app1 = append(app1, exifHeader...)
	app1 = append(app1, exif...)

	if _, err := w.Write(encoded[:2]); err != nil {
		return err
	}
	if _, err := w.Write(app1); err != nil {
		return err
	}
	_, err := w.Write(encoded[2:])
	return err
}

// normalizeExifPayload strips the optional "Exif\x00\x00" header so both
// the JPEG segment walker and ImageMagick profile dumps yield the same
// payload shape.
func normalizeExifPayload(payload []byte) []byte {
	if len(payload) >= len(exifHeader) && string(payload[:len(exifHeader)]) == string(exifHeader) {
		return payload[len(exifHeader):]
	}
	return payload
}
