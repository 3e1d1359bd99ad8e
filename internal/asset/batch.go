package asset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// BarcodeColumn is the input column ClassifyBarcodes reads by default.
const BarcodeColumn = "barcode"

// ClassifyBarcodes copies a CSV from r to w, appending regex_result (the
// normalized serial) and barcode_type (its DeviceClass) to every row.
// column names the header holding the raw barcode. It returns the number
// of data rows written.
func ClassifyBarcodes(r io.Reader, w io.Writer, column string) (int, error) {
	if column == "" {
		column = BarcodeColumn
	}

	in := csv.NewReader(r)
	in.FieldsPerRecord = -1
	out := csv.NewWriter(w)

	header, err := in.Read()
	if errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("%w: empty input", ErrInvalidPayload)
	}
	if err != nil {
		return 0, fmt.Errorf("reading header: %w", err)
	}

	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("%w: no %q column in header", ErrInvalidPayload, column)
	}

	if err := out.Write(append(header, "regex_result", "barcode_type")); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}

	rows := 0
	for {
		rec, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("reading row %d: %w", rows+1, err)
		}

		var raw string
		if idx < len(rec) {
			raw = strings.TrimSpace(rec[idx])
		}
		serial := NormalizeSerial(raw)
		if err := out.Write(append(rec, serial, string(Classify(serial)))); err != nil {
			return rows, fmt.Errorf("writing row %d: %w", rows+1, err)
		}
		rows++
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return rows, fmt.Errorf("flushing output: %w", err)
	}
	return rows, nil
}
