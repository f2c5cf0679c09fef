package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	flatfile "github.com/wallaceicy06/go-flatfile"
)

// cborMode encodes records deterministically with dates as RFC 3339 text.
var cborMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	var err error
	cborMode, err = opts.EncMode()
	if err != nil {
		panic("flatfile: cbor encoder initialization failed: " + err.Error())
	}
}

type readCloser struct {
	io.Reader
	close func() error
}

func (r readCloser) Close() error { return r.close() }

// openInput opens path for reading, "-" being stdin. Files ending in .gz,
// .zst or .lz4 are decompressed.
func openInput(stdin io.Reader, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "reading gzip header of %s", path)
		}
		return readCloser{zr, func() error {
			zr.Close()
			return f.Close()
		}}, nil

	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "reading zstd stream %s", path)
		}
		return readCloser{zr, func() error {
			zr.Close()
			return f.Close()
		}}, nil

	case ".lz4":
		return readCloser{lz4.NewReader(f), f.Close}, nil
	}
	return f, nil
}

// writeRecords writes records to w as json, yaml or cbor.
func writeRecords(w io.Writer, format string, records flatfile.RecordSet) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()

	case "cbor":
		data, err := cborMode.Marshal(records)
		if err != nil {
			return errors.Wrap(err, "encoding cbor")
		}
		_, err = w.Write(data)
		return err
	}
	return errors.Errorf("unknown output format %q, want json, yaml or cbor", format)
}

// readRecords decodes the json or yaml document in data into the section
// keyed form accepted by flatfile.Encoder.
func readRecords(data []byte, format string) (map[string]any, error) {
	var doc map[string]any
	switch format {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decoding json input")
		}
		convertNumbers(doc)

	case "yaml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decoding yaml input")
		}

	default:
		return nil, errors.Errorf("unknown input format %q, want json or yaml", format)
	}
	if doc == nil {
		return nil, errors.New("input holds no records")
	}
	return doc, nil
}

// convertNumbers replaces json.Number values with int64 or float64 so that
// integer columns keep their full precision.
func convertNumbers(v any) any {
	switch value := v.(type) {
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return i
		}
		if f, err := value.Float64(); err == nil {
			return f
		}
		return value.String()

	case map[string]any:
		for key, element := range value {
			value[key] = convertNumbers(element)
		}
		return value

	case []any:
		for i, element := range value {
			value[i] = convertNumbers(element)
		}
		return value
	}
	return v
}

// inputFormatOf picks json or yaml from the input path. Stdin defaults to
// json.
func inputFormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}
