package main

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/graphkv/pkg/converter"
	"github.com/ajitpratap0/graphkv/pkg/element"
	"github.com/ajitpratap0/graphkv/pkg/errors"
	"github.com/ajitpratap0/graphkv/pkg/json"
	"github.com/ajitpratap0/graphkv/pkg/metrics"
	"github.com/ajitpratap0/graphkv/pkg/rowkey"
)

// wireRecord is the JSON form of a converter.Record. Byte fields are
// rendered by a byteFormat.
type wireRecord struct {
	Row              string `json:"row"`
	ColumnFamily     string `json:"column_family"`
	ColumnQualifier  string `json:"column_qualifier"`
	ColumnVisibility string `json:"column_visibility"`
	Timestamp        int64  `json:"timestamp"`
	Value            string `json:"value"`
}

type byteFormat struct {
	encode func([]byte) string
	decode func(string) ([]byte, error)
}

var byteFormats = map[string]byteFormat{
	"hex":    {encode: hex.EncodeToString, decode: hex.DecodeString},
	"base64": {encode: base64.StdEncoding.EncodeToString, decode: base64.StdEncoding.DecodeString},
}

func byteFormatByName(name string) (byteFormat, error) {
	f, ok := byteFormats[name]
	if !ok {
		return byteFormat{}, errors.Newf(errors.ErrorTypeConfig, "unknown byte format %q (want hex or base64)", name)
	}
	return f, nil
}

func (f byteFormat) toWire(r converter.Record) wireRecord {
	return wireRecord{
		Row:              f.encode(r.Key.Row),
		ColumnFamily:     f.encode(r.Key.ColumnFamily),
		ColumnQualifier:  f.encode(r.Key.ColumnQualifier),
		ColumnVisibility: f.encode(r.Key.ColumnVisibility),
		Timestamp:        r.Key.Timestamp,
		Value:            f.encode(r.Value),
	}
}

func (f byteFormat) fromWire(w wireRecord) (converter.Record, error) {
	var r converter.Record
	fields := []struct {
		name string
		src  string
		dst  *[]byte
	}{
		{"row", w.Row, &r.Key.Row},
		{"column_family", w.ColumnFamily, &r.Key.ColumnFamily},
		{"column_qualifier", w.ColumnQualifier, &r.Key.ColumnQualifier},
		{"column_visibility", w.ColumnVisibility, &r.Key.ColumnVisibility},
		{"value", w.Value, &r.Value},
	}
	for _, field := range fields {
		b, err := f.decode(field.src)
		if err != nil {
			return converter.Record{}, errors.Wrap(err, errors.ErrorTypeValidation, "bad "+field.name)
		}
		*field.dst = b
	}
	r.Key.Timestamp = w.Timestamp
	return r, nil
}

// openInput opens path, or standard input when path is "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return f, nil
}

// readInput reads all of path, or standard input when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	r, err := openInput(cmd, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// eachRecord decodes a JSON array of records from r one record at a time.
func eachRecord(r io.Reader, fn func(i int, w wireRecord) error) (int, error) {
	dec := json.NewDecoder(r)
	token, err := dec.Token()
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeValidation, "failed to read records array start")
	}
	if delim, ok := token.(json.Delim); !ok || delim != '[' {
		return 0, errors.Newf(errors.ErrorTypeValidation, "expected JSON array of records, got %v", token)
	}

	n := 0
	for dec.More() {
		var w wireRecord
		if err := dec.Decode(&w); err != nil {
			return n, errors.Wrap(err, errors.ErrorTypeValidation, "failed to parse records")
		}
		if err := fn(n, w); err != nil {
			return n, err
		}
		n++
	}
	if _, err := dec.Token(); err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeValidation, "unterminated records array")
	}
	return n, nil
}

// readElements reads a JSON array of elements and coerces each one to the
// native types of the schema.
func (a *app) readElements(cmd *cobra.Command, path string) ([]*element.Element, error) {
	data, err := readInput(cmd, path)
	if err != nil {
		return nil, err
	}
	elements, err := element.UnmarshalElements(data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to parse elements")
	}
	for i, e := range elements {
		if elements[i], err = a.schema.Coerce(e); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return elements, nil
}

func newEncodeCommand(a *app) *cobra.Command {
	var input, format string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Convert elements to sorted key/value records",
		Long: `Read a JSON array of elements and write the records that store them.
Edges between two different vertices produce two records.

Example:
  graphkv encode --schema schema.yaml --input elements.json --bytes hex`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			f, err := byteFormatByName(format)
			if err != nil {
				return err
			}
			conv, err := a.converter()
			if err != nil {
				return err
			}
			elements, err := a.readElements(cmd, input)
			if err != nil {
				return err
			}

			enc := json.NewStreamingEncoder(cmd.OutOrStdout(), true)
			enc.SetPretty(pretty, "  ")
			written := 0
			for i, e := range elements {
				records, err := conv.RecordsFromElement(e)
				metrics.RecordConversion("encode", e.Kind.String(), err)
				if err != nil {
					return fmt.Errorf("element %d: %w", i, err)
				}
				for _, r := range records {
					if err := enc.Encode(f.toWire(r)); err != nil {
						return err
					}
				}
				written += len(records)
			}
			a.log.Info("encoded elements", zap.Int("elements", len(elements)), zap.Int("records", written))
			return enc.Close()
		}),
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON file of elements, - for stdin")
	cmd.Flags().StringVar(&format, "bytes", "hex", "Encoding of record bytes: hex or base64")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the output")
	return cmd
}

func newDecodeCommand(a *app) *cobra.Command {
	var input, format string
	var pretty, matchedSeedAsSource bool

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Convert key/value records back to elements",
		Long: `Read a JSON array of records, as written by encode, and write the
element each record holds.

Example:
  graphkv decode --schema schema.yaml --input records.json`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			f, err := byteFormatByName(format)
			if err != nil {
				return err
			}
			conv, err := a.converter()
			if err != nil {
				return err
			}
			in, err := openInput(cmd, input)
			if err != nil {
				return err
			}
			defer in.Close()

			opts := rowkey.Options{rowkey.OptionMatchedSeedAsSource: strconv.FormatBool(matchedSeedAsSource)}
			enc := json.NewStreamingEncoder(cmd.OutOrStdout(), true)
			enc.SetPretty(pretty, "  ")
			n, err := eachRecord(in, func(i int, w wireRecord) error {
				r, err := f.fromWire(w)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				e, err := conv.FullElement(r, opts)
				kind := "unknown"
				if e != nil {
					kind = e.Kind.String()
				}
				metrics.RecordConversion("decode", kind, err)
				if err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
				return enc.Encode(e)
			})
			if err != nil {
				return err
			}
			a.log.Info("decoded records", zap.Int("records", n))
			return enc.Close()
		}),
	}

	cmd.Flags().StringVarP(&input, "input", "i", "-", "JSON file of records, - for stdin")
	cmd.Flags().StringVar(&format, "bytes", "hex", "Encoding of record bytes: hex or base64")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the output")
	cmd.Flags().BoolVar(&matchedSeedAsSource, "matched-seed-as-source", false, "Report the leading vertex of destination-first rows as the source")
	return cmd
}
