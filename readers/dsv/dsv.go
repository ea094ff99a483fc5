// Package dsv reads delimiter-separated-value files (CSV, TSV) as a
// restartable record stream. Each record is a Row that resolves fields by
// position or, when the file carries a header line, by column name.
package dsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Row is one parsed line of the file.
type Row struct {
	fields []string
	index  map[string]int
}

// Len returns the number of fields in the row.
func (r Row) Len() int { return len(r.fields) }

// Field returns the field at position i, or the empty string when i is out
// of range.
func (r Row) Field(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// Get resolves a field by header name. It reports false when the file has no
// header or the column does not exist.
func (r Row) Get(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

type options struct {
	comma  rune
	header bool
}

// Option configures a File.
type Option func(*options)

// WithComma sets the field delimiter. The default is ','.
func WithComma(c rune) Option { return func(o *options) { o.comma = c } }

// WithHeader treats the first line as a header and makes fields resolvable
// by name via Row.Get.
func WithHeader() Option { return func(o *options) { o.header = true } }

// File streams rows from a delimiter-separated file. It restarts by
// reopening the file, so the stream can feed multi-pass consumers.
type File struct {
	path string
	opts options

	f   *os.File
	csv *csv.Reader
	idx map[string]int

	cur Row
	err error
}

// Open opens the file at path for streaming.
func Open(path string, opts ...Option) (*File, error) {
	o := options{comma: ','}
	for _, opt := range opts {
		opt(&o)
	}
	d := &File{path: path, opts: o}
	if err := d.open(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *File) open() error {
	f, err := os.Open(d.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", d.path, err)
	}
	c := csv.NewReader(f)
	c.Comma = d.opts.comma
	c.FieldsPerRecord = -1
	c.ReuseRecord = false

	var idx map[string]int
	if d.opts.header {
		header, err := c.Read()
		if err != nil {
			f.Close()
			if err == io.EOF {
				idx = map[string]int{}
			} else {
				return fmt.Errorf("read header of %s: %w", d.path, err)
			}
		} else {
			idx = make(map[string]int, len(header))
			for i, name := range header {
				idx[name] = i
			}
		}
	}

	d.f = f
	d.csv = c
	d.idx = idx
	return nil
}

// Next advances to the next row.
func (d *File) Next() bool {
	if d.err != nil || d.csv == nil {
		return false
	}
	rec, err := d.csv.Read()
	if err != nil {
		if err != io.EOF {
			d.err = fmt.Errorf("read %s: %w", d.path, err)
		}
		return false
	}
	d.cur = Row{fields: rec, index: d.idx}
	return true
}

// Record returns the current row.
func (d *File) Record() Row { return d.cur }

// Err returns the first error encountered while reading.
func (d *File) Err() error { return d.err }

// Reset reopens the file and restarts the stream from the first data row.
func (d *File) Reset() error {
	if d.f != nil {
		if err := d.f.Close(); err != nil {
			return err
		}
		d.f = nil
		d.csv = nil
	}
	d.err = nil
	d.cur = Row{}
	return d.open()
}

// Close releases the underlying file. The stream can still be restarted
// with Reset afterwards.
func (d *File) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	d.csv = nil
	return err
}
