package frame

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/filestore"
)

// FromCSV reads a header-first CSV stream into a Frame. Every value is a
// raw string; empty cells are loaded as nil (SQL NULL). Type inference
// later parses the strings into concrete SQL types.
func FromCSV(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errs.New(errs.KindInvalidInput, "csv input is empty")
	}
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalidInput, "reading csv header", err)
	}

	values := make([][]any, len(header))
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalidInput, "reading csv record", err)
		}
		for i := range header {
			var v any
			if i < len(record) && record[i] != "" {
				v = record[i]
			}
			values[i] = append(values[i], v)
		}
	}

	f := &Frame{byName: make(map[string]int, len(header)), stringSource: true}
	for i, name := range header {
		if err := f.AddColumn(name, values[i]); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromStore downloads the object at bucket/key and parses it as CSV.
func FromStore(ctx context.Context, store filestore.Store, bucket, key string) (*Frame, error) {
	obj, err := store.Get(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return FromCSV(obj)
}
