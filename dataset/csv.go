package dataset

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/luape/luape"
)

// ReadCSV reads a CSV document whose first row names the columns. Columns
// that are not declared in the metadata are ignored.
func ReadCSV(r io.Reader, md *Metadata) (*luape.Dataset, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}
	d := md.NewDataset()
	record := make(map[string]string, len(header))
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "read csv")
		}
		for i, name := range header {
			record[name] = row[i]
		}
		if err := md.AddRecord(d, record); err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", line)
		}
	}
	return d, nil
}

// ReadCSVFile reads a CSV file with ReadCSV.
func ReadCSVFile(path string, md *Metadata) (*luape.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	defer f.Close()
	d, err := ReadCSV(f, md)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return d, nil
}
