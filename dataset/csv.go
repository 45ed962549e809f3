package dataset

import (
	"io"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/churnkit/pkg/errors"
)

// DefaultNaNValues are the cell values read as missing.
var DefaultNaNValues = []string{"", "NA", "NaN", "nan", "N/A", "NULL", "null"}

// ReadCSV loads a table with a header row. Column types are detected by gota;
// date columns stay strings until feature derivation parses them.
func ReadCSV(r io.Reader, schema Schema) (dataframe.DataFrame, error) {
	types := make(map[string]series.Type, 4)
	for _, c := range schema.DateColumns() {
		types[c] = series.String
	}
	if schema.CompanyName != "" {
		types[schema.CompanyName] = series.String
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.WithTypes(types),
		dataframe.NaNValues(DefaultNaNValues),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(df.Err, "read csv")
	}
	return df, nil
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path string, schema Schema) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, schema)
}

// WriteCSV writes df with a header row and no index column.
func WriteCSV(w io.Writer, df dataframe.DataFrame) error {
	if df.Err != nil {
		return errors.Wrap(df.Err, "write csv")
	}
	if err := df.WriteCSV(w, dataframe.WriteHeader(true)); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

// WriteCSVFile writes df to path, creating parent directories as needed.
func WriteCSVFile(path string, df dataframe.DataFrame) (err error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return WriteCSV(f, df)
}
