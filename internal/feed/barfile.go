package feed

import (
	"encoding/json"
	"os"

	"github.com/yanun0323/errors"

	"tradesim/internal/model"
)

// ReadBars loads a JSON array of OHLCV bars from a file. Bars are returned
// as stored; validity and ordering problems are the replay driver's to count
// as diagnostics.
func ReadBars(path string) ([]model.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read bar file")
	}
	var bars []model.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, errors.Wrap(err, "parse bar file")
	}
	return bars, nil
}
