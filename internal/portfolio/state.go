package portfolio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"RLTrader/internal/model"
)

// LoadState reads the portfolio from a JSON file. Returns nil if the file doesn't exist.
func LoadState(filePath string) (*model.Portfolio, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p model.Portfolio
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveState writes the portfolio to a JSON file.
func SaveState(filePath string, p *model.Portfolio) error {
	p.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(filePath, data, 0644)
}
