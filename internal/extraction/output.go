package extraction

import (
	"fmt"
	"os"
	"path/filepath"
)

// RawSuffix is appended to the output path when an unparseable answer is kept.
const RawSuffix = ".raw.txt"

// WriteProducts persists the product list as one indented JSON array.
func WriteProducts(path string, products []Product) error {
	data, err := MarshalProducts(products)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}
	return writeFile(path, data)
}

// WriteRaw keeps a model answer that could not be parsed next to the output
// file and returns where it went.
func WriteRaw(outputPath, cleaned string) (string, error) {
	rawPath := outputPath + RawSuffix
	if err := writeFile(rawPath, []byte(cleaned)); err != nil {
		return "", err
	}
	return rawPath, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
