package newsfeed

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// utf8BOM prefixes CSV output so spreadsheet tools detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVHeader lists the exported columns in order.
var CSVHeader = []string{"News ID", "Title", "Date", "Content"}

var unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// WriteCSV writes records as BOM-prefixed UTF-8 CSV with CSVHeader. An empty
// slice still produces the header row.
func WriteCSV(w io.Writer, records []ArticleRecord) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.NewsID, r.Title, r.Date, r.Content}); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes records to path, creating parent directories as needed.
func SaveCSV(path string, records []ArticleRecord) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteJSON writes records as an indented JSON array.
func WriteJSON(w io.Writer, records []ArticleRecord) error {
	if records == nil {
		records = []ArticleRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	return nil
}

// DefaultCSVName returns the default export filename for a keyword, e.g.
// "udn_臺灣_新聞資料.csv".
func DefaultCSVName(keyword string) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(keyword), "_")
	if name == "" {
		name = "search"
	}
	return fmt.Sprintf("udn_%s_新聞資料.csv", name)
}
