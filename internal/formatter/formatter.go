// package formatter reads and writes the extraction document and exports
// record listings to CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/shared"
)

// WriteDocument persists the extraction result as indented JSON at path.
//
// The document is the contract between the extract and sync stages, so
// the on-disk shape is exactly [models.ExtractionResult].
func WriteDocument(result *models.ExtractionResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write document to %s: %w", path, err)
	}

	return nil
}

// ReadDocument loads and validates an extraction document from path.
//
// A missing file wraps [shared.ErrDocumentNotFound]. Anything that parses
// but lacks the channel_info and audio_files structure wraps
// [shared.ErrMalformedDocument]; flat exports from other tools are
// rejected here rather than failing deep inside the sync stage.
func ReadDocument(path string) (*models.ExtractionResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", shared.ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	var result models.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedDocument, err)
	}

	if err := validateDocument(data, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// validateDocument rejects parseable JSON that is not an extraction
// document.
func validateDocument(data []byte, result *models.ExtractionResult) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: document root must be an object", shared.ErrMalformedDocument)
	}

	if _, ok := raw["audio_files"]; !ok {
		return fmt.Errorf("%w: missing audio_files", shared.ErrMalformedDocument)
	}
	if _, ok := raw["channel_info"]; !ok {
		return fmt.Errorf("%w: missing channel_info", shared.ErrMalformedDocument)
	}
	if result.ChannelInfo.Title == "" && result.ChannelInfo.Username == "" {
		return fmt.Errorf("%w: channel_info carries no identity", shared.ErrMalformedDocument)
	}

	return nil
}

// ExportToCSV converts the document's records to CSV with columns:
// MessageID, Artist, Title, FileName, Duration, SizeMB, MimeType, Date
func ExportToCSV(result *models.ExtractionResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"MessageID", "Artist", "Title", "FileName", "Duration", "SizeMB", "MimeType", "Date"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, rec := range result.AudioFiles {
		record := []string{
			strconv.FormatInt(rec.MessageID, 10),
			rec.Artist,
			rec.Title,
			rec.FileName,
			strconv.Itoa(rec.DurationSec),
			strconv.FormatFloat(rec.FileSizeMB, 'f', 2, 64),
			rec.MimeType,
			rec.Date,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteCSVExport writes the CSV export next to the given base path,
// defaulting the base to the channel username.
func WriteCSVExport(result *models.ExtractionResult, basePath string) (string, error) {
	if basePath == "" {
		basePath = result.ChannelInfo.Username
	}

	data, err := ExportToCSV(result)
	if err != nil {
		return "", fmt.Errorf("failed to generate CSV: %w", err)
	}

	path := basePath + "_tracks.csv"
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}

	return path, nil
}
