package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github/supplychain/rag/models"
)

func init() {

	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	err := license.SetMeteredKey(os.Getenv("UNIDOC_LICENSE_KEY"))
	if err != nil {
		fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
	}
}

// archiveExtensions lists the member types pulled out of a zip archive.
var archiveExtensions = map[string]bool{".pdf": true, ".txt": true}

// Extractor converts raw inputs into documents. Each input unit yields zero
// or one document (an archive yields one per extractable member); failures are
// reported as *models.ExtractionError so the caller can skip and continue.
type Extractor struct{}

// NewExtractor creates a new source normalizer.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// NormalizeRecord converts one dataset record into documents. File-shaped
// records are dispatched on their extension the same way local files are;
// glossary-shaped records become a single dataset_entry document.
func (e *Extractor) NormalizeRecord(rec DatasetRecord, index int) ([]models.Document, error) {
	if rec.FileName != "" {
		data, err := rec.Bytes()
		if err != nil {
			return nil, &models.ExtractionError{Source: rec.FileName, Err: err}
		}
		if len(data) == 0 {
			return nil, nil
		}
		switch strings.ToLower(filepath.Ext(rec.FileName)) {
		case ".pdf":
			doc, err := e.ExtractPDF(data, fmt.Sprintf("pdf_%d", index), rec.FileName)
			if err != nil {
				return nil, err
			}
			return []models.Document{doc}, nil
		case ".zip":
			docs, skipped, err := e.ExtractArchive(data, fmt.Sprintf("zip_%d", index), rec.FileName)
			for _, s := range skipped {
				log.Printf("EXTRACTOR WARN: skipped archive member %s", s)
			}
			return docs, err
		case ".txt":
			doc, err := e.NormalizeText(data, fmt.Sprintf("txt_%d", index), rec.FileName)
			if err != nil {
				return nil, err
			}
			return []models.Document{doc}, nil
		default:
			return nil, &models.ExtractionError{
				Source: rec.FileName,
				Err:    fmt.Errorf("unsupported file type %s", filepath.Ext(rec.FileName)),
			}
		}
	}

	doc, ok := e.NormalizeEntry(rec, index)
	if !ok {
		return nil, nil
	}
	return []models.Document{doc}, nil
}

// NormalizeEntry builds a document from the labeled fields of a glossary
// record. A record whose fields are all blank yields no document.
func (e *Extractor) NormalizeEntry(rec DatasetRecord, index int) (models.Document, bool) {
	var sb strings.Builder
	if strings.TrimSpace(rec.Term) != "" {
		fmt.Fprintf(&sb, "Term: %s\n", strings.TrimSpace(rec.Term))
	}
	if strings.TrimSpace(rec.Definition) != "" {
		fmt.Fprintf(&sb, "Definition: %s", strings.TrimSpace(rec.Definition))
	}
	content := strings.TrimSpace(sb.String())
	if content == "" {
		return models.Document{}, false
	}
	name := rec.Term
	if name == "" {
		name = fmt.Sprintf("entry_%d", index)
	}
	doc, err := models.NewDocument(content, models.DocumentMetadata{
		Source:   fmt.Sprintf("hf_dataset_entry_%d", index),
		Filename: name,
		Type:     models.DocTypeDatasetEntry,
	})
	if err != nil {
		return models.Document{}, false
	}
	return doc, true
}

// ExtractPDF extracts text from raw PDF bytes page by page, joining pages
// with a newline. Extraction failure is recoverable: the caller skips this
// input and continues with the rest of the batch.
func (e *Extractor) ExtractPDF(data []byte, source, filename string) (models.Document, error) {
	text, err := extractPDFText(data)
	if err != nil {
		return models.Document{}, &models.ExtractionError{Source: filename, Err: err}
	}
	doc, err := models.NewDocument(text, models.DocumentMetadata{
		Source:   source,
		Filename: filename,
		Type:     models.DocTypePDF,
	})
	if err != nil {
		return models.Document{}, &models.ExtractionError{Source: filename, Err: err}
	}
	return doc, nil
}

// extractPDFText uses UniPDF to get all text from PDF bytes.
func extractPDFText(data []byte) (string, error) {
	pdfReader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

// ExtractArchive opens raw bytes as a zip container and normalizes every
// member with a supported extension. A single bad member never aborts the
// whole archive; it is reported in the skipped list instead. Member documents
// are named "<archive-name>/<member-name>".
func (e *Extractor) ExtractArchive(data []byte, source, archiveName string) ([]models.Document, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, &models.ExtractionError{Source: archiveName, Err: err}
	}

	var docs []models.Document
	var skipped []string
	for _, member := range zr.File {
		ext := strings.ToLower(filepath.Ext(member.Name))
		if !archiveExtensions[ext] {
			continue
		}
		memberName := fmt.Sprintf("%s/%s", archiveName, member.Name)
		memberSource := fmt.Sprintf("%s/%s", source, member.Name)

		content, err := readZipMember(member)
		if err != nil {
			skipped = append(skipped, memberName)
			continue
		}

		var doc models.Document
		switch ext {
		case ".pdf":
			doc, err = e.ExtractPDF(content, memberSource, memberName)
		case ".txt":
			doc, err = e.NormalizeText(content, memberSource, memberName)
		}
		if err != nil {
			skipped = append(skipped, memberName)
			continue
		}
		doc.Metadata.Type = models.DocTypeZipContent
		docs = append(docs, doc)
	}
	return docs, skipped, nil
}

func readZipMember(member *zip.File) ([]byte, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// NormalizeText decodes raw bytes as UTF-8 text. A decoding failure is a
// recoverable skip, same as a malformed PDF.
func (e *Extractor) NormalizeText(data []byte, source, filename string) (models.Document, error) {
	if !utf8.Valid(data) {
		return models.Document{}, &models.ExtractionError{
			Source: filename,
			Err:    fmt.Errorf("content is not valid UTF-8"),
		}
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return models.Document{}, &models.ExtractionError{
			Source: filename,
			Err:    fmt.Errorf("content is empty"),
		}
	}
	doc, err := models.NewDocument(content, models.DocumentMetadata{
		Source:   source,
		Filename: filename,
		Type:     models.DocTypeText,
	})
	if err != nil {
		return models.Document{}, &models.ExtractionError{Source: filename, Err: err}
	}
	return doc, nil
}

// ExtractFile reads one local file and dispatches on its extension. Used by
// the directory scan during ingestion.
func (e *Extractor) ExtractFile(path, source string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ExtractionError{Source: path, Err: err}
	}
	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		doc, err := e.ExtractPDF(data, source, name)
		if err != nil {
			return nil, err
		}
		return []models.Document{doc}, nil
	case ".zip":
		docs, skipped, err := e.ExtractArchive(data, source, name)
		for _, s := range skipped {
			log.Printf("EXTRACTOR WARN: skipped archive member %s", s)
		}
		return docs, err
	case ".txt", ".md":
		doc, err := e.NormalizeText(data, source, name)
		if err != nil {
			return nil, err
		}
		return []models.Document{doc}, nil
	default:
		return nil, &models.ExtractionError{
			Source: path,
			Err:    fmt.Errorf("unsupported file type: %s", filepath.Ext(path)),
		}
	}
}
