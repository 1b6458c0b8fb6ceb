package backup

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Azure/cosmosdb-emulator-recipes/internal/database"
)

const (
	FormatJSON = "json"
	FormatBSON = "bson"

	logEvery = 1000
)

type Service struct {
	store     database.Store
	container string
}

func NewService(store database.Store, container string) *Service {
	return &Service{store: store, container: container}
}

// BackupContainer writes every document of the container to a new file in
// outputDir and returns its path and the number of documents written.
func (s *Service) BackupContainer(ctx context.Context, outputDir, format string) (string, int, error) {
	if err := ValidateFormat(format); err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("backup_%s_%s.%s", s.container, timestamp, format)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	count, err := s.Export(ctx, w, format)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("backup failed: %w", err)
	}

	return path, count, nil
}

// Export writes the container as JSON lines or concatenated BSON documents.
func (s *Service) Export(ctx context.Context, w io.Writer, format string) (int, error) {
	if err := ValidateFormat(format); err != nil {
		return 0, err
	}
	count := 0
	err := s.store.Scan(ctx, func(doc database.Document) error {
		var data []byte
		var err error
		if format == FormatJSON {
			data, err = json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("failed to marshal to JSON: %w", err)
			}
			data = append(data, '\n')
		} else {
			data, err = bson.Marshal(bson.M(doc))
			if err != nil {
				return fmt.Errorf("failed to marshal to BSON: %w", err)
			}
		}

		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write backup data: %w", err)
		}
		count++

		if count%logEvery == 0 {
			log.Infof("Backed up %d documents...", count)
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	log.Infof("Backup completed: %d documents from container '%s'", count, s.container)
	return count, nil
}

func (s *Service) RestoreContainer(ctx context.Context, inputFile, format string, dropExisting bool) (int, error) {
	file, err := os.Open(inputFile)
	if err != nil {
		return 0, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	count, err := s.Import(ctx, bufio.NewReader(file), format, dropExisting)
	if err != nil {
		return count, fmt.Errorf("restore failed: %w", err)
	}
	return count, nil
}

// Import inserts every document read from r into the container.
func (s *Service) Import(ctx context.Context, r io.Reader, format string, dropExisting bool) (int, error) {
	if err := ValidateFormat(format); err != nil {
		return 0, err
	}
	if dropExisting {
		if err := s.store.DropContainer(ctx); err != nil {
			return 0, fmt.Errorf("failed to drop container %s: %w", s.container, err)
		}
	} else if err := s.store.EnsureContainer(ctx); err != nil {
		return 0, err
	}

	next := jsonReader(r)
	if format == FormatBSON {
		next = bsonReader(r)
	}

	count := 0
	for {
		doc, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}
		if err := s.store.Insert(ctx, doc); err != nil {
			return count, fmt.Errorf("failed to restore document %s: %w", doc.ID(), err)
		}
		count++
		if count%logEvery == 0 {
			log.Infof("Restored %d documents...", count)
		}
	}

	log.Infof("Restore completed: imported %d documents to container '%s'", count, s.container)
	return count, nil
}

func jsonReader(r io.Reader) func() (database.Document, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	return func() (database.Document, error) {
		var doc database.Document
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to decode JSON: %w", err)
		}
		return doc, nil
	}
}

func bsonReader(r io.Reader) func() (database.Document, error) {
	return func() (database.Document, error) {
		var size [4]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read BSON data: %w", err)
		}
		docSize := int(binary.LittleEndian.Uint32(size[:]))
		if docSize < 5 {
			return nil, fmt.Errorf("invalid BSON document size %d", docSize)
		}
		buf := make([]byte, docSize)
		copy(buf, size[:])
		if _, err := io.ReadFull(r, buf[4:]); err != nil {
			return nil, fmt.Errorf("failed to read BSON data: %w", err)
		}

		var doc bson.M
		if err := bson.Unmarshal(buf, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal BSON: %w", err)
		}
		return database.Document(doc), nil
	}
}

func ValidateFormat(format string) error {
	if format != FormatJSON && format != FormatBSON {
		return fmt.Errorf("invalid format: %s. Use 'bson' or 'json'", format)
	}
	return nil
}

// DetectFormat derives the format from the file extension.
func DetectFormat(filename string) (string, error) {
	switch ext := filepath.Ext(filename); ext {
	case ".bson":
		return FormatBSON, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot auto-detect format from extension '%s'. Please specify --format", ext)
	}
}

// ContainerFromFilename recovers the container name from a file written
// by BackupContainer, or returns "".
func ContainerFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if !strings.HasPrefix(base, "backup_") {
		return ""
	}
	base = strings.TrimPrefix(base, "backup_")
	// strip the _YYYYMMDD_HHMMSS suffix
	parts := strings.Split(base, "_")
	if len(parts) < 3 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], "_")
}

func ValidateBackupFile(filename, expectedFormat string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot open backup file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("cannot get file info: %w", err)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("backup file is empty")
	}

	extension := filepath.Ext(filename)
	if expectedFormat == FormatJSON && extension != ".json" {
		return fmt.Errorf("expected JSON file but got %s", extension)
	}
	if expectedFormat == FormatBSON && extension != ".bson" {
		return fmt.Errorf("expected BSON file but got %s", extension)
	}

	return nil
}
