package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/ragkb/ragkb/internal/filestore"
	"github.com/ragkb/ragkb/internal/model"
	"github.com/ragkb/ragkb/internal/parser"
	appErr "github.com/ragkb/ragkb/internal/pkg/errors"
	"github.com/ragkb/ragkb/internal/repo"
	"github.com/ragkb/ragkb/internal/vectorstore"
)

type DocumentService struct {
	docs            *repo.DocumentRepo
	chunks          *repo.ChunkRepo
	files           filestore.Store
	vectors         vectorstore.IStore
	extractOnUpload bool
}

func NewDocumentService(docs *repo.DocumentRepo, chunks *repo.ChunkRepo, files filestore.Store, vectors vectorstore.IStore, extractOnUpload bool) *DocumentService {
	return &DocumentService{
		docs:            docs,
		chunks:          chunks,
		files:           files,
		vectors:         vectors,
		extractOnUpload: extractOnUpload,
	}
}

// CreateText registers a document whose body was posted inline.
func (s *DocumentService) CreateText(ctx context.Context, title, rawText string) (*model.Document, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, appErr.ErrInvalidArgument
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = markdownTitle(rawText)
	}
	if title == "" {
		title = "Untitled"
	}
	doc := &model.Document{
		Title:   title,
		RawText: rawText,
		Status:  model.DocumentStatusUploaded,
		Ctime:   time.Now().Unix(),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Upload stores an uploaded file and registers a document for it. When
// extract-on-upload is enabled the text is parsed immediately and kept
// inline, so later indexing runs do not need the file anymore.
func (s *DocumentService) Upload(ctx context.Context, title, originalFilename string, file filestore.ReadSeekCloser, size int64) (*model.Document, error) {
	if !parser.SupportedExt(originalFilename) {
		return nil, appErr.ErrUnsupportedFormat
	}
	key, err := newFileKey(originalFilename)
	if err != nil {
		return nil, err
	}
	if err := s.files.Save(ctx, key, file, size); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	rawText := ""
	if s.extractOnUpload {
		rawText, err = s.extract(ctx, key, originalFilename)
		if err != nil {
			if cleanupErr := s.files.Delete(ctx, key); cleanupErr != nil {
				logutil.GetLogger(ctx).Warn("failed to remove rejected upload", zap.String("key", key), zap.Error(cleanupErr))
			}
			return nil, err
		}
	}

	title = strings.TrimSpace(title)
	if title == "" && strings.EqualFold(filepath.Ext(originalFilename), ".md") && rawText != "" {
		title = markdownTitle(rawText)
	}
	if title == "" {
		title = strings.TrimSuffix(originalFilename, filepath.Ext(originalFilename))
	}

	doc := &model.Document{
		Title:            title,
		FileKey:          key,
		OriginalFilename: originalFilename,
		RawText:          rawText,
		Status:           model.DocumentStatusUploaded,
		Ctime:            time.Now().Unix(),
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		if cleanupErr := s.files.Delete(ctx, key); cleanupErr != nil {
			logutil.GetLogger(ctx).Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(cleanupErr))
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	return s.docs.GetByID(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docs.List(ctx)
}

func (s *DocumentService) Chunks(ctx context.Context, id int64) ([]model.Chunk, error) {
	if _, err := s.docs.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.chunks.ListByDocument(ctx, id)
}

// Delete removes a document everywhere: vectors first, then chunk rows, the
// stored file and finally the document row. A vector store failure aborts the
// delete so nothing dangles in the index.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	vectorIDs, err := s.chunks.ListVectorIDs(ctx, id)
	if err != nil {
		return err
	}
	if len(vectorIDs) > 0 {
		if err := s.vectors.Delete(ctx, vectorIDs); err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
	}
	if err := s.chunks.DeleteByDocument(ctx, id); err != nil {
		return err
	}
	if doc.FileKey != "" {
		if err := s.files.Delete(ctx, doc.FileKey); err != nil {
			logutil.GetLogger(ctx).Warn("failed to delete stored file",
				zap.Int64("doc_id", id), zap.String("key", doc.FileKey), zap.Error(err))
		}
	}
	return s.docs.Delete(ctx, id)
}

// LoadText reads back the stored file of a document and extracts its text.
// Used by the indexer when the raw text is not kept inline.
func (s *DocumentService) LoadText(ctx context.Context, doc *model.Document) (string, error) {
	if doc.FileKey == "" {
		return "", appErr.ErrNoSourceText
	}
	filename := doc.OriginalFilename
	if filename == "" {
		filename = doc.FileKey
	}
	return s.extract(ctx, doc.FileKey, filename)
}

func (s *DocumentService) extract(ctx context.Context, key, filename string) (string, error) {
	reader, err := s.files.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open stored file: %w", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read stored file: %w", err)
	}
	return parser.ExtractText(filename, data)
}

func newFileKey(filename string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf) + strings.ToLower(filepath.Ext(filename)), nil
}

// markdownTitle returns the text of the first level-1 heading, if any.
func markdownTitle(markdown string) string {
	md := goldmark.New()
	source := []byte(markdown)
	doc := md.Parser().Parse(text.NewReader(source))
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok && heading.Level == 1 {
			return strings.TrimSpace(string(heading.Text(source)))
		}
	}
	return ""
}
