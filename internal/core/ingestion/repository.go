package ingestion

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/jinford/hybrid-rag/internal/core/apperror"
	"github.com/jinford/hybrid-rag/internal/core/ingestion/chunk"
	"github.com/jinford/hybrid-rag/internal/platform/fileutil"
)

// ErrContentMismatch は拡張子とファイル内容の種別が一致しない場合のエラー
var ErrContentMismatch = errors.New("file content does not match extension")

// DocumentInfo は保存済みドキュメントの一覧表示用情報
type DocumentInfo struct {
	Filename   string         `json:"filename"`
	FileType   chunk.FileType `json:"file_type"`
	Chunks     int            `json:"chunks"` // PDF はページ数、HTML は 0
	SizeBytes  int64          `json:"size_bytes"`
	UploadedAt time.Time      `json:"uploaded_at"`
}

// storedFile はデータディレクトリ内の元ファイル
type storedFile struct {
	Path     string
	FileType chunk.FileType
	Info     fs.FileInfo
}

// DocumentStore は取り込んだ元ファイルを種別ごとのディレクトリ（pdfs / html）にファイル名で保持する
type DocumentStore struct {
	dataDir string
}

// NewDocumentStore は新しい DocumentStore を作成する
func NewDocumentStore(dataDir string) *DocumentStore {
	return &DocumentStore{dataDir: dataDir}
}

// DataDir はデータディレクトリを返す
func (s *DocumentStore) DataDir() string {
	return s.dataDir
}

// EnsureDirs は種別ごとのディレクトリを作成する
func (s *DocumentStore) EnsureDirs() error {
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(s.dataDir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to create document directory: %w", err)
		}
	}
	return nil
}

// PathFor は種別とファイル名から保存先パスを返す
func (s *DocumentStore) PathFor(fileType chunk.FileType, filename string) string {
	return filepath.Join(s.dataDir, subdirs[fileType], filename)
}

// Import は src を保存先へコピーする。既に保存先にある場合はコピーしない。
func (s *DocumentStore) Import(src string, fileType chunk.FileType) (string, bool, error) {
	if err := verifyContent(src, fileType); err != nil {
		return "", false, err
	}

	dest := s.PathFor(fileType, filepath.Base(src))
	if fileutil.SamePath(src, dest) {
		return dest, false, nil
	}

	if err := fileutil.CopyFile(src, dest); err != nil {
		return "", false, apperror.Storage("ingestion.import", err)
	}
	return dest, true, nil
}

// Save はアップロードされた内容を保存先に書き込む。
// 一時ファイルで内容を確認してから置き換えるため、拒否されたアップロードは既存のファイルを変更しない。
func (s *DocumentStore) Save(filename string, fileType chunk.FileType, r io.Reader) (string, error) {
	name := filepath.Base(filename)
	dest := s.PathFor(fileType, name)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", apperror.Storage("ingestion.save", err)
	}

	// 拡張子を持たない名前にして一覧に出ないようにする
	f, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", apperror.Storage("ingestion.save", err)
	}
	tmp := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", apperror.Storage("ingestion.save", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", apperror.Storage("ingestion.save", err)
	}

	if err := verifyContentAs(tmp, name, fileType); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", apperror.Storage("ingestion.save", err)
	}
	return dest, nil
}

// Find はファイル名に一致する保存済みファイルを pdfs → html の順に探す
func (s *DocumentStore) Find(filename string) (string, chunk.FileType, bool) {
	for _, ft := range []chunk.FileType{chunk.FileTypePDF, chunk.FileTypeHTML} {
		path := s.PathFor(ft, filename)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, ft, true
		}
	}
	return "", "", false
}

// List は保存済みファイルを種別ごとにファイル名順で返す。ディレクトリが無い場合は空。
func (s *DocumentStore) List() ([]storedFile, error) {
	var files []storedFile
	for _, ft := range []chunk.FileType{chunk.FileTypePDF, chunk.FileTypeHTML} {
		dir := filepath.Join(s.dataDir, subdirs[ft])
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, apperror.Storage("ingestion.list", err)
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if t, ok := FileTypeFor(entry.Name()); !ok || t != ft {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			files = append(files, storedFile{
				Path:     filepath.Join(dir, entry.Name()),
				FileType: ft,
				Info:     info,
			})
		}
	}
	return files, nil
}

// Remove は保存済みファイルを削除する
func (s *DocumentStore) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return apperror.Storage("ingestion.remove", err)
	}
	return nil
}

// Clear は種別ごとのディレクトリ直下のファイルを全て削除し、削除件数を返す
func (s *DocumentStore) Clear() (int, error) {
	removed := 0
	for _, sub := range subdirs {
		dir := filepath.Join(s.dataDir, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, apperror.Storage("ingestion.clear", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
				return removed, apperror.Storage("ingestion.clear", err)
			}
			removed++
		}
	}
	return removed, nil
}

// verifyContent はファイル内容を判定し、PDF は application/pdf、HTML はテキスト系であることを確認する
func verifyContent(path string, fileType chunk.FileType) error {
	return verifyContentAs(path, filepath.Base(path), fileType)
}

// verifyContentAs は name をエラー表示に使う verifyContent
func verifyContentAs(path, name string, fileType chunk.FileType) error {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return apperror.Storage("ingestion.detect", err)
	}

	var ok bool
	switch fileType {
	case chunk.FileTypePDF:
		ok = mtype.Is("application/pdf")
	case chunk.FileTypeHTML:
		ok = strings.HasPrefix(mtype.String(), "text/")
	}
	if !ok {
		return apperror.Validation("ingestion.detect", "%s: %w (detected %s)", name, ErrContentMismatch, mtype.String())
	}
	return nil
}
