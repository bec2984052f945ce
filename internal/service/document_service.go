package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"image"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"

	"taskhub/internal/event"
	"taskhub/internal/model"
	"taskhub/internal/repository"
	"taskhub/internal/storage"
	"taskhub/internal/util"
	"taskhub/pkg/apierror"
)

type DocumentService struct {
	documents        *repository.DocumentRepository
	tasks            *repository.TaskRepository
	members          MembershipStore
	store            *storage.Storage
	allowedMIMETypes map[string]struct{}
	maxUploadSize    int64
	thumbnailRoot    string
	activity         ActivityRecorder
	bus              event.Bus
}

func NewDocumentService(documents *repository.DocumentRepository, tasks *repository.TaskRepository,
	members MembershipStore, store *storage.Storage, allowedMIMETypes []string,
	maxUploadSize int64, thumbnailRoot string, activity ActivityRecorder, bus event.Bus) *DocumentService {
	allowed := make(map[string]struct{}, len(allowedMIMETypes))
	for _, mimeType := range allowedMIMETypes {
		trimmed := strings.TrimSpace(strings.ToLower(mimeType))
		if trimmed == "" {
			continue
		}
		allowed[trimmed] = struct{}{}
	}

	if strings.TrimSpace(thumbnailRoot) == "" {
		thumbnailRoot = "./data/.thumbnails"
	}

	return &DocumentService{
		documents:        documents,
		tasks:            tasks,
		members:          members,
		store:            store,
		allowedMIMETypes: allowed,
		maxUploadSize:    maxUploadSize,
		thumbnailRoot:    thumbnailRoot,
		activity:         activity,
		bus:              bus,
	}
}

func (s *DocumentService) Upload(ctx context.Context, taskID string, filename string, reader io.Reader, uploader *model.AuthClaims) (model.Document, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return model.Document{}, err
	}
	if err := s.requireMember(ctx, task.ProjectID, uploader); err != nil {
		return model.Document{}, err
	}

	safeName, err := util.SanitizeFilename(filename)
	if err != nil {
		return model.Document{}, err
	}

	// Sniff the real content type from the head of the stream before
	// committing anything to disk.
	head := make([]byte, 512)
	n, err := io.ReadFull(reader, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return model.Document{}, err
	}
	head = head[:n]

	mimeType := util.DetectMIME(head)
	if len(s.allowedMIMETypes) > 0 {
		if _, ok := s.allowedMIMETypes[strings.ToLower(mimeType)]; !ok {
			return model.Document{}, apierror.New("UNSUPPORTED_TYPE", "file type not allowed", mimeType, http.StatusUnsupportedMediaType)
		}
	}

	body := io.MultiReader(bytes.NewReader(head), reader)
	if s.maxUploadSize > 0 {
		body = io.LimitReader(body, s.maxUploadSize+1)
	}

	key := taskID + "/" + uuid.NewString() + "_" + safeName
	written, err := s.store.Save(key, body)
	if err != nil {
		return model.Document{}, err
	}
	if s.maxUploadSize > 0 && written > s.maxUploadSize {
		_ = s.store.Remove(key)
		return model.Document{}, apierror.New("PAYLOAD_TOO_LARGE", "file exceeds the upload limit", strconv.FormatInt(s.maxUploadSize, 10), http.StatusRequestEntityTooLarge)
	}

	doc := model.Document{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		UploaderID: uploader.UserID,
		Name:       safeName,
		MimeType:   mimeType,
		Size:       written,
		StorageKey: key,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.documents.Create(ctx, doc); err != nil {
		_ = s.store.Remove(key)
		return model.Document{}, err
	}

	s.activity.Log(ctx, "document.upload", actorFromClaims(uploader), "success", doc.ID, nil,
		map[string]any{"task_id": taskID, "name": doc.Name, "size": doc.Size}, "")

	s.bus.Publish(event.Event{
		ID:        uuid.NewString(),
		Type:      event.TypeDocumentUploaded,
		Payload:   doc,
		Timestamp: doc.CreatedAt.Format(time.RFC3339Nano),
		ActorID:   uploader.UserID,
	})

	return doc, nil
}

func (s *DocumentService) ListForTask(ctx context.Context, taskID string, requester *model.AuthClaims) ([]model.Document, error) {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, task.ProjectID, requester); err != nil {
		return nil, err
	}
	return s.documents.ListForTask(ctx, taskID)
}

// Download opens the stored file for streaming. The caller owns the handle.
func (s *DocumentService) Download(ctx context.Context, documentID string, requester *model.AuthClaims) (model.Document, *os.File, fs.FileInfo, error) {
	doc, err := s.authorize(ctx, documentID, requester)
	if err != nil {
		return model.Document{}, nil, nil, err
	}

	file, info, err := s.store.Open(doc.StorageKey)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Document{}, nil, nil, model.ErrDocumentNotFound
		}
		return model.Document{}, nil, nil, err
	}

	return doc, file, info, nil
}

func (s *DocumentService) Delete(ctx context.Context, documentID string, requester *model.AuthClaims) error {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return err
	}

	if doc.UploaderID != requester.UserID && requester.Role != model.RoleAdmin {
		task, err := s.tasks.FindByID(ctx, doc.TaskID)
		if err != nil {
			return err
		}
		member, err := s.members.FindMember(ctx, task.ProjectID, requester.UserID)
		if err != nil {
			return err
		}
		if member.Role != model.ProjectRoleManager {
			return model.ErrForbidden
		}
	}

	if err := s.documents.Delete(ctx, documentID); err != nil {
		return err
	}
	s.activity.Log(ctx, "document.delete", actorFromClaims(requester), "success", documentID,
		map[string]any{"task_id": doc.TaskID, "name": doc.Name}, nil, "")
	return s.store.Remove(doc.StorageKey)
}

// Thumbnail returns a cached JPEG thumbnail for an image document,
// generating it on first access. Non-image documents are rejected.
func (s *DocumentService) Thumbnail(ctx context.Context, documentID string, size int, requester *model.AuthClaims) (*os.File, fs.FileInfo, error) {
	if size <= 0 {
		size = 256
	}

	doc, err := s.authorize(ctx, documentID, requester)
	if err != nil {
		return nil, nil, err
	}

	if !util.IsThumbnailMIME(doc.MimeType) {
		return nil, nil, apierror.New("UNSUPPORTED_TYPE", "document is not a thumbnailable image", doc.MimeType, http.StatusUnsupportedMediaType)
	}

	resolved, err := s.store.Resolve(doc.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, model.ErrDocumentNotFound
		}
		return nil, nil, err
	}

	if err := os.MkdirAll(s.thumbnailRoot, 0o755); err != nil {
		return nil, nil, err
	}

	thumbPath := s.thumbnailPath(doc.ID, size)
	if thumbInfo, err := os.Stat(thumbPath); err == nil {
		if !thumbInfo.ModTime().Before(info.ModTime()) {
			thumbFile, openErr := os.Open(thumbPath)
			if openErr == nil {
				return thumbFile, thumbInfo, nil
			}
		}
	}

	return s.generateThumbnail(resolved, thumbPath, size)
}

func (s *DocumentService) generateThumbnail(resolved, thumbPath string, size int) (*os.File, fs.FileInfo, error) {
	file, err := os.Open(resolved)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	src, _, err := image.Decode(file)
	if err != nil {
		return nil, nil, apierror.New("UNSUPPORTED_TYPE", "cannot decode image", err.Error(), http.StatusUnsupportedMediaType)
	}

	bounds := src.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, nil, apierror.New("UNSUPPORTED_TYPE", "invalid image dimensions", resolved, http.StatusUnsupportedMediaType)
	}

	maxDim := width
	if height > maxDim {
		maxDim = height
	}
	scale := 1.0
	if maxDim > size {
		scale = float64(size) / float64(maxDim)
	}
	targetWidth := int(float64(width) * scale)
	targetHeight := int(float64(height) * scale)
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	thumbWriter, err := os.OpenFile(thumbPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	if err := jpeg.Encode(thumbWriter, dst, &jpeg.Options{Quality: 82}); err != nil {
		thumbWriter.Close()
		_ = os.Remove(thumbPath)
		return nil, nil, err
	}
	if err := thumbWriter.Close(); err != nil {
		return nil, nil, err
	}

	thumbFile, err := os.Open(thumbPath)
	if err != nil {
		return nil, nil, err
	}
	thumbInfo, err := thumbFile.Stat()
	if err != nil {
		thumbFile.Close()
		return nil, nil, err
	}

	return thumbFile, thumbInfo, nil
}

func (s *DocumentService) thumbnailPath(documentID string, size int) string {
	hash := sha256.Sum256([]byte(documentID + "|" + strconv.Itoa(size)))
	return filepath.Join(s.thumbnailRoot, hex.EncodeToString(hash[:])+".jpg")
}

func (s *DocumentService) authorize(ctx context.Context, documentID string, requester *model.AuthClaims) (model.Document, error) {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return model.Document{}, err
	}

	task, err := s.tasks.FindByID(ctx, doc.TaskID)
	if err != nil {
		return model.Document{}, err
	}
	if err := s.requireMember(ctx, task.ProjectID, requester); err != nil {
		return model.Document{}, err
	}

	return doc, nil
}

func (s *DocumentService) requireMember(ctx context.Context, projectID string, requester *model.AuthClaims) error {
	if requester.Role == model.RoleAdmin {
		return nil
	}
	_, err := s.members.FindMember(ctx, projectID, requester.UserID)
	return err
}
