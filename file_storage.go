package main

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// --------- User file storage ---------

// StoredFile is one saved source file. (UserID, Filename) is unique: a
// second write to the same pair replaces the record in place.
type StoredFile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Filename  string    `json:"filename"`
	Language  string    `json:"language"`
	Content   string    `json:"content,omitempty"`
	Size      int64     `json:"size"`
	Origin    string    `json:"origin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FileStorage keeps user files in Redis. Each file is a hash keyed by
// (user, filename); a set per user indexes the filenames and a flat
// id -> key mapping supports lookup by id.
type FileStorage struct {
	client *redis.Client
}

func NewFileStorage(client *redis.Client) *FileStorage {
	return &FileStorage{client: client}
}

func fileKey(userID, filename string) string {
	return fmt.Sprintf("file:%s:%s", userID, filename)
}

func fileIndexKey(userID string) string {
	return fmt.Sprintf("files:index:%s", userID)
}

func fileIDKey(id string) string {
	return fmt.Sprintf("file:id:%s", id)
}

// PersistFile validates, classifies and upserts a file record. The write
// is a single MULTI/EXEC transaction: HSetNX pins identity and creation
// time for the first writer, HSet overwrites the mutable fields, so two
// concurrent writers to the same (user, filename) end up with one record.
func (fs *FileStorage) PersistFile(ctx context.Context, userID, filename, language, content, origin string) (*StoredFile, error) {
	if userID == "" {
		return nil, fmt.Errorf("User ID is required to store a file")
	}
	if filename == "" {
		return nil, fmt.Errorf("Filename is required")
	}
	if content == "" {
		return nil, fmt.Errorf("File content is required")
	}

	normalizedLanguage, err := detectFileLanguage(filename, language)
	if err != nil {
		return nil, err
	}

	size := int64(len(content)) // UTF-8 byte length
	now := time.Now().UTC()
	key := fileKey(userID, filename)
	candidateID := uuid.NewString()

	_, err = fs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, "id", candidateID)
		pipe.HSetNX(ctx, key, "user_id", userID)
		pipe.HSetNX(ctx, key, "filename", filename)
		pipe.HSetNX(ctx, key, "created_at", now.Format(time.RFC3339Nano))
		pipe.HSet(ctx, key,
			"language", normalizedLanguage,
			"content", content,
			"size", strconv.FormatInt(size, 10),
			"origin", origin,
			"updated_at", now.Format(time.RFC3339Nano),
		)
		pipe.SAdd(ctx, fileIndexKey(userID), filename)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store file in Redis: %v", err)
	}

	doc, err := fs.readFile(ctx, key)
	if err != nil {
		return nil, err
	}
	// Keep the id lookup current; idempotent when the record already
	// existed.
	if err := fs.client.Set(ctx, fileIDKey(doc.ID), key, 0).Err(); err != nil {
		return nil, fmt.Errorf("failed to index file id: %v", err)
	}

	log.Printf("📁 [FILES] Stored %s for user %s (%d bytes, %s, origin=%s)", filename, userID, size, normalizedLanguage, origin)
	return doc, nil
}

// GetFile retrieves one file by id, scoped to its owner.
func (fs *FileStorage) GetFile(ctx context.Context, userID, id string) (*StoredFile, error) {
	key, err := fs.client.Get(ctx, fileIDKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("file not found: %s", id)
		}
		return nil, fmt.Errorf("failed to look up file id: %v", err)
	}

	doc, err := fs.readFile(ctx, key)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, fmt.Errorf("file not found: %s", id)
	}
	return doc, nil
}

// ListFiles returns the metadata of every file a user owns, newest
// update first. Content is omitted.
func (fs *FileStorage) ListFiles(ctx context.Context, userID string) ([]StoredFile, error) {
	filenames, err := fs.client.SMembers(ctx, fileIndexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %v", err)
	}

	files := make([]StoredFile, 0, len(filenames))
	for _, filename := range filenames {
		doc, err := fs.readFile(ctx, fileKey(userID, filename))
		if err != nil {
			log.Printf("⚠️ [FILES] Skipping unreadable file %s for user %s: %v", filename, userID, err)
			continue
		}
		doc.Content = ""
		files = append(files, *doc)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].UpdatedAt.After(files[j].UpdatedAt)
	})
	return files, nil
}

func (fs *FileStorage) readFile(ctx context.Context, key string) (*StoredFile, error) {
	fields, err := fs.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read file from Redis: %v", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("file not found")
	}

	size, _ := strconv.ParseInt(fields["size"], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, fields["updated_at"])

	return &StoredFile{
		ID:        fields["id"],
		UserID:    fields["user_id"],
		Filename:  fields["filename"],
		Language:  fields["language"],
		Content:   fields["content"],
		Size:      size,
		Origin:    fields["origin"],
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}
