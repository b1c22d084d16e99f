// Package s3 provides an S3-backed Storage backend.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/collectivefs/collectivefs/pkg/storage"
)

// S3Storage implements storage.Storage on an S3 (or S3-compatible) bucket.
//
// Key Design:
//   - Files map to objects at "<keyPrefix><path>".
//   - Folders map to zero-byte marker objects at "<keyPrefix><path>/".
//   - The storage root ("") is implicit and always exists.
//
// The marker-object convention keeps folders visible to Stat/List even when
// empty, and keeps the bucket contents human-inspectable: the object tree
// mirrors the storage tree exactly.
//
// S3 Characteristics:
//   - Copy and Rename are object-by-object (S3 has no server-side recursive
//     copy); both honour context cancellation between objects.
//   - Last-write-wins on concurrent writes, per S3's consistency model.
//
// Thread Safety:
// The S3 client is safe for concurrent use; S3Storage holds no mutable state.
type S3Storage struct {
	client    *awss3.Client
	bucket    string
	keyPrefix string
}

// Config contains configuration for an S3 storage backend.
type Config struct {
	// Client is the configured S3 client
	Client *awss3.Client

	// Bucket is the S3 bucket name; it must already exist
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	KeyPrefix string
}

// NewS3Storage creates an S3-backed storage.
//
// The bucket must already exist; this does not create it or verify access,
// so construction is cheap and the first operation surfaces any credential
// or bucket problem.
func NewS3Storage(cfg Config) (*S3Storage, error) {
	if cfg.Client == nil {
		return nil, errors.New("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	prefix := cfg.KeyPrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &S3Storage{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: prefix,
	}, nil
}

func (s *S3Storage) fileKey(path string) string {
	return s.keyPrefix + path
}

func (s *S3Storage) folderKey(path string) string {
	if path == "" {
		return s.keyPrefix
	}
	return s.keyPrefix + path + "/"
}

func validPath(path string) error {
	if path == "" {
		return nil
	}
	if strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return storage.InvalidPath(path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return storage.InvalidPath(path)
		}
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}

// Stat implements storage.Storage.
func (s *S3Storage) Stat(ctx context.Context, path string) (*storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}
	if err := validPath(path); err != nil {
		return nil, err
	}
	if path == "" {
		// Implicit root.
		return &storage.EntryInfo{Path: "", Mode: storage.ModeFolder, MTime: time.Now()}, nil
	}

	// A file object takes precedence over a folder marker of the same name.
	head, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(path)),
	})
	if err == nil {
		return &storage.EntryInfo{
			Path:  path,
			Name:  storage.BaseName(path),
			Size:  aws.ToInt64(head.ContentLength),
			Mode:  storage.ModeFile,
			MTime: aws.ToTime(head.LastModified),
		}, nil
	}
	if !isNoSuchKey(err) {
		return nil, storage.IOError(path, err)
	}

	head, err = s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.folderKey(path)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, storage.NotFound(path)
		}
		return nil, storage.IOError(path, err)
	}
	return &storage.EntryInfo{
		Path:  path,
		Name:  storage.BaseName(path),
		Size:  0,
		Mode:  storage.ModeFolder,
		MTime: aws.ToTime(head.LastModified),
	}, nil
}

// List implements storage.Storage.
func (s *S3Storage) List(ctx context.Context, path string) ([]storage.EntryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}
	if err := validPath(path); err != nil {
		return nil, err
	}
	if path != "" {
		info, err := s.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		if info.Mode != storage.ModeFolder {
			return nil, storage.NotFolder(path)
		}
	}

	prefix := s.folderKey(path)
	var children []storage.EntryInfo
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storage.IOError(path, err)
		}
		for _, cp := range page.CommonPrefixes {
			full := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), s.keyPrefix), "/")
			children = append(children, storage.EntryInfo{
				Path: full,
				Name: storage.BaseName(full),
				Mode: storage.ModeFolder,
			})
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == prefix {
				// The folder's own marker object.
				continue
			}
			full := strings.TrimPrefix(key, s.keyPrefix)
			children = append(children, storage.EntryInfo{
				Path:  full,
				Name:  storage.BaseName(full),
				Size:  aws.ToInt64(obj.Size),
				Mode:  storage.ModeFile,
				MTime: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children, nil
}

// Read implements storage.Storage.
func (s *S3Storage) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.IOError(path, err)
	}
	if err := validPath(path); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, storage.InvalidPath(path)
	}

	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(path)),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, storage.NotFound(path)
		}
		return nil, storage.IOError(path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, storage.IOError(path, err)
	}
	return data, nil
}

// Write implements storage.Storage.
func (s *S3Storage) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if err := validPath(path); err != nil {
		return err
	}
	if path == "" {
		return storage.InvalidPath(path)
	}
	if err := s.requireFolder(ctx, storage.ParentPath(path)); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fileKey(path)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return storage.IOError(path, err)
	}
	return nil
}

// NewFolder implements storage.Storage.
func (s *S3Storage) NewFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if err := validPath(path); err != nil {
		return err
	}
	if path == "" {
		return storage.AlreadyExists(path)
	}
	if _, err := s.Stat(ctx, path); err == nil {
		return storage.AlreadyExists(path)
	} else if !storage.IsNotFound(err) {
		return err
	}
	if err := s.requireFolder(ctx, storage.ParentPath(path)); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.folderKey(path)),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return storage.IOError(path, err)
	}
	return nil
}

// requireFolder verifies the folder at path exists.
func (s *S3Storage) requireFolder(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	info, err := s.Stat(ctx, path)
	if err != nil {
		return err
	}
	if info.Mode != storage.ModeFolder {
		return storage.NotFolder(path)
	}
	return nil
}

// subtreeKeys returns every object key under the entry at path, including
// the entry's own key(s).
func (s *S3Storage) subtreeKeys(ctx context.Context, path string) ([]string, error) {
	info, err := s.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.Mode == storage.ModeFile {
		return []string{s.fileKey(path)}, nil
	}

	var keys []string
	paginator := awss3.NewListObjectsV2Paginator(s.client, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.folderKey(path)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, storage.IOError(path, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// Copy implements storage.Storage.
func (s *S3Storage) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(src, err)
	}
	if err := validPath(src); err != nil {
		return err
	}
	if err := validPath(dst); err != nil {
		return err
	}
	if dst == "" || src == dst {
		return storage.InvalidPath(dst)
	}
	if _, err := s.Stat(ctx, dst); err == nil {
		return storage.AlreadyExists(dst)
	} else if !storage.IsNotFound(err) {
		return err
	}
	if err := s.requireFolder(ctx, storage.ParentPath(dst)); err != nil {
		return err
	}

	keys, err := s.subtreeKeys(ctx, src)
	if err != nil {
		return err
	}

	srcFile := s.fileKey(src)
	srcFolder := s.folderKey(src)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return storage.IOError(src, err)
		}
		var target string
		switch {
		case key == srcFile:
			target = s.fileKey(dst)
		case strings.HasPrefix(key, srcFolder):
			target = s.folderKey(dst) + strings.TrimPrefix(key, srcFolder)
		default:
			continue
		}
		_, err := s.client.CopyObject(ctx, &awss3.CopyObjectInput{
			Bucket:     aws.String(s.bucket),
			CopySource: aws.String(s.bucket + "/" + key),
			Key:        aws.String(target),
		})
		if err != nil {
			return storage.IOError(src, err)
		}
	}
	return nil
}

// Rename implements storage.Storage.
func (s *S3Storage) Rename(ctx context.Context, src, dst string) error {
	if src == "" {
		return storage.InvalidPath(src)
	}
	if err := s.Copy(ctx, src, dst); err != nil {
		return err
	}
	return s.Delete(ctx, src)
}

// Delete implements storage.Storage.
func (s *S3Storage) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storage.IOError(path, err)
	}
	if err := validPath(path); err != nil {
		return err
	}
	if path == "" {
		return storage.InvalidPath(path)
	}

	keys, err := s.subtreeKeys(ctx, path)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return storage.IOError(path, err)
		}
		_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return storage.IOError(path, err)
		}
	}
	return nil
}
