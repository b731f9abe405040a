// Package minio backs filestore.Store with any S3-compatible endpoint
// via the MinIO SDK.
package minio

import (
	"context"
	"io"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/framesync/framesync/internal/errs"
	"github.com/framesync/framesync/internal/filestore"
)

// Driver implements filestore.Store. Safe for concurrent use.
type Driver struct {
	client *miniogo.Client
}

// New builds a client for cfg and verifies it can reach the endpoint
// before handing it out.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindConnectionFailed, "creating object store client", err)
	}
	d := &Driver{client: client}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) Get(ctx context.Context, bucket, key string) (filestore.Object, error) {
	h, err := d.client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "opening object")
	}

	// GetObject is lazy; Stat forces the first round trip so a missing
	// key surfaces here as KindNotFound instead of mid-parse.
	stat, err := h.Stat()
	if err != nil {
		h.Close()
		return nil, mapError(err, "opening object")
	}

	return &object{
		ReadCloser: h,
		info: filestore.ObjectInfo{
			Key:          key,
			Size:         stat.Size,
			ContentType:  stat.ContentType,
			LastModified: stat.LastModified,
		},
	}, nil
}

func (d *Driver) List(ctx context.Context, bucket, prefix string) ([]filestore.ObjectInfo, error) {
	var infos []filestore.ObjectInfo
	for obj := range d.client.ListObjects(ctx, bucket, miniogo.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "listing objects")
		}
		infos = append(infos, filestore.ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			ContentType:  obj.ContentType,
			LastModified: obj.LastModified,
		})
	}
	return infos, nil
}

// Ping lists buckets, the cheapest call that exercises both network and
// credentials.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "object store unreachable")
	}
	return nil
}

// Close is a no-op; the SDK client keeps no persistent connections.
func (d *Driver) Close() error { return nil }

type object struct {
	io.ReadCloser
	info filestore.ObjectInfo
}

func (o *object) Info() filestore.ObjectInfo { return o.info }
