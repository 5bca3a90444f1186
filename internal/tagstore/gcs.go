package tagstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const locationMetadataKey = "location"

// GCSBackend keeps one sidecar object per track in a Google Cloud Storage
// bucket.
type GCSBackend struct {
	client       *storage.Client
	bucket       string
	objectPrefix string
}

// NewGCSBackend creates a GCS client, using application default credentials
// when no credentials file is given.
func NewGCSBackend(ctx context.Context, bucketName, objectPrefix, credentialsFile string) (*GCSBackend, error) {
	var client *storage.Client
	var err error

	if credentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSBackend{
		client:       client,
		bucket:       bucketName,
		objectPrefix: strings.Trim(objectPrefix, "/"),
	}, nil
}

func (b *GCSBackend) objectName(location string) string {
	name := objectKey(location) + sidecarExt
	if b.objectPrefix != "" {
		return path.Join(b.objectPrefix, name)
	}
	return name
}

func (b *GCSBackend) read(ctx context.Context, name string) (sidecarDoc, error) {
	doc := sidecarDoc{Frames: Frames{}}

	r, err := b.client.Bucket(b.bucket).Object(name).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("failed to open object %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return doc, fmt.Errorf("failed to read object %s: %w", name, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("failed to parse object %s: %w", name, err)
	}
	if doc.Frames == nil {
		doc.Frames = Frames{}
	}
	return doc, nil
}

func (b *GCSBackend) Load(ctx context.Context, location, prefix string) (Frames, error) {
	doc, err := b.read(ctx, b.objectName(location))
	if err != nil {
		return nil, err
	}
	frames := Frames{}
	for desc, text := range doc.Frames {
		if strings.HasPrefix(desc, prefix) {
			frames[desc] = text
		}
	}
	return frames, nil
}

func (b *GCSBackend) Save(ctx context.Context, location, prefix string, frames Frames) error {
	name := b.objectName(location)
	doc, err := b.read(ctx, name)
	if err != nil {
		return err
	}
	doc.Location = location
	mergeFrames(doc.Frames, prefix, frames)

	obj := b.client.Bucket(b.bucket).Object(name)
	if len(doc.Frames) == 0 {
		if err := obj.Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return fmt.Errorf("failed to delete object %s: %w", name, err)
		}
		return nil
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode object %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	wc := obj.NewWriter(ctx)
	wc.ContentType = "application/json"
	wc.Metadata = map[string]string{locationMetadataKey: location}
	if _, err := wc.Write(data); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// List returns the locations recorded in the metadata of every sidecar
// object under the prefix.
func (b *GCSBackend) List(ctx context.Context) ([]string, error) {
	query := &storage.Query{}
	if b.objectPrefix != "" {
		query.Prefix = b.objectPrefix + "/"
	}

	it := b.client.Bucket(b.bucket).Objects(ctx, query)
	var results []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}
		if !strings.HasSuffix(attrs.Name, sidecarExt) {
			continue
		}
		if location, ok := attrs.Metadata[locationMetadataKey]; ok {
			results = append(results, location)
		}
	}
	sort.Strings(results)
	return results, nil
}

// Close closes the GCS client.
func (b *GCSBackend) Close() error {
	return b.client.Close()
}
