// Package publish uploads a build output directory to S3-compatible object
// storage.
package publish

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/pages/internal/build"
	pageserrors "github.com/vango-dev/pages/internal/errors"
	"github.com/vango-dev/pages/pkg/assets"
)

// DefaultConcurrency is the number of uploads in flight when Options leaves
// it unset.
const DefaultConcurrency = 8

// MetadataSHA256 is the object metadata key holding the file digest.
const MetadataSHA256 = "sha256"

// Client is the subset of *s3.Client the publisher uses.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Options configures a Publisher.
type Options struct {
	// Concurrency bounds parallel uploads (default 8).
	Concurrency int

	// Logger receives progress logs. Nil uses slog.Default().
	Logger *slog.Logger

	// DryRun lists what would be uploaded without calling the client.
	DryRun bool

	// OnUpload is called after each object is stored.
	OnUpload func(key string, size int64)
}

// Result summarizes a publish.
type Result struct {
	Files int
	Bytes int64
}

// Publisher uploads files to one bucket under a key prefix.
type Publisher struct {
	client  Client
	bucket  string
	prefix  string
	options Options
	logger  *slog.Logger
}

// New creates a publisher.
func New(client Client, bucket, prefix string, opts Options) *Publisher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		client:  client,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		options: opts,
		logger:  logger.With("component", "publish"),
	}
}

// Key returns the object key for a slash-separated output path.
func (p *Publisher) Key(rel string) string {
	if p.prefix == "" {
		return rel
	}
	return path.Join(p.prefix, rel)
}

// Publish uploads every regular file under dir. Assets go first and HTML
// last, so a page is never visible before the files it references. The
// first failure cancels the remaining uploads.
func (p *Publisher) Publish(ctx context.Context, dir string) (Result, error) {
	files, err := listFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, pageserrors.New("E161").WithDetail(dir + " does not exist")
		}
		return Result{}, pageserrors.New("E160").Wrap(err)
	}
	if len(files) == 0 {
		return Result{}, pageserrors.New("E161").WithDetail(dir + " is empty")
	}

	var digests map[string]string
	if m, err := build.ReadManifest(dir); err == nil {
		digests = m.Files
	} else if !errors.Is(err, fs.ErrNotExist) {
		p.logger.Warn("manifest unreadable, uploading without digests", "error", err)
	}

	var assetFiles, pages []string
	for _, rel := range files {
		if assets.IsHTML(rel) {
			pages = append(pages, rel)
		} else {
			assetFiles = append(assetFiles, rel)
		}
	}

	var result Result
	for _, batch := range [][]string{assetFiles, pages} {
		n, size, err := p.upload(ctx, dir, batch, digests)
		result.Files += n
		result.Bytes += size
		if err != nil {
			return result, err
		}
	}

	p.logger.Info("published", "bucket", p.bucket, "prefix", p.prefix, "files", result.Files, "bytes", result.Bytes)
	return result, nil
}

func (p *Publisher) upload(ctx context.Context, dir string, files []string, digests map[string]string) (int, int64, error) {
	var count, size atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.Concurrency)
	for _, rel := range files {
		g.Go(func() error {
			n, err := p.put(gctx, dir, rel, digests[rel])
			if err != nil {
				return pageserrors.New("E160").
					WithDetail("uploading " + p.Key(rel)).
					Wrap(err)
			}
			count.Add(1)
			size.Add(n)
			return nil
		})
	}
	err := g.Wait()
	return int(count.Load()), size.Load(), err
}

func (p *Publisher) put(ctx context.Context, dir, rel, digest string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	key := p.Key(rel)
	if p.options.DryRun {
		p.logger.Info("would upload", "key", key, "bytes", info.Size())
		return info.Size(), nil
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(assets.ContentType(rel)),
		CacheControl:  aws.String(assets.CacheControl(rel)),
	}
	if digest != "" {
		input.Metadata = map[string]string{MetadataSHA256: digest}
	}

	if _, err := p.client.PutObject(ctx, input); err != nil {
		return 0, err
	}

	p.logger.Debug("uploaded", "key", key, "bytes", info.Size())
	if p.options.OnUpload != nil {
		p.options.OnUpload(key, info.Size())
	}
	return info.Size(), nil
}

// listFiles returns every regular file under dir as sorted slash paths.
func listFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "publish", Path: dir, Err: fs.ErrNotExist}
	}

	var files []string
	err = fs.WalkDir(os.DirFS(dir), ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, name)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}
