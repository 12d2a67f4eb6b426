package publish

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/pages/internal/errors"
)

type object struct {
	Body         string
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

type fakeClient struct {
	mu       sync.Mutex
	objects  map[string]object
	order    []string
	inFlight int
	maxIn    int
	failKey  string
	delay    time.Duration
}

func (c *fakeClient) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	c.mu.Lock()
	c.inFlight++
	if c.inFlight > c.maxIn {
		c.maxIn = c.inFlight
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight--
		c.mu.Unlock()
	}()

	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	key := aws.ToString(in.Key)
	if key == c.failKey {
		return nil, stderrors.New("access denied")
	}

	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.objects == nil {
		c.objects = map[string]object{}
	}
	c.objects[key] = object{
		Body:         string(body),
		ContentType:  aws.ToString(in.ContentType),
		CacheControl: aws.ToString(in.CacheControl),
		Metadata:     in.Metadata,
	}
	c.order = append(c.order, key)
	return &s3.PutObjectOutput{}, nil
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestPublish(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":               "<html></html>",
		"orders/[id]/index.html":   "<html>order</html>",
		"assets/index-BxkqN3aE.js": "console.log(1)",
		"vite.svg":                 "<svg/>",
		"manifest.json":            `{"files":{"vite.svg":"abc123"}}`,
	})

	client := &fakeClient{}
	var uploaded []string
	var mu sync.Mutex
	p := New(client, "site", "/v1/", Options{OnUpload: func(key string, _ int64) {
		mu.Lock()
		uploaded = append(uploaded, key)
		mu.Unlock()
	}})

	res, err := p.Publish(context.Background(), dir)
	if err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if res.Files != 5 {
		t.Errorf("Files = %d, want 5", res.Files)
	}
	wantBytes := int64(len("<html></html>") + len("<html>order</html>") + len("console.log(1)") + len("<svg/>") + len(`{"files":{"vite.svg":"abc123"}}`))
	if res.Bytes != wantBytes {
		t.Errorf("Bytes = %d, want %d", res.Bytes, wantBytes)
	}

	want := map[string]object{
		"v1/index.html": {
			Body:         "<html></html>",
			ContentType:  "text/html; charset=utf-8",
			CacheControl: "no-cache",
		},
		"v1/orders/[id]/index.html": {
			Body:         "<html>order</html>",
			ContentType:  "text/html; charset=utf-8",
			CacheControl: "no-cache",
		},
		"v1/assets/index-BxkqN3aE.js": {
			Body:         "console.log(1)",
			ContentType:  "text/javascript; charset=utf-8",
			CacheControl: "public, max-age=31536000, immutable",
		},
		"v1/vite.svg": {
			Body:         "<svg/>",
			ContentType:  "image/svg+xml",
			CacheControl: "public, max-age=3600, must-revalidate",
			Metadata:     map[string]string{MetadataSHA256: "abc123"},
		},
		"v1/manifest.json": {
			Body:         `{"files":{"vite.svg":"abc123"}}`,
			ContentType:  "application/json",
			CacheControl: "public, max-age=3600, must-revalidate",
		},
	}
	if diff := cmp.Diff(want, client.objects); diff != "" {
		t.Errorf("objects mismatch (-want +got):\n%s", diff)
	}

	sort.Strings(uploaded)
	if len(uploaded) != 5 {
		t.Errorf("OnUpload called %d times, want 5", len(uploaded))
	}
}

func TestPublishUploadsHTMLLast(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":   "<html></html>",
		"about/a.html": "<html></html>",
		"assets/a.js":  "a",
		"assets/b.css": "b",
		"zzz.txt":      "z",
	})
	client := &fakeClient{}
	if _, err := New(client, "site", "", Options{}).Publish(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	seenHTML := false
	for _, key := range client.order {
		isHTML := filepath.Ext(key) == ".html"
		if seenHTML && !isHTML {
			t.Fatalf("asset %s uploaded after HTML; order %v", key, client.order)
		}
		seenHTML = seenHTML || isHTML
	}
}

func TestPublishConcurrencyLimit(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["assets/"+name+".js"] = name
	}
	dir := writeTree(t, files)

	client := &fakeClient{delay: 20 * time.Millisecond}
	if _, err := New(client, "site", "", Options{Concurrency: 2}).Publish(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if client.maxIn > 2 {
		t.Errorf("max in-flight uploads = %d, want <= 2", client.maxIn)
	}
}

func TestPublishFailure(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"index.html":  "<html></html>",
		"assets/a.js": "a",
	})
	client := &fakeClient{failKey: "assets/a.js"}

	_, err := New(client, "site", "", Options{}).Publish(context.Background(), dir)
	if !errors.HasCode(err, "E160") {
		t.Fatalf("Publish() error = %v, want E160", err)
	}
	if _, ok := client.objects["index.html"]; ok {
		t.Error("HTML uploaded after an asset failed")
	}
}

func TestPublishNothing(t *testing.T) {
	client := &fakeClient{}
	p := New(client, "site", "", Options{})

	if _, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "dist")); !errors.HasCode(err, "E161") {
		t.Errorf("missing dir: error = %v, want E161", err)
	}
	if _, err := p.Publish(context.Background(), t.TempDir()); !errors.HasCode(err, "E161") {
		t.Errorf("empty dir: error = %v, want E161", err)
	}
}

func TestPublishDryRun(t *testing.T) {
	dir := writeTree(t, map[string]string{"index.html": "<html></html>"})
	client := &fakeClient{}

	res, err := New(client, "site", "", Options{DryRun: true}).Publish(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if res.Files != 1 || len(client.objects) != 0 {
		t.Errorf("dry run: result %+v, %d objects stored", res, len(client.objects))
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix, rel, want string
	}{
		{"", "index.html", "index.html"},
		{"site", "assets/a.js", "site/assets/a.js"},
		{"/site/v2/", "index.html", "site/v2/index.html"},
	}
	for _, tt := range tests {
		if got := New(nil, "b", tt.prefix, Options{}).Key(tt.rel); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.prefix, tt.rel, got, tt.want)
		}
	}
}
