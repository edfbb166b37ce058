package s3

import (
	"context"
	"io"
	"os"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
)

var (
	AttachmentBucket *oss.Bucket

	GetObjectFunc   func(context.Context, string, ...oss.Option) (io.ReadCloser, error)
	PutObjectFunc   func(context.Context, string, io.Reader, ...oss.Option) error
	CopyObjectFunc  func(context.Context, string, string, ...oss.Option) error
	ListObjectsFunc func(context.Context, string) ([]string, error)
)

func Bootstrap() {
	var err error
	AttachmentBucket, err = BuildBucketFromEnv()
	if err != nil {
		panic(err)
	}

	GetObjectFunc = GetObject
	PutObjectFunc = PutObject
	CopyObjectFunc = CopyObject
	ListObjectsFunc = ListObjects
}

func BuildBucketFromEnv() (*oss.Bucket, error) {
	endpoint := os.ExpandEnv(os.Getenv("OSS_ENDPOINT"))
	if endpoint == "" {
		endpoint = "dummy"
	}
	accessKey := os.Getenv("OSS_ACCESS_KEY")
	secretKey := os.Getenv("OSS_SECRET_KEY")
	bucket := os.Getenv("OSS_BUCKET")
	if bucket == "" {
		bucket = "approvalflow"
	}
	return BuildBucket(endpoint, accessKey, secretKey, bucket)
}

func BuildBucket(endpoint, accesskey, secretKey, bucketName string) (*oss.Bucket, error) {
	// endpoint http://oss-cn-hangzhou.aliyuncs.com
	cli, err := oss.New(endpoint, accesskey, secretKey, oss.HTTPClient(nil))
	if err != nil {
		return nil, err
	}

	bucket, err := cli.Bucket(bucketName)
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// startSpan opens a child span of the span carried by ctx, nil when ctx carries none.
func startSpan(ctx context.Context, operation, key string) opentracing.Span {
	if ctx == nil {
		return nil
	}
	parentSpan := opentracing.SpanFromContext(ctx)
	if parentSpan == nil {
		return nil
	}
	sp := parentSpan.Tracer().StartSpan(operation, opentracing.ChildOf(parentSpan.Context()))
	sp.SetTag("object-key", key)
	return sp
}

func finishSpan(sp opentracing.Span, err error) {
	if sp != nil {
		ext.Error.Set(sp, err != nil)
		sp.Finish()
	}
}

func GetObject(ctx context.Context, key string, opts ...oss.Option) (io.ReadCloser, error) {
	sp := startSpan(ctx, "get-object", key)
	r, err := AttachmentBucket.GetObject(key, opts...)
	finishSpan(sp, err)
	return r, err
}

func PutObject(ctx context.Context, key string, r io.Reader, opts ...oss.Option) error {
	sp := startSpan(ctx, "put-object", key)
	err := AttachmentBucket.PutObject(key, r, opts...)
	finishSpan(sp, err)
	return err
}

func CopyObject(ctx context.Context, srcKey, dstKey string, opts ...oss.Option) error {
	sp := startSpan(ctx, "copy-object", srcKey)
	if sp != nil {
		sp.SetTag("destination-key", dstKey)
	}
	_, err := AttachmentBucket.CopyObject(srcKey, dstKey, opts...)
	finishSpan(sp, err)
	return err
}

// ListObjects returns the keys under prefix, following the pagination markers of the bucket.
func ListObjects(ctx context.Context, prefix string) ([]string, error) {
	sp := startSpan(ctx, "list-objects", prefix)
	var keys []string
	marker := oss.Marker("")
	pre := oss.Prefix(prefix)
	for {
		// default page size is 100
		r, err := AttachmentBucket.ListObjects(marker, pre)
		if err != nil {
			finishSpan(sp, err)
			return nil, err
		}
		for _, o := range r.Objects {
			keys = append(keys, o.Key)
		}
		if !r.IsTruncated {
			break
		}
		pre = oss.Prefix(r.Prefix)
		marker = oss.Marker(r.NextMarker)
	}
	finishSpan(sp, nil)
	return keys, nil
}
