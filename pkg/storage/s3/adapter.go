package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"linkchain/pkg/storage"
	"linkchain/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

const (
	defaultRegion = "us-east-1"
	recordMIME    = "application/vnd.ipld.dag-cbor"
)

// 条件写入失败的错误码：对象已存在，或同一个 Key 正在被并发写入
var alreadyWritten = []string{"PreconditionFailed", "ConditionalRequestConflict"}

// Adapter 把链节点记录存到 S3 兼容的对象存储 (AWS / MinIO)
// 对象布局与 disk 一致: <prefix>aa/bbcc...
type Adapter struct {
	api    *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

type Config struct {
	Endpoint        string // 为空时使用 AWS 默认 Endpoint
	Region          string
	Bucket          string
	AccessKeyID     string // 为空时走 SDK 默认凭证链
	SecretAccessKey string
	Prefix          string // 让多条链的仓库共享一个 Bucket，例如 "links/"
	Logger          *slog.Logger
}

func NewAdapter(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	api, err := newClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		api:    api,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
		logger: logger,
	}
	a.ensureBucket(ctx)
	return a, nil
}

func newClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		// MinIO 只支持 path style: http://host:9000/bucket/key
		o.UsePathStyle = true
	}), nil
}

// ensureBucket 尽力创建 Bucket，失败只告警，真正的问题会在第一次写入时暴露
func (a *Adapter) ensureBucket(ctx context.Context) {
	if _, err := a.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err == nil {
		return
	}
	_, err := a.api.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	var owned *s3types.BucketAlreadyOwnedByYou
	if err == nil || errors.As(err, &owned) {
		return
	}
	a.logger.Warn("s3 bucket not ready, writes may fail", slog.String("bucket", a.bucket), slog.Any("err", err))
}

// normalizePrefix 统一成 "xxx/" 或空串
func normalizePrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

func (a *Adapter) objectKey(hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return a.prefix + h
	}
	return a.prefix + h[:2] + "/" + h[2:]
}

// hashFromKey 是 objectKey 的逆运算；不属于本仓库布局的 Key 返回 false
func (a *Adapter) hashFromKey(key string) (types.Hash, bool) {
	rest, ok := strings.CutPrefix(key, a.prefix)
	if !ok {
		return "", false
	}
	shard, tail, ok := strings.Cut(rest, "/")
	if !ok || len(shard) != 2 {
		return "", false
	}
	h := types.Hash(shard + tail)
	return h, h.IsValid()
}

// Put 用 If-None-Match 做条件写入，一次请求完成去重
func (a *Adapter) Put(ctx context.Context, obj storage.Object) error {
	data := obj.Bytes()
	_, err := a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(a.objectKey(obj.ID())),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(recordMIME),
		IfNoneMatch:   aws.String("*"),
	})
	if err == nil || hasCode(err, alreadyWritten...) {
		return nil
	}
	return fmt.Errorf("s3 put %s: %w", obj.ID().Short(), err)
}

func (a *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	resp, err := a.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(hash)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", hash.Short(), err)
	}
	return resp.Body, nil
}

func (a *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := a.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.objectKey(hash)),
	})
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("s3 head %s: %w", hash.Short(), err)
	}
}

// ExpandHash 用 ListObjectsV2 的前缀查询扩展短哈希
// 只取两个 Key 就能区分 "不存在 / 唯一 / 歧义"
func (a *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	if len(short) < storage.MinPrefixLen {
		return "", fmt.Errorf("hash prefix too short")
	}
	resp, err := a.api.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(a.objectKey(types.Hash(short))),
		MaxKeys: aws.Int32(2),
	})
	if err != nil {
		return "", fmt.Errorf("s3 list failed: %w", err)
	}

	var matches []types.Hash
	for _, obj := range resp.Contents {
		if h, ok := a.hashFromKey(aws.ToString(obj.Key)); ok {
			matches = append(matches, h)
		}
	}
	switch len(matches) {
	case 0:
		return "", storage.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return "", storage.ErrAmbiguousHash
	}
}

// isNotFound 兼容 typed 错误和只返回裸 404 的 S3 实现
func isNotFound(err error) bool {
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return true
	}
	var resp *awshttp.ResponseError
	return errors.As(err, &resp) && resp.HTTPStatusCode() == http.StatusNotFound
}

func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && slices.Contains(codes, apiErr.ErrorCode())
}
