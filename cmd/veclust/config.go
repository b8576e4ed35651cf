package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/veclust"
	"github.com/hupe1980/veclust/blobstore"
	minioblob "github.com/hupe1980/veclust/blobstore/minio"
	s3blob "github.com/hupe1980/veclust/blobstore/s3"
	"github.com/hupe1980/veclust/codec"
	"github.com/hupe1980/veclust/model"
)

// Config is the YAML configuration file of the CLI. Flags override it.
type Config struct {
	Clusters               int     `yaml:"clusters"`
	MaxEpochs              int     `yaml:"max_epochs"`
	MinRelativeImprovement float64 `yaml:"min_relative_improvement"`
	KMeansPlusPlus         bool    `yaml:"kmeans_plus_plus"`
	Workers                int     `yaml:"workers"`
	// Seed makes runs reproducible. Zero picks a random seed.
	Seed      uint64 `yaml:"seed"`
	Lowercase bool   `yaml:"lowercase"`

	Log   LogConfig   `yaml:"log"`
	Store StoreConfig `yaml:"store"`
	Model ModelConfig `yaml:"model"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects where models are saved.
type StoreConfig struct {
	// Type is one of "local", "minio" or "s3".
	Type      string `yaml:"type"`
	Path      string `yaml:"path"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    bool   `yaml:"secure"`
}

// ModelConfig controls how models are encoded.
type ModelConfig struct {
	Codec       string `yaml:"codec"`
	Compression string `yaml:"compression"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		Clusters:               8,
		MaxEpochs:              veclust.DefaultMaxEpochs,
		MinRelativeImprovement: veclust.DefaultMinRelativeImprovement,
		KMeansPlusPlus:         true,
		Workers:                1,
		Lowercase:              true,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Store: StoreConfig{
			Type: "local",
			Path: "models",
		},
		Model: ModelConfig{
			Codec:       codec.Default.Name(),
			Compression: "zstd",
		},
	}
}

// LoadConfig reads a YAML file over DefaultConfig. An empty path returns
// the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Options converts the clustering settings to veclust options.
func (c Config) Options(logger *veclust.Logger) []veclust.Option {
	return []veclust.Option{
		veclust.WithMaxEpochs(c.MaxEpochs),
		veclust.WithMinRelativeImprovement(c.MinRelativeImprovement),
		veclust.WithKMeansPlusPlus(c.KMeansPlusPlus),
		veclust.WithWorkers(c.Workers),
		veclust.WithLogger(logger),
	}
}

// SaveOptions converts the model settings to model.Save options.
func (c Config) SaveOptions() ([]model.SaveOption, error) {
	cd, ok := codec.ByName(c.Model.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown codec %q", c.Model.Codec)
	}
	return []model.SaveOption{
		model.WithCodec(cd),
		model.WithCompression(c.Model.Compression),
	}, nil
}

// Logger builds the logger described by c.Log.
func (c Config) Logger() (*veclust.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return veclust.NewTextLogger(level), nil
	case "json":
		return veclust.NewJSONLogger(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
	}
}

// OpenStore connects to the configured blob store.
func (c Config) OpenStore(ctx context.Context) (blobstore.Store, error) {
	s := c.Store
	switch strings.ToLower(s.Type) {
	case "", "local":
		return blobstore.NewLocalStore(s.Path), nil

	case "memory":
		return blobstore.NewMemoryStore(), nil

	case "minio":
		if s.Endpoint == "" || s.Bucket == "" {
			return nil, fmt.Errorf("minio store needs endpoint and bucket")
		}
		client, err := miniogo.New(s.Endpoint, &miniogo.Options{
			Creds:  credentials.NewStaticV4(s.AccessKey, s.SecretKey, ""),
			Secure: s.Secure,
			Region: s.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minioblob.NewStore(client, s.Bucket, s.Prefix), nil

	case "s3":
		if s.Bucket == "" {
			return nil, fmt.Errorf("s3 store needs a bucket")
		}
		var loadOpts []func(*awsconfig.LoadOptions) error
		if s.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(s.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
			if s.Endpoint != "" {
				o.BaseEndpoint = aws.String(s.Endpoint)
				o.UsePathStyle = true
			}
		})
		return s3blob.NewStore(client, s.Bucket, s.Prefix), nil

	default:
		return nil, fmt.Errorf("unknown store type %q", s.Type)
	}
}
