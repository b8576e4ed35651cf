// Package s3 provides an S3 implementation of the blobstore.Store interface.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := awss3.NewFromConfig(cfg)
//	store := s3.NewStore(client, "my-bucket", "models/")
//
//	err = model.Save(ctx, store, "news", result.Model())
//
// # Features
//
//   - Multipart uploads for large models
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
