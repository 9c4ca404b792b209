// Package store persists graph function archives in pluggable object
// storage backends.
//
// # Backends
//
//   - store/local: local filesystem, for development and tests
//   - store/s3: Amazon S3 and S3-compatible storage
//
// Import a backend for its side effect to register its factory:
//
//	import _ "github.com/kbukum/gfnkit/store/local"
//
//	s, err := store.New(ctx, store.Config{Provider: "local", BasePath: "./archives"}, log)
//
// # Configuration
//
//	storage:
//	  provider: "s3"
//	  bucket: "models"
//	  region: "us-east-1"
//	  prefix: "gfn/"
package store
