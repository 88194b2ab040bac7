/*
Copyright © 2021 the PoLA authors.
This file is part of PoLA.

PoLA is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

PoLA is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with PoLA.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package cloud provides access to the blob storage that trail catalogs
// are kept in.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// Bucket is a directory within a blob storage bucket.
type Bucket struct {
	b      *blob.Bucket
	prefix string
	name   string
}

// OpenBucket returns the blob storage directory specified by location,
// which must be in the format 'provider://name/dir' where provider
// is the name of the storage provider, name is the name of the bucket,
// and dir is an optional directory within the bucket.
// The currently accepted storage providers are "file" for the local
// filesystem, "mem" for in-memory storage (e.g., for testing), "gs" for
// Google Cloud Storage, and "s3" for AWS S3. A location without a
// provider is treated as a local directory, which is created if it does
// not exist.
func OpenBucket(ctx context.Context, location string) (*Bucket, error) {
	if !strings.Contains(location, "://") {
		return fileBucket(location, location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("cloud: opening bucket: %w", err)
	}
	var b *blob.Bucket
	switch u.Scheme {
	case "file":
		return fileBucket(filepath.FromSlash(u.Host+u.Path), location)
	case "mem":
		b = memblob.OpenBucket(nil)
	case "gs":
		b, err = gsBucket(ctx, u.Hostname())
	case "s3":
		b, err = s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("cloud: opening bucket: invalid provider %s", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("cloud: opening bucket %s: %w", location, err)
	}
	return &Bucket{b: b, prefix: strings.Trim(u.Path, "/"), name: location}, nil
}

// NewBucket returns a Bucket that stores its blobs under prefix in b.
func NewBucket(b *blob.Bucket, prefix string) *Bucket {
	return &Bucket{b: b, prefix: strings.Trim(prefix, "/"), name: prefix}
}

func fileBucket(dir, name string) (*Bucket, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cloud: opening bucket: %w", err)
	}
	b, err := fileblob.OpenBucket(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: opening bucket %s: %w", name, err)
	}
	return &Bucket{b: b, name: name}, nil
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}

// String returns the location the bucket was opened from.
func (b *Bucket) String() string { return b.name }

func (b *Bucket) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return path.Join(b.prefix, name)
}

// Close releases the bucket.
func (b *Bucket) Close() error { return b.b.Close() }
