/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package uploader pushes chapter pages to an S3-compatible bucket
// (Cloudflare R2) and returns their public links in page order.
package uploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"chapterpress/internal/config"
	"chapterpress/internal/domain"
	applog "chapterpress/internal/log"
)

// objectWriter is the slice of the minio client the uploader needs.
type objectWriter interface {
	PutObject(ctx context.Context, bucket, name string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// R2Uploader processes and uploads chapter pages concurrently. Safe for use
// from a single publish at a time; the editor serializes publishes anyway.
type R2Uploader struct {
	client       objectWriter
	bucket       string
	publicDomain string
	workers      int
	logger       *slog.Logger
}

// New builds an uploader from the storage configuration. The endpoint is
// derived from the R2 account id unless overridden.
func New(cfg config.StorageConfig, secretKey string) (*R2Uploader, error) {
	if err := cfg.Validate(secretKey); err != nil {
		return nil, err
	}
	client, err := minio.New(cfg.StorageEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, secretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &R2Uploader{
		client:       client,
		bucket:       cfg.Bucket,
		publicDomain: strings.TrimRight(cfg.PublicDomain, "/"),
		workers:      runtime.NumCPU() * 2,
		logger:       applog.WithComponent("uploader"),
	}, nil
}

// UploadChapter processes each file (decode, optional resize, JPEG encode)
// and uploads it, returning one public link per input path in the same
// order. The first failure cancels the remaining uploads.
func (u *R2Uploader) UploadChapter(ctx context.Context, paths []string, s domain.SettingsRecord) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	start := time.Now()
	batch := time.Now().UnixNano()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	links := make([]string, len(paths))
	sem := make(chan struct{}, u.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for i, path := range paths {
		wg.Add(1)
		go func(index int, srcPath string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			page, err := processFile(srcPath, s)
			if err != nil {
				fail(fmt.Errorf("%s: %w", filepath.Base(srcPath), err))
				return
			}
			name := objectName(batch, index, srcPath)
			_, err = u.client.PutObject(ctx, u.bucket, name,
				bytes.NewReader(page.data), int64(len(page.data)),
				minio.PutObjectOptions{ContentType: "image/jpeg"})
			if err != nil {
				fail(fmt.Errorf("upload %s: %w", filepath.Base(srcPath), err))
				return
			}
			mu.Lock()
			links[index] = u.publicDomain + "/" + name
			mu.Unlock()
		}(i, path)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	u.logger.Info("chapter uploaded",
		slog.Int("pages", len(paths)),
		slog.Duration("took", time.Since(start)))
	return links, nil
}

// objectName keys pages by batch timestamp and position so listing the
// bucket shows chapters grouped and pages ordered.
func objectName(batch int64, index int, srcPath string) string {
	base := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	return fmt.Sprintf("%d/%03d_%s.jpg", batch, index, base)
}
