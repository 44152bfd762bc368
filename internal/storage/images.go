package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"foodshare/internal/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectAPI is the part of the S3 client the image store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ImageStore keeps donation photos in one bucket. The key it returns is what
// donations carry as imageRef.
type ImageStore struct {
	client ObjectAPI
	bucket string
}

func NewImageStore(client ObjectAPI, bucket string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket}
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Upload writes the image under donations/<donorID>/<nanoid><ext>.
func (s *ImageStore) Upload(ctx context.Context, donorID, contentType string, body io.Reader) (string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", fmt.Errorf("unsupported image content type %q", contentType)
	}

	key := path.Join("donations", donorID, utils.NanoID()+ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to s3: %w", err)
	}

	return key, nil
}

// Delete removes an uploaded image. It is used to clean up when the donation
// that references it could not be created.
func (s *ImageStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return utils.ErrorWrapOrNil(err, fmt.Sprintf("failed to delete image %s from s3", key))
}
