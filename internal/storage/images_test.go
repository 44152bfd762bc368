package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	puts    []*s3.PutObjectInput
	bodies  []string
	deletes []string
	err     error
}

func (f *fakeObjects) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.puts = append(f.puts, params)
	f.bodies = append(f.bodies, string(body))
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestImageStoreUpload(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{}
	images := NewImageStore(objects, "donation-images")

	key, err := images.Upload(ctx, "donor-1", "image/JPEG", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "donations/donor-1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	require.Len(t, objects.puts, 1)
	assert.Equal(t, "donation-images", aws.ToString(objects.puts[0].Bucket))
	assert.Equal(t, key, aws.ToString(objects.puts[0].Key))
	assert.Equal(t, "image/jpeg", aws.ToString(objects.puts[0].ContentType))
	assert.Equal(t, "jpeg bytes", objects.bodies[0])

	t.Run("unsupported content type", func(t *testing.T) {
		_, err := images.Upload(ctx, "donor-1", "application/pdf", strings.NewReader("%PDF"))
		assert.Error(t, err)
		assert.Len(t, objects.puts, 1)
	})

	t.Run("s3 failure", func(t *testing.T) {
		failing := NewImageStore(&fakeObjects{err: errors.New("access denied")}, "donation-images")
		_, err := failing.Upload(ctx, "donor-1", "image/png", strings.NewReader("png"))
		assert.ErrorContains(t, err, "access denied")
	})
}

func TestImageStoreDelete(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{}
	images := NewImageStore(objects, "donation-images")

	require.NoError(t, images.Delete(ctx, "donations/donor-1/a.png"))
	assert.Equal(t, []string{"donations/donor-1/a.png"}, objects.deletes)

	objects.err = errors.New("gone")
	assert.ErrorContains(t, images.Delete(ctx, "donations/donor-1/a.png"), "gone")
}
