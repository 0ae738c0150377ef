package upload_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formrelay/form-api/internal/upload"
)

// fakeUploader fails the first failures calls of each operation and records
// what was uploaded.
type fakeUploader struct {
	failures int
	calls    int
	exists   bool

	uploadedURL  string
	uploadedBody []byte
}

func (f *fakeUploader) Upload(
	_ context.Context,
	reader io.ReadSeeker,
	_ int64,
	url string,
) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient upload failure")
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.uploadedURL = url
	f.uploadedBody = body
	return nil
}

func (f *fakeUploader) Exists(_ context.Context, _ string) (bool, error) {
	f.calls++
	if f.calls <= f.failures {
		return false, errors.New("transient exists failure")
	}
	return f.exists, nil
}

func (f *fakeUploader) StoreIdentifier(_ context.Context) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient identifier failure")
	}
	return "fake://bucket", nil
}

func (f *fakeUploader) PresignedReadURL(
	_ context.Context,
	url string,
	_ time.Duration,
) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient presign failure")
	}
	return "https://signed.example/" + url, nil
}

func boundedBackoff() retry.Backoff {
	return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
}

func TestRetryUploaderUpload(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		fake := &fakeUploader{}
		r := upload.NewRetryUploaderBackoff(fake, boundedBackoff)

		content := []byte("submission archive")
		err := r.Upload(t.Context(), bytes.NewReader(content), int64(len(content)), "blob-1")

		require.NoError(t, err)
		assert.Equal(t, "blob-1", fake.uploadedURL)
		assert.Equal(t, content, fake.uploadedBody)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("RecoversAfterTransientFailure", func(t *testing.T) {
		fake := &fakeUploader{failures: 2}
		r := upload.NewRetryUploaderBackoff(fake, boundedBackoff)

		content := []byte("submission archive")
		err := r.Upload(t.Context(), bytes.NewReader(content), int64(len(content)), "blob-1")

		require.NoError(t, err)
		assert.Equal(t, 3, fake.calls)
		// each attempt rewinds, so the retried upload still sees the whole body
		assert.Equal(t, content, fake.uploadedBody)
	})

	t.Run("GivesUpWhenRetriesExhausted", func(t *testing.T) {
		fake := &fakeUploader{failures: 10}
		r := upload.NewRetryUploaderBackoff(fake, boundedBackoff)

		err := r.Upload(t.Context(), strings.NewReader("x"), 1, "blob-1")

		require.Error(t, err)
		assert.Equal(t, 3, fake.calls)
	})
}

func TestRetryUploaderPassthrough(t *testing.T) {
	fake := &fakeUploader{failures: 1, exists: true}
	r := upload.NewRetryUploaderBackoff(fake, boundedBackoff)

	exists, err := r.Exists(t.Context(), "blob-1")
	require.NoError(t, err)
	assert.True(t, exists)

	fake.calls, fake.failures = 0, 0

	ident, err := r.StoreIdentifier(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "fake://bucket", ident)

	signed, err := r.PresignedReadURL(t.Context(), "blob-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/blob-1", signed)
}

func TestHashed(t *testing.T) {
	t.Run("UploadsUnderContentHash", func(t *testing.T) {
		fake := &fakeUploader{}
		content := []byte("submission archive")

		ident, err := upload.Hashed(
			t.Context(),
			fake,
			bytes.NewReader(content),
			int64(len(content)),
		)

		require.NoError(t, err)
		assert.NotEmpty(t, ident)
		assert.Equal(t, ident, fake.uploadedURL)
		assert.Equal(t, content, fake.uploadedBody)
	})

	t.Run("SkipsUploadWhenContentExists", func(t *testing.T) {
		fake := &fakeUploader{exists: true}
		content := []byte("submission archive")

		ident, err := upload.Hashed(
			t.Context(),
			fake,
			bytes.NewReader(content),
			int64(len(content)),
		)

		require.NoError(t, err)
		assert.NotEmpty(t, ident)
		assert.Empty(t, fake.uploadedURL, "existing content must not be re-uploaded")
	})

	t.Run("SameContentSameIdentifier", func(t *testing.T) {
		content := []byte("submission archive")

		first, err := upload.Hashed(
			t.Context(),
			&fakeUploader{},
			bytes.NewReader(content),
			int64(len(content)),
		)
		require.NoError(t, err)

		second, err := upload.Hashed(
			t.Context(),
			&fakeUploader{},
			bytes.NewReader(content),
			int64(len(content)),
		)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}
