package processor

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"menuforge/internal/export"
	"menuforge/internal/ports"
)

// DefaultURLTTL is used when Deps.URLTTL is zero.
const DefaultURLTTL = 24 * time.Hour

// ObjectKey is where a job's artifact is stored: exports/<menuId>/<jobId>.<ext>.
func ObjectKey(menuID, jobID string, f export.Format) string {
	return fmt.Sprintf("exports/%s/%s.%s", menuID, jobID, f)
}

// OutputHandler writes rendered artifacts to the storage provider.
type OutputHandler struct {
	sp     ports.StorageProvider
	urlTTL time.Duration
}

func NewOutputHandler(sp ports.StorageProvider, urlTTL time.Duration) *OutputHandler {
	if urlTTL <= 0 {
		urlTTL = DefaultURLTTL
	}
	return &OutputHandler{sp: sp, urlTTL: urlTTL}
}

// OutputResult describes a stored artifact. URLErr is set when the upload
// succeeded but no link could be produced.
type OutputResult struct {
	ObjectKey string
	Size      int64
	URL       string
	URLErr    error
}

// Upload stores art under objectKey and resolves a link to it.
func (oh *OutputHandler) Upload(ctx context.Context, objectKey string, art export.Artifact) (OutputResult, error) {
	if oh.sp == nil {
		return OutputResult{}, fmt.Errorf("no storage provider configured")
	}

	uploaded, err := oh.sp.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: art.ContentType,
		Reader:      bytes.NewReader(art.Body),
		Size:        int64(len(art.Body)),
	})
	if err != nil {
		return OutputResult{}, fmt.Errorf("failed to upload %s to %s: %w", objectKey, oh.sp.Provider(), err)
	}

	res := OutputResult{ObjectKey: uploaded.ObjectKey, Size: uploaded.Size}
	signed, err := oh.sp.GetSignedURL(ctx, uploaded.ObjectKey, oh.urlTTL)
	if err != nil {
		res.URLErr = err
		return res, nil
	}
	res.URL = signed.URL
	return res, nil
}
