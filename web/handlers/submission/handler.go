package submission

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"careloop.com/careloop/core"
	"careloop.com/careloop/infrastructure/filesystem"
	web "careloop.com/careloop/web/common"
	common "careloop.com/careloop/web/handlers/common"
	"github.com/gin-gonic/gin"
)

// Archive is the read side of the EVV submission store, used by billing review
// to pull back batches that already went to the aggregator.
type Archive interface {
	List(ctx context.Context, prefix string) ([]string, error)
	Read(ctx context.Context, key string, out io.Writer) error
}

type s3Archive struct {
	bucket string
}

func NewS3Archive(bucket string) Archive {
	return &s3Archive{bucket: bucket}
}

func (a *s3Archive) List(ctx context.Context, prefix string) ([]string, error) {
	return filesystem.ListFiles(ctx, a.bucket, prefix)
}

func (a *s3Archive) Read(ctx context.Context, key string, out io.Writer) error {
	return filesystem.ReadFile(ctx, a.bucket, key, out)
}

type Endpoint struct {
	archive Archive
}

func Register(r *gin.RouterGroup, archive Archive) {
	endpoint := &Endpoint{archive: archive}
	r.GET("/evv/submissions", endpoint.List)
	r.GET("/evv/submissions/download", endpoint.Download)
}

// agencyPrefix scopes archive access to the request's agency. Batches are keyed
// sandata/<schema>/<timestamp>.json; an agency must never see another's.
func agencyPrefix(c *gin.Context) string {
	schema := core.SchemaFromHost(common.GetHostname(c.Request.Host))
	return fmt.Sprintf("sandata/%s/", schema)
}

func (ep *Endpoint) List(c *gin.Context) {
	keys, err := ep.archive.List(c.Request.Context(), agencyPrefix(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, web.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, web.NewSuccessResponse(keys))
}

func (ep *Endpoint) Download(c *gin.Context) {
	key := c.Query("key")
	if !strings.HasPrefix(key, agencyPrefix(c)) || strings.Contains(key, "..") {
		c.JSON(http.StatusForbidden, web.NewErrorResponse("key outside agency archive"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+key[strings.LastIndex(key, "/")+1:]+`"`)
	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	if err := ep.archive.Read(c.Request.Context(), key, c.Writer); err != nil {
		// headers are already out; the truncated body is the failure signal
		fmt.Println("[WARN] submission download failed:", err)
	}
}
