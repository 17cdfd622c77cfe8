package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitfantasy/studioqc/internal/qc/service"
)

// UploadHandler 附件上传处理器，检验照片等存入MinIO
type UploadHandler struct {
	svc *service.AttachmentService
}

func NewUploadHandler(svc *service.AttachmentService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// UploadedFile 上传附件信息
type UploadedFile struct {
	ObjectName  string `json:"object_name"`
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Upload 上传附件
// POST /api/v1/attachments
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "没有上传文件")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "读取上传文件失败", err)
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	objectName, err := h.svc.Upload(c.Request.Context(), src, fileHeader.Filename, fileHeader.Size, contentType)
	if err != nil {
		InternalError(c, "上传失败", err)
		return
	}

	url, err := h.svc.PresignedURL(c.Request.Context(), objectName, 24*time.Hour)
	if err != nil {
		url = ""
	}

	Created(c, UploadedFile{
		ObjectName:  objectName,
		URL:         url,
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: contentType,
	})
}

// Download 下载附件
// GET /api/v1/attachments/*objectName
func (h *UploadHandler) Download(c *gin.Context) {
	objectName := c.Param("objectName")
	if len(objectName) > 0 && objectName[0] == '/' {
		objectName = objectName[1:]
	}
	if objectName == "" {
		BadRequest(c, "object_name不能为空")
		return
	}

	object, err := h.svc.Download(c.Request.Context(), objectName)
	if err != nil {
		InternalError(c, "下载失败", err)
		return
	}
	defer object.Close()

	c.Header("Content-Type", "application/octet-stream")
	io.Copy(c.Writer, object)
}
