package perfex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// Client — Perfex CRM REST API基础客户端
// 提供通用HTTP请求，可被项目、客户、员工等子模块共用
// Perfex的REST模块用authtoken头做认证，数值字段一律以字符串返回
// =============================================================================

// Client Perfex客户端
type Client struct {
	baseURL    string       // Perfex实例地址，如 https://crm.example.com
	authToken  string       // REST API模块签发的token
	httpClient *http.Client // HTTP客户端
}

// NewClient 创建Perfex客户端实例
func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// doRequest 执行Perfex API请求
// 自动添加authtoken头；404视为"无数据"由调用方兜底，其他非2xx报错
// method: HTTP方法（GET/POST/PUT/DELETE）
// path: API路径（如 /api/projects）
// body: 请求体（会被JSON序列化，nil则不发送body）
// result: 响应结构体指针（会被JSON反序列化）
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authtoken", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	// Perfex在查不到数据时返回404 + {status:false}，调用方按空集处理
	if resp.StatusCode == http.StatusNotFound {
		var status StatusResponse
		if json.Unmarshal(respBody, &status) == nil && !status.Status {
			return ErrNoData
		}
		return fmt.Errorf("Perfex API 404 (path=%s)", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("Perfex API错误[%d]: %s (path=%s)", resp.StatusCode, strings.TrimSpace(string(respBody)), path)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("解析响应体失败: %w", err)
		}
	}
	return nil
}

// uploadFile 以multipart形式上传文件
func (c *Client) uploadFile(ctx context.Context, path, fieldName, fileName string, file io.Reader, extra map[string]string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(fieldName, fileName)
	if err != nil {
		return fmt.Errorf("构造multipart失败: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("写入文件内容失败: %w", err)
	}
	for k, v := range extra {
		w.WriteField(k, v)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("关闭multipart失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("authtoken", c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("Perfex上传失败[%d]: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
