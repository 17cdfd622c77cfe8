package perfex

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// 项目与客户数据 — 拉取Perfex的项目、客户、联系人、员工，回写项目状态
// =============================================================================

// GetProjects 拉取全部项目
func (c *Client) GetProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.doRequest(ctx, "GET", "/api/projects", nil, &projects); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("拉取Perfex项目失败: %w", err)
	}
	return projects, nil
}

// GetCustomers 拉取全部客户
func (c *Client) GetCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := c.doRequest(ctx, "GET", "/api/customers", nil, &customers); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("拉取Perfex客户失败: %w", err)
	}
	return customers, nil
}

// GetContacts 拉取指定客户的联系人
func (c *Client) GetContacts(ctx context.Context, customerID string) ([]Contact, error) {
	var contacts []Contact
	if err := c.doRequest(ctx, "GET", "/api/contacts/"+customerID, nil, &contacts); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("拉取Perfex联系人失败: %w", err)
	}
	return contacts, nil
}

// GetAllStaff 拉取全部员工
func (c *Client) GetAllStaff(ctx context.Context) ([]Staff, error) {
	var staff []Staff
	if err := c.doRequest(ctx, "GET", "/api/staffs", nil, &staff); err != nil {
		if errors.Is(err, ErrNoData) {
			return nil, nil
		}
		return nil, fmt.Errorf("拉取Perfex员工失败: %w", err)
	}
	return staff, nil
}

// UpdateProjectStatus 回写项目状态（状态码见Project状态常量）
func (c *Client) UpdateProjectStatus(ctx context.Context, projectID, status string) error {
	body := map[string]string{"status": status}
	if err := c.doRequest(ctx, "PUT", "/api/projects/"+projectID, body, nil); err != nil {
		return fmt.Errorf("回写Perfex项目状态失败: %w", err)
	}
	return nil
}

// CreateProjectNote 给项目添加备注
func (c *Client) CreateProjectNote(ctx context.Context, projectID string, req CreateNoteReq) error {
	if err := c.doRequest(ctx, "POST", "/api/projects/"+projectID+"/notes", req, nil); err != nil {
		return fmt.Errorf("创建Perfex项目备注失败: %w", err)
	}
	return nil
}

// CreateTask 创建任务（可关联项目、指派员工）
func (c *Client) CreateTask(ctx context.Context, req CreateTaskReq) error {
	if err := c.doRequest(ctx, "POST", "/api/tasks", req, nil); err != nil {
		return fmt.Errorf("创建Perfex任务失败: %w", err)
	}
	return nil
}

// UploadProjectFile 上传文件到项目
func (c *Client) UploadProjectFile(ctx context.Context, projectID, fileName string, file io.Reader) error {
	extra := map[string]string{
		"rel_type": "project",
		"rel_id":   projectID,
	}
	if err := c.uploadFile(ctx, "/api/projects/"+projectID+"/files", "file", fileName, file, extra); err != nil {
		return fmt.Errorf("上传Perfex项目文件失败: %w", err)
	}
	return nil
}
