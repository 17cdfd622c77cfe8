package perfex

import "errors"

// ErrNoData Perfex查询无结果（对应404 + status:false）
var ErrNoData = errors.New("perfex: no data were found")

// StatusResponse Perfex API通用状态响应
type StatusResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Perfex项目状态码
// 1=Not Started 2=In Progress 3=On Hold 4=Cancelled 5=Finished
const (
	ProjectStatusNotStarted = "1"
	ProjectStatusInProgress = "2"
	ProjectStatusOnHold     = "3"
	ProjectStatusCancelled  = "4"
	ProjectStatusFinished   = "5"
)

// Project Perfex项目
// Perfex的REST模块把所有数值字段序列化为字符串
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	ClientID    string `json:"clientid"`
	StartDate   string `json:"start_date"`   // 2006-01-02
	Deadline    string `json:"deadline"`     // 2006-01-02，可为空
	DateCreated string `json:"project_created"`
}

// Customer Perfex客户
type Customer struct {
	UserID      string `json:"userid"`
	Company     string `json:"company"`
	VAT         string `json:"vat"`
	PhoneNumber string `json:"phonenumber"`
	City        string `json:"city"`
	Active      string `json:"active"`
	DateCreated string `json:"datecreated"`
}

// Contact Perfex客户联系人
type Contact struct {
	ID        string `json:"id"`
	UserID    string `json:"userid"` // 所属客户ID
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phonenumber"`
	Active    string `json:"active"`
}

// Staff Perfex员工
type Staff struct {
	StaffID   string `json:"staffid"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
	Phone     string `json:"phonenumber"`
	Admin     string `json:"admin"`
	Active    string `json:"active"`
}

// CreateTaskReq 创建Perfex任务请求
type CreateTaskReq struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"startdate"` // 2006-01-02
	DueDate     string `json:"duedate,omitempty"`
	Priority    string `json:"priority,omitempty"` // 1低 2中 3高 4紧急
	RelType     string `json:"rel_type,omitempty"` // project
	RelID       string `json:"rel_id,omitempty"`
	Assignee    string `json:"assignee,omitempty"` // staffid
}

// CreateNoteReq 创建项目备注请求
type CreateNoteReq struct {
	Description string `json:"description"`
}
